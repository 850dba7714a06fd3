package protocol

import (
	"strings"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "phrase message",
			msgType: TypePhrase,
			data:    PhraseData{Text: "hey alan"},
		},
		{
			name:    "media command",
			msgType: TypeMedia,
			data:    MediaCommand{Action: MediaVolume, Volume: 35},
		},
		{
			name:    "nil data",
			msgType: TypeMediaEnded,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeSpeak,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestRecognizeRoundTrip(t *testing.T) {
	msg, err := NewRecognizeMessage("req-1", "reminder-date", 10*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("NewRecognizeMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if parsed.Type != TypeRecognize {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeRecognize)
	}
	if parsed.ID != "req-1" {
		t.Errorf("ID = %v, want req-1", parsed.ID)
	}

	cmd, err := parsed.GetRecognizeCommand()
	if err != nil {
		t.Fatalf("GetRecognizeCommand() error = %v", err)
	}
	if cmd.Grammar != "reminder-date" {
		t.Errorf("Grammar = %v, want reminder-date", cmd.Grammar)
	}
	if cmd.InitialSilenceMs != 10000 || cmd.EndSilenceMs != 5000 {
		t.Errorf("silences = %d/%d, want 10000/5000", cmd.InitialSilenceMs, cmd.EndSilenceMs)
	}
}

func TestRecognizedMessage(t *testing.T) {
	msg, err := NewRecognizedMessage("req-2", "what time is it")
	if err != nil {
		t.Fatalf("NewRecognizedMessage() error = %v", err)
	}
	if msg.ID != "req-2" {
		t.Errorf("ID = %v, want req-2", msg.ID)
	}

	data, err := msg.GetRecognizedData()
	if err != nil {
		t.Fatalf("GetRecognizedData() error = %v", err)
	}
	if data.Text != "what time is it" {
		t.Errorf("Text = %q", data.Text)
	}
}

func TestSpeakAudioMessage(t *testing.T) {
	audioData := []byte{0x00, 0x01, 0x02, 0x03}

	msg, err := NewSpeakAudioMessage("I'm listening.", audioData, "pcm16", 24000)
	if err != nil {
		t.Fatalf("NewSpeakAudioMessage() error = %v", err)
	}

	speakData, err := msg.GetSpeakData()
	if err != nil {
		t.Fatalf("GetSpeakData() error = %v", err)
	}
	if speakData.Text != "I'm listening." {
		t.Errorf("Text = %q", speakData.Text)
	}
	if speakData.SampleRate != 24000 {
		t.Errorf("SampleRate = %v, want 24000", speakData.SampleRate)
	}

	decoded, err := speakData.DecodeSpeakData()
	if err != nil {
		t.Fatalf("DecodeSpeakData() error = %v", err)
	}
	if len(decoded) != len(audioData) {
		t.Errorf("Decoded length = %v, want %v", len(decoded), len(audioData))
	}
}

func TestSpeakTextOnlyOmitsAudio(t *testing.T) {
	msg, err := NewSpeakMessage("Reminder saved.")
	if err != nil {
		t.Fatalf("NewSpeakMessage() error = %v", err)
	}
	if strings.Contains(string(msg.Data), "sample_rate") || strings.Contains(string(msg.Data), `"data"`) {
		t.Errorf("text-only speak should omit audio fields: %s", msg.Data)
	}
}

func TestMediaMessages(t *testing.T) {
	msg, err := NewMediaMessage(MediaLoad, "Song - Artist.mp3", 0)
	if err != nil {
		t.Fatalf("NewMediaMessage() error = %v", err)
	}
	cmd, err := msg.GetMediaCommand()
	if err != nil {
		t.Fatalf("GetMediaCommand() error = %v", err)
	}
	if cmd.Action != MediaLoad || cmd.Track != "Song - Artist.mp3" {
		t.Errorf("unexpected command: %+v", cmd)
	}

	state, err := NewMediaStateMessage("playing", 35)
	if err != nil {
		t.Fatalf("NewMediaStateMessage() error = %v", err)
	}
	data, err := state.GetMediaStateData()
	if err != nil {
		t.Fatalf("GetMediaStateData() error = %v", err)
	}
	if data.State != "playing" || data.Volume != 35 {
		t.Errorf("unexpected state: %+v", data)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingMsg.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

func TestParseMessageErrors(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := ParseMessage([]byte(`{"ts":1}`)); err == nil {
		t.Error("expected error for missing type")
	}
}

func TestMessageTime(t *testing.T) {
	msg := &Message{Type: TypePhrase, Timestamp: 1700000000000}
	if got := msg.Time().UnixMilli(); got != 1700000000000 {
		t.Errorf("Time() = %v", got)
	}
	if !(&Message{}).Time().IsZero() {
		t.Error("zero timestamp should map to zero time")
	}
}
