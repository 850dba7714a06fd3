package device

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/dialog"
	"github.com/teslashibe/go-alan/pkg/media"
	"github.com/teslashibe/go-alan/pkg/protocol"
	"github.com/teslashibe/go-alan/pkg/tts"
)

func newTestHub(opts ...Option) *Hub {
	return NewHub(append([]Option{WithLogger(log.Discard())}, opts...)...)
}

// startServer serves the hub on a random local port and returns its ws URL.
func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	hub.RegisterRoutes(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return "ws://" + ln.Addr().String()
}

// testDevice is a connected client collecting hub messages.
type testDevice struct {
	*Client
	messages chan *protocol.Message
}

func connect(t *testing.T, hub *Hub, url, id string, handle func(*Client, *protocol.Message)) *testDevice {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	c, err := Dial(ctx, url+"/ws/device/"+id)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	d := &testDevice{Client: c, messages: make(chan *protocol.Message, 32)}

	go c.Run(ctx, func(msg *protocol.Message) {
		if handle != nil {
			handle(c, msg)
		}
		d.messages <- msg
	})
	t.Cleanup(func() {
		cancel()
		c.Close()
	})

	waitFor(t, func() bool { return hub.ActiveID() == id })
	return d
}

func (d *testDevice) next(t *testing.T, typ protocol.MessageType) *protocol.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-d.messages:
			if msg.Type == typ {
				return msg
			}
		case <-timeout:
			t.Fatalf("no %s message received", typ)
			return nil
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewHub(t *testing.T) {
	hub := newTestHub()

	if hub.DeviceCount() != 0 {
		t.Error("DeviceCount should be 0 initially")
	}
	if hub.State() != media.StateStopped {
		t.Errorf("State = %s, want stopped", hub.State())
	}
	if err := hub.StartContinuous(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("StartContinuous error = %v, want ErrNotConnected", err)
	}
	if _, err := hub.RecognizeOnce(context.Background(), dialog.RecognizeOptions{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("RecognizeOnce error = %v, want ErrNotConnected", err)
	}
}

func TestSetVolumeWithoutDevice(t *testing.T) {
	hub := newTestHub()

	err := hub.SetVolume(context.Background(), 35)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetVolume error = %v, want ErrNotConnected", err)
	}
	if hub.Volume() != 35 {
		t.Errorf("Volume = %d, want 35", hub.Volume())
	}
}

func TestDeviceConnection(t *testing.T) {
	hub := newTestHub()
	hub.SetVolume(context.Background(), 35)

	var mu sync.Mutex
	var states []dialog.RecognizerState
	hub.OnRecognizerState(func(s dialog.RecognizerState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	url := startServer(t, hub)
	d := connect(t, hub, url, "kitchen", nil)

	// The cached volume is pushed on connect.
	msg := d.next(t, protocol.TypeMedia)
	cmd, err := msg.GetMediaCommand()
	if err != nil {
		t.Fatalf("GetMediaCommand: %v", err)
	}
	if cmd.Action != protocol.MediaVolume || cmd.Volume != 35 {
		t.Errorf("unexpected media command %+v", cmd)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 1 && states[0] == dialog.RecognizerIdle
	})

	d.Close()
	waitFor(t, func() bool { return hub.DeviceCount() == 0 })
	if hub.ActiveID() != "" {
		t.Errorf("ActiveID = %q after disconnect", hub.ActiveID())
	}
}

func TestLatestDeviceIsActive(t *testing.T) {
	hub := newTestHub()
	url := startServer(t, hub)

	first := connect(t, hub, url, "kitchen", nil)
	connect(t, hub, url, "bedroom", nil)

	if hub.DeviceCount() != 2 {
		t.Fatalf("DeviceCount = %d, want 2", hub.DeviceCount())
	}

	first.Close()
	waitFor(t, func() bool { return hub.DeviceCount() == 1 })
	if hub.ActiveID() != "bedroom" {
		t.Errorf("ActiveID = %q, want bedroom", hub.ActiveID())
	}
}

func TestListenCommands(t *testing.T) {
	hub := newTestHub()
	url := startServer(t, hub)
	d := connect(t, hub, url, "kitchen", nil)

	if err := hub.StartContinuous(context.Background()); err != nil {
		t.Fatalf("StartContinuous: %v", err)
	}
	listen, _ := d.next(t, protocol.TypeListen).GetListenCommand()
	if !listen.Continuous {
		t.Error("expected continuous=true")
	}

	hub.StopContinuous(context.Background())
	listen, _ = d.next(t, protocol.TypeListen).GetListenCommand()
	if listen.Continuous {
		t.Error("expected continuous=false")
	}
}

func TestRecognizeRoundTrip(t *testing.T) {
	hub := newTestHub()
	url := startServer(t, hub)

	commands := make(chan *protocol.RecognizeCommand, 1)
	connect(t, hub, url, "kitchen", func(c *Client, msg *protocol.Message) {
		if msg.Type != protocol.TypeRecognize {
			return
		}
		cmd, _ := msg.GetRecognizeCommand()
		commands <- cmd
		c.SendRecognized(msg.ID, "march 5")
	})

	text, err := hub.RecognizeOnce(context.Background(), dialog.RecognizeOptions{
		Grammar:        dialog.GrammarReminderDate,
		InitialSilence: 10 * time.Second,
		EndSilence:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("RecognizeOnce: %v", err)
	}
	if text != "march 5" {
		t.Errorf("text = %q, want march 5", text)
	}
	got := <-commands
	if got.Grammar != dialog.GrammarReminderDate || got.InitialSilenceMs != 10000 || got.EndSilenceMs != 5000 {
		t.Errorf("unexpected recognize command %+v", got)
	}
}

func TestRecognizeDeviceError(t *testing.T) {
	hub := newTestHub()
	url := startServer(t, hub)

	connect(t, hub, url, "kitchen", func(c *Client, msg *protocol.Message) {
		if msg.Type == protocol.TypeRecognize {
			reply, _ := protocol.NewMessage(protocol.TypeRecognized, protocol.RecognizedData{Error: "microphone busy"})
			reply.ID = msg.ID
			c.Send(reply)
		}
	})

	_, err := hub.RecognizeOnce(context.Background(), dialog.RecognizeOptions{})
	if err == nil || !strings.Contains(err.Error(), "microphone busy") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRecognizeTimeout(t *testing.T) {
	hub := newTestHub(WithRecognizeGrace(20 * time.Millisecond))
	url := startServer(t, hub)
	connect(t, hub, url, "kitchen", nil)

	_, err := hub.RecognizeOnce(context.Background(), dialog.RecognizeOptions{})
	if !errors.Is(err, ErrRecognizeTimeout) {
		t.Errorf("error = %v, want ErrRecognizeTimeout", err)
	}
}

func TestRecognizeCanceled(t *testing.T) {
	hub := newTestHub()
	url := startServer(t, hub)
	connect(t, hub, url, "kitchen", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := hub.RecognizeOnce(ctx, dialog.RecognizeOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestRecognizeDisconnect(t *testing.T) {
	hub := newTestHub()
	url := startServer(t, hub)

	connect(t, hub, url, "kitchen", func(c *Client, msg *protocol.Message) {
		if msg.Type == protocol.TypeRecognize {
			c.Close()
		}
	})

	_, err := hub.RecognizeOnce(context.Background(), dialog.RecognizeOptions{})
	if !errors.Is(err, ErrDisconnected) {
		t.Errorf("error = %v, want ErrDisconnected", err)
	}
}

func TestPhraseCallback(t *testing.T) {
	hub := newTestHub()
	phrases := make(chan string, 1)
	hub.OnPhrase(func(text string, at time.Time) {
		if at.IsZero() {
			t.Error("phrase must be stamped")
		}
		phrases <- text
	})

	url := startServer(t, hub)
	d := connect(t, hub, url, "kitchen", nil)
	d.SendPhrase("hey alan")

	select {
	case text := <-phrases:
		if text != "hey alan" {
			t.Errorf("phrase = %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("phrase callback not called")
	}

	if hub.GetStats().PhrasesReceived != 1 {
		t.Error("PhrasesReceived should be 1")
	}
}

func TestMediaReports(t *testing.T) {
	hub := newTestHub()
	states := make(chan media.State, 1)
	ended := make(chan struct{}, 1)
	hub.OnMediaState(func(s media.State) { states <- s })
	hub.OnMediaEnded(func() { ended <- struct{}{} })

	url := startServer(t, hub)
	d := connect(t, hub, url, "kitchen", nil)

	d.SendMediaState("playing", 40)
	select {
	case s := <-states:
		if s != media.StatePlaying {
			t.Errorf("state = %s", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("media state callback not called")
	}
	if hub.State() != media.StatePlaying || hub.Volume() != 40 {
		t.Errorf("cache = %s/%d, want playing/40", hub.State(), hub.Volume())
	}

	d.SendMediaEnded()
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("media ended callback not called")
	}
}

func TestMediaCommands(t *testing.T) {
	hub := newTestHub(WithTrackPrefix("/media/"))
	url := startServer(t, hub)
	d := connect(t, hub, url, "kitchen", nil)
	d.next(t, protocol.TypeMedia) // initial volume

	ctx := context.Background()
	hub.Load(ctx, "Imagine - John Lennon.mp3")
	hub.Play(ctx)

	load, _ := d.next(t, protocol.TypeMedia).GetMediaCommand()
	if load.Action != protocol.MediaLoad || load.Track != "/media/Imagine - John Lennon.mp3" {
		t.Errorf("unexpected load command %+v", load)
	}
	play, _ := d.next(t, protocol.TypeMedia).GetMediaCommand()
	if play.Action != protocol.MediaPlay {
		t.Errorf("unexpected play command %+v", play)
	}
}

func TestSpeak(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		hub := newTestHub()
		url := startServer(t, hub)
		d := connect(t, hub, url, "kitchen", nil)

		if err := hub.Speak(context.Background(), "I'm listening."); err != nil {
			t.Fatalf("Speak: %v", err)
		}
		speak, _ := d.next(t, protocol.TypeSpeak).GetSpeakData()
		if speak.Text != "I'm listening." || speak.Data != "" {
			t.Errorf("unexpected speak data %+v", speak)
		}
	})

	t.Run("synthesized", func(t *testing.T) {
		synth := tts.NewMock()
		hub := newTestHub(WithSynthesizer(synth))
		url := startServer(t, hub)
		d := connect(t, hub, url, "kitchen", nil)

		hub.Speak(context.Background(), "Hello")
		speak, _ := d.next(t, protocol.TypeSpeak).GetSpeakData()
		audio, err := speak.DecodeSpeakData()
		if err != nil || len(audio) == 0 {
			t.Errorf("expected audio, got %d bytes (%v)", len(audio), err)
		}
		if speak.Format != string(tts.EncodingPCM24) || speak.SampleRate != 24000 {
			t.Errorf("unexpected format %s/%d", speak.Format, speak.SampleRate)
		}
	})

	t.Run("synthesis failure falls back to text", func(t *testing.T) {
		hub := newTestHub(WithSynthesizer(tts.WithError(errors.New("quota"))))
		url := startServer(t, hub)
		d := connect(t, hub, url, "kitchen", nil)

		if err := hub.Speak(context.Background(), "Hello"); err != nil {
			t.Fatalf("Speak: %v", err)
		}
		speak, _ := d.next(t, protocol.TypeSpeak).GetSpeakData()
		if speak.Text != "Hello" || speak.Data != "" {
			t.Errorf("unexpected speak data %+v", speak)
		}
	})
}

func TestPingPong(t *testing.T) {
	hub := newTestHub()
	url := startServer(t, hub)
	d := connect(t, hub, url, "kitchen", nil)

	ping, _ := protocol.NewPingMessage("p1")
	d.Send(ping)

	pong, err := d.next(t, protocol.TypePong).GetPongData()
	if err != nil {
		t.Fatalf("GetPongData: %v", err)
	}
	if pong.ID != "p1" {
		t.Errorf("pong id = %q, want p1", pong.ID)
	}
}

func TestAPIListDevices(t *testing.T) {
	hub := newTestHub()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	hub.RegisterAPIRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/devices/", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "devices") {
		t.Error("Response should contain 'devices' field")
	}

	req := httptest.NewRequest("POST", "/api/devices/speak", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503 without a device", resp.StatusCode)
	}
}
