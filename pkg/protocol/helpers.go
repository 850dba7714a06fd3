package protocol

import (
	"encoding/base64"
	"time"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewPhraseMessage creates a continuous recognition result
func NewPhraseMessage(text string) (*Message, error) {
	return NewMessage(TypePhrase, PhraseData{Text: text})
}

// NewRecognizerStateMessage creates a recognizer state message
func NewRecognizerStateMessage(state string) (*Message, error) {
	return NewMessage(TypeRecognizerState, RecognizerStateData{State: state})
}

// NewRecognizedMessage answers the recognize request with the given id
func NewRecognizedMessage(id, text string) (*Message, error) {
	msg, err := NewMessage(TypeRecognized, RecognizedData{Text: text})
	if err != nil {
		return nil, err
	}
	msg.ID = id
	return msg, nil
}

// NewMediaStateMessage creates a player state message
func NewMediaStateMessage(state string, volume int) (*Message, error) {
	return NewMessage(TypeMediaState, MediaStateData{State: state, Volume: volume})
}

// NewMediaEndedMessage signals the end of the current track
func NewMediaEndedMessage() (*Message, error) {
	return NewMessage(TypeMediaEnded, nil)
}

// NewListenMessage starts or stops continuous recognition
func NewListenMessage(continuous bool) (*Message, error) {
	return NewMessage(TypeListen, ListenCommand{Continuous: continuous})
}

// NewRecognizeMessage creates a recognize request
func NewRecognizeMessage(id, grammar string, initialSilence, endSilence time.Duration) (*Message, error) {
	msg, err := NewMessage(TypeRecognize, RecognizeCommand{
		Grammar:          grammar,
		InitialSilenceMs: initialSilence.Milliseconds(),
		EndSilenceMs:     endSilence.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	msg.ID = id
	return msg, nil
}

// NewSpeakMessage creates a text-only speak message
func NewSpeakMessage(text string) (*Message, error) {
	return NewMessage(TypeSpeak, SpeakData{Text: text})
}

// NewSpeakAudioMessage creates a speak message carrying synthesized audio
func NewSpeakAudioMessage(text string, audioData []byte, format string, sampleRate int) (*Message, error) {
	return NewMessage(TypeSpeak, SpeakData{
		Text:       text,
		Format:     format,
		SampleRate: sampleRate,
		Data:       base64.StdEncoding.EncodeToString(audioData),
	})
}

// NewMediaMessage creates a player command
func NewMediaMessage(action, track string, volume int) (*Message, error) {
	return NewMessage(TypeMedia, MediaCommand{
		Action: action,
		Track:  track,
		Volume: volume,
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetPhraseData extracts phrase data from a message
func (m *Message) GetPhraseData() (*PhraseData, error) {
	var data PhraseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetRecognizerStateData extracts recognizer state from a message
func (m *Message) GetRecognizerStateData() (*RecognizerStateData, error) {
	var data RecognizerStateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetRecognizedData extracts a recognize answer from a message
func (m *Message) GetRecognizedData() (*RecognizedData, error) {
	var data RecognizedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMediaStateData extracts player state from a message
func (m *Message) GetMediaStateData() (*MediaStateData, error) {
	var data MediaStateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetListenCommand extracts a listen command from a message
func (m *Message) GetListenCommand() (*ListenCommand, error) {
	var data ListenCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetRecognizeCommand extracts a recognize request from a message
func (m *Message) GetRecognizeCommand() (*RecognizeCommand, error) {
	var data RecognizeCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeakData extracts speak data from a message
func (m *Message) GetSpeakData() (*SpeakData, error) {
	var data SpeakData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeSpeakData decodes the base64 audio data
func (s *SpeakData) DecodeSpeakData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Data)
}

// GetMediaCommand extracts a player command from a message
func (m *Message) GetMediaCommand() (*MediaCommand, error) {
	var data MediaCommand
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
