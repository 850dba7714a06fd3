// Package protocol defines the WebSocket message types for device-server communication.
// It is shared between the assistant server (cmd/alan) and speech devices (cmd/alan-console).
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Device → Server messages
	TypePhrase          MessageType = "phrase"           // Continuous recognition result
	TypeRecognizerState MessageType = "recognizer_state" // Recognizer became idle/listening
	TypeRecognized      MessageType = "recognized"       // Answer to a recognize request
	TypeMediaState      MessageType = "media_state"      // Player state changed
	TypeMediaEnded      MessageType = "media_ended"      // Current track finished

	// Server → Device messages
	TypeListen    MessageType = "listen"    // Start/stop continuous recognition
	TypeRecognize MessageType = "recognize" // Recognize a single utterance
	TypeSpeak     MessageType = "speak"     // Speak text (optionally pre-synthesized)
	TypeMedia     MessageType = "media"     // Player command

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Recognizer states reported by the device.
const (
	RecognizerIdle      = "idle"
	RecognizerListening = "listening"
)

// Media actions sent to the device.
const (
	MediaLoad   = "load"
	MediaPlay   = "play"
	MediaPause  = "pause"
	MediaVolume = "volume"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	ID        string          `json:"id,omitempty"` // Correlates recognize/recognized
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// Time returns the message timestamp. Zero timestamps map to the zero time.
func (m *Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Device → Server Message Types
// =============================================================================

// PhraseData is a phrase heard by continuous recognition
type PhraseData struct {
	Text string `json:"text"`
}

// RecognizerStateData reports the recognizer state
type RecognizerStateData struct {
	State string `json:"state"` // "idle", "listening"
}

// RecognizedData answers a recognize request. Empty text means silence or timeout.
type RecognizedData struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// MediaStateData reports the player state
type MediaStateData struct {
	State  string `json:"state"` // "playing", "paused", "buffering", "stopped"
	Volume int    `json:"volume"`
}

// =============================================================================
// Server → Device Message Types
// =============================================================================

// ListenCommand starts or stops continuous recognition
type ListenCommand struct {
	Continuous bool `json:"continuous"`
}

// RecognizeCommand requests a single utterance
type RecognizeCommand struct {
	Grammar          string `json:"grammar,omitempty"`
	InitialSilenceMs int64  `json:"initial_silence_ms"`
	EndSilenceMs     int64  `json:"end_silence_ms"`
}

// SpeakData contains text to speak, optionally with synthesized audio
type SpeakData struct {
	Text       string `json:"text"`
	Format     string `json:"format,omitempty"`      // "pcm16", "mp3"
	SampleRate int    `json:"sample_rate,omitempty"` // e.g., 24000
	Data       string `json:"data,omitempty"`        // base64 encoded
}

// MediaCommand controls the device player
type MediaCommand struct {
	Action string `json:"action"` // "load", "play", "pause", "volume"
	Track  string `json:"track,omitempty"`
	Volume int    `json:"volume,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
