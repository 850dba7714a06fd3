// Package device connects speech devices to the assistant over WebSocket.
//
// A device owns the microphone, the speaker and the music player. The Hub
// exposes the most recently connected device as the dialog machine's
// Recognizer, Speaker and Media.
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/dialog"
	"github.com/teslashibe/go-alan/pkg/media"
	"github.com/teslashibe/go-alan/pkg/protocol"
	"github.com/teslashibe/go-alan/pkg/tts"
)

// DefaultRecognizeGrace is added to the silence timeouts when waiting for
// a recognize answer.
const DefaultRecognizeGrace = 30 * time.Second

var (
	ErrNotConnected     = errors.New("device: no device connected")
	ErrDisconnected     = errors.New("device: disconnected during recognition")
	ErrRecognizeTimeout = errors.New("device: recognize timed out")
)

// Connection is a connected device.
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the device.
func (c *Connection) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

type recognition struct {
	text string
	err  error
}

type pendingRecognition struct {
	device string
	reply  chan recognition
}

// Option configures a Hub.
type Option func(*Hub)

// WithSynthesizer makes the hub send synthesized audio with every speak
// message. Without it devices receive text only.
func WithSynthesizer(p tts.Provider) Option {
	return func(h *Hub) { h.synth = p }
}

// WithRecognizeGrace overrides DefaultRecognizeGrace.
func WithRecognizeGrace(d time.Duration) Option {
	return func(h *Hub) { h.grace = d }
}

// WithTrackPrefix is prepended to track names in load commands, typically
// the URL path the music directory is served from.
func WithTrackPrefix(prefix string) Option {
	return func(h *Hub) { h.trackPrefix = prefix }
}

// WithLogger sets the hub logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

// Hub manages device connections.
type Hub struct {
	mu      sync.RWMutex
	devices map[string]*Connection
	active  string
	pending map[string]pendingRecognition

	// Player state cached from commands and device reports.
	volume int
	state  media.State

	synth       tts.Provider
	grace       time.Duration
	trackPrefix string
	logger      *slog.Logger

	onPhrase          func(text string, at time.Time)
	onRecognizerState func(state dialog.RecognizerState)
	onMediaState      func(state media.State)
	onMediaEnded      func()

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	phrasesReceived  atomic.Uint64
}

// NewHub creates a device hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		devices: make(map[string]*Connection),
		pending: make(map[string]pendingRecognition),
		state:   media.StateStopped,
		grace:   DefaultRecognizeGrace,
		logger:  log.Component("device"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnPhrase sets the callback for continuous recognition results. at is the
// time the hub received the phrase.
func (h *Hub) OnPhrase(callback func(text string, at time.Time)) {
	h.mu.Lock()
	h.onPhrase = callback
	h.mu.Unlock()
}

// OnRecognizerState sets the callback for recognizer state changes. A newly
// connected device is reported as idle.
func (h *Hub) OnRecognizerState(callback func(state dialog.RecognizerState)) {
	h.mu.Lock()
	h.onRecognizerState = callback
	h.mu.Unlock()
}

// OnMediaState sets the callback for player state changes.
func (h *Hub) OnMediaState(callback func(state media.State)) {
	h.mu.Lock()
	h.onMediaState = callback
	h.mu.Unlock()
}

// OnMediaEnded sets the callback for the end of a track.
func (h *Hub) OnMediaEnded(callback func()) {
	h.mu.Lock()
	h.onMediaEnded = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the device WebSocket endpoint.
func (h *Hub) RegisterRoutes(app fiber.Router) {
	app.Use("/ws/device", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/device", websocket.New(h.handleDevice))
	app.Get("/ws/device/:id", websocket.New(h.handleDevice))
}

func (h *Hub) handleDevice(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	conn := &Connection{
		ID:        id,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	if old, ok := h.devices[id]; ok {
		old.Conn.Close()
	}
	h.devices[id] = conn
	h.active = id
	count := len(h.devices)
	volume := h.volume
	stateCb := h.onRecognizerState
	h.mu.Unlock()

	h.logger.Info("device connected", "device", id, "total", count)

	// Bring the new device up to date, then let the machine restart
	// recognition if it is waiting for the wake phrase.
	if msg, err := protocol.NewMediaMessage(protocol.MediaVolume, "", volume); err == nil {
		h.send(conn, msg)
	}
	if stateCb != nil {
		stateCb(dialog.RecognizerIdle)
	}

	defer h.disconnect(conn)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("device read error", "device", id, "error", err)
			return
		}

		conn.mu.Lock()
		conn.LastSeen = time.Now()
		conn.mu.Unlock()

		h.messagesReceived.Add(1)
		h.handleMessage(conn, data)
	}
}

func (h *Hub) disconnect(conn *Connection) {
	h.mu.Lock()
	if h.devices[conn.ID] == conn {
		delete(h.devices, conn.ID)
	}
	if h.active == conn.ID {
		h.active = ""
		var latest *Connection
		for _, d := range h.devices {
			if latest == nil || d.Connected.After(latest.Connected) {
				latest = d
			}
		}
		if latest != nil {
			h.active = latest.ID
		}
	}
	for id, p := range h.pending {
		if p.device == conn.ID {
			p.reply <- recognition{err: ErrDisconnected}
			delete(h.pending, id)
		}
	}
	count := len(h.devices)
	h.mu.Unlock()

	h.logger.Info("device disconnected", "device", conn.ID, "total", count)
}

func (h *Hub) handleMessage(conn *Connection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Warn("invalid device message", "device", conn.ID, "error", err)
		return
	}

	h.mu.RLock()
	phraseCb := h.onPhrase
	stateCb := h.onRecognizerState
	mediaCb := h.onMediaState
	endedCb := h.onMediaEnded
	h.mu.RUnlock()

	switch msg.Type {
	case protocol.TypePhrase:
		h.phrasesReceived.Add(1)
		phrase, err := msg.GetPhraseData()
		if err == nil && phraseCb != nil {
			phraseCb(phrase.Text, time.Now())
		}

	case protocol.TypeRecognizerState:
		st, err := msg.GetRecognizerStateData()
		if err == nil && stateCb != nil {
			stateCb(dialog.RecognizerState(st.State))
		}

	case protocol.TypeRecognized:
		rec, err := msg.GetRecognizedData()
		if err != nil {
			h.logger.Warn("invalid recognized message", "device", conn.ID, "error", err)
			return
		}
		h.deliver(msg.ID, rec)

	case protocol.TypeMediaState:
		ms, err := msg.GetMediaStateData()
		if err != nil {
			return
		}
		state := media.ParseState(ms.State)
		h.mu.Lock()
		h.state = state
		h.volume = ms.Volume
		h.mu.Unlock()
		if mediaCb != nil {
			mediaCb(state)
		}

	case protocol.TypeMediaEnded:
		if endedCb != nil {
			endedCb()
		}

	case protocol.TypePing:
		ping, _ := msg.GetPingData()
		id := ""
		if ping != nil {
			id = ping.ID
		}
		if pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli()); err == nil {
			h.send(conn, pong)
		}
	}
}

func (h *Hub) deliver(id string, rec *protocol.RecognizedData) {
	h.mu.Lock()
	p, ok := h.pending[id]
	delete(h.pending, id)
	h.mu.Unlock()

	if !ok {
		h.logger.Debug("unexpected recognized message", "id", id)
		return
	}

	r := recognition{text: rec.Text}
	if rec.Error != "" {
		r.err = fmt.Errorf("device: recognize: %s", rec.Error)
	}
	p.reply <- r
}

// =============================================================================
// dialog.Recognizer
// =============================================================================

// StartContinuous starts wake phrase recognition on the active device.
func (h *Hub) StartContinuous(ctx context.Context) error {
	return h.sendListen(true)
}

// StopContinuous stops wake phrase recognition on the active device.
func (h *Hub) StopContinuous(ctx context.Context) error {
	return h.sendListen(false)
}

func (h *Hub) sendListen(continuous bool) error {
	msg, err := protocol.NewListenMessage(continuous)
	if err != nil {
		return err
	}
	return h.sendActive(msg)
}

// RecognizeOnce asks the active device for one utterance and waits for the
// answer. The wait is bounded by both silence timeouts plus the grace period.
func (h *Hub) RecognizeOnce(ctx context.Context, opts dialog.RecognizeOptions) (string, error) {
	conn, err := h.activeConn()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	reply := make(chan recognition, 1)

	h.mu.Lock()
	h.pending[id] = pendingRecognition{device: conn.ID, reply: reply}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}()

	msg, err := protocol.NewRecognizeMessage(id, opts.Grammar, opts.InitialSilence, opts.EndSilence)
	if err != nil {
		return "", err
	}
	if err := h.send(conn, msg); err != nil {
		return "", err
	}

	timer := time.NewTimer(opts.InitialSilence + opts.EndSilence + h.grace)
	defer timer.Stop()

	select {
	case r := <-reply:
		return r.text, r.err
	case <-timer.C:
		return "", ErrRecognizeTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// =============================================================================
// dialog.Speaker
// =============================================================================

// Speak sends text to the active device, with synthesized audio when a
// synthesizer is configured. Synthesis failures fall back to text.
func (h *Hub) Speak(ctx context.Context, text string) error {
	msg, err := h.speakMessage(ctx, text)
	if err != nil {
		return err
	}
	return h.sendActive(msg)
}

func (h *Hub) speakMessage(ctx context.Context, text string) (*protocol.Message, error) {
	if h.synth == nil {
		return protocol.NewSpeakMessage(text)
	}
	result, err := h.synth.Synthesize(ctx, text)
	if err != nil {
		h.logger.Warn("speech synthesis failed, sending text", "error", err)
		return protocol.NewSpeakMessage(text)
	}
	return protocol.NewSpeakAudioMessage(text, result.Audio, string(result.Format.Encoding), result.Format.SampleRate)
}

// =============================================================================
// dialog.Media
// =============================================================================

// Load tells the device to load track.
func (h *Hub) Load(ctx context.Context, track media.Track) error {
	return h.sendMedia(protocol.MediaLoad, h.trackPrefix+string(track), 0)
}

// Play resumes the loaded track.
func (h *Hub) Play(ctx context.Context) error {
	return h.sendMedia(protocol.MediaPlay, "", 0)
}

// Pause pauses playback.
func (h *Hub) Pause(ctx context.Context) error {
	return h.sendMedia(protocol.MediaPause, "", 0)
}

// SetVolume sets the player volume. The value is remembered even when no
// device is connected and sent to the next device that connects.
func (h *Hub) SetVolume(ctx context.Context, volume int) error {
	h.mu.Lock()
	h.volume = volume
	h.mu.Unlock()
	return h.sendMedia(protocol.MediaVolume, "", volume)
}

// Volume returns the last known player volume.
func (h *Hub) Volume() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.volume
}

// State returns the last reported player state.
func (h *Hub) State() media.State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *Hub) sendMedia(action, track string, volume int) error {
	msg, err := protocol.NewMediaMessage(action, track, volume)
	if err != nil {
		return err
	}
	return h.sendActive(msg)
}

// =============================================================================
// Connections
// =============================================================================

func (h *Hub) activeConn() (*Connection, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.devices[h.active]
	if !ok {
		return nil, ErrNotConnected
	}
	return conn, nil
}

func (h *Hub) sendActive(msg *protocol.Message) error {
	conn, err := h.activeConn()
	if err != nil {
		return err
	}
	return h.send(conn, msg)
}

func (h *Hub) send(conn *Connection, msg *protocol.Message) error {
	if err := conn.Send(msg); err != nil {
		return fmt.Errorf("device %s: send %s: %w", conn.ID, msg.Type, err)
	}
	h.messagesSent.Add(1)
	return nil
}

// DeviceCount returns the number of connected devices.
func (h *Hub) DeviceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.devices)
}

// ActiveID returns the active device ID, or "" when none is connected.
func (h *Hub) ActiveID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// Stats contains hub statistics.
type Stats struct {
	DeviceCount      int    `json:"device_count"`
	Active           string `json:"active"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	PhrasesReceived  uint64 `json:"phrases_received"`
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() Stats {
	return Stats{
		DeviceCount:      h.DeviceCount(),
		Active:           h.ActiveID(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		PhrasesReceived:  h.phrasesReceived.Load(),
	}
}

// Info describes a connected device.
type Info struct {
	ID        string    `json:"id"`
	Active    bool      `json:"active"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// Infos returns info about all connected devices.
func (h *Hub) Infos() []Info {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]Info, 0, len(h.devices))
	for _, d := range h.devices {
		d.mu.Lock()
		infos = append(infos, Info{
			ID:        d.ID,
			Active:    d.ID == h.active,
			Connected: d.Connected,
			LastSeen:  d.LastSeen,
		})
		d.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers device management routes.
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	devices := api.Group("/devices")

	devices.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"devices": h.Infos(),
			"count":   h.DeviceCount(),
		})
	})

	devices.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	// Speak arbitrary text on the active device.
	devices.Post("/speak", func(c *fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil || req.Text == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text required"})
		}
		if err := h.Speak(c.UserContext(), req.Text); err != nil {
			status := fiber.StatusInternalServerError
			if errors.Is(err, ErrNotConnected) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})
}

var (
	_ dialog.Recognizer = (*Hub)(nil)
	_ dialog.Speaker    = (*Hub)(nil)
	_ dialog.Media      = (*Hub)(nil)
)
