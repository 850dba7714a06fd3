// Package dialog implements the assistant's dialog state machine.
//
// A single goroutine (Machine.Run) owns the Session. Recognizer, media and
// dashboard callbacks never touch the session directly: they post events to
// the machine's inbox and the machine handles them one at a time. A command
// turn runs inside that goroutine, so events arriving during a turn wait
// until it ends.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/media"
	"github.com/teslashibe/go-alan/pkg/reminder"
)

// Defaults for Config.
const (
	DefaultWakePhrase     = "hey alan"
	DefaultName           = "Alan"
	DefaultInitialSilence = 10 * time.Second
	DefaultEndSilence     = 5 * time.Second
	DefaultMusicVolume    = 35
	DefaultDuckVolume     = 10
	DefaultInboxSize      = 64

	// GrammarReminderDate constrains the reminder date answer to "<month> <day>".
	GrammarReminderDate = "reminder-date"
)

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("dialog: missing dependency")

// Config holds the machine's tunables.
type Config struct {
	Name           string
	WakePhrase     string
	InitialSilence time.Duration
	EndSilence     time.Duration
	DefaultVolume  int
	DuckVolume     int
	InboxSize      int
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Name:           DefaultName,
		WakePhrase:     DefaultWakePhrase,
		InitialSilence: DefaultInitialSilence,
		EndSilence:     DefaultEndSilence,
		DefaultVolume:  DefaultMusicVolume,
		DuckVolume:     DefaultDuckVolume,
		InboxSize:      DefaultInboxSize,
	}
}

// Deps are the machine's collaborators. Recognizer, Voice, Media and
// Presenter are required; a nil content provider makes its command
// answer with the generic apology.
type Deps struct {
	Recognizer Recognizer
	Voice      Voice
	Media      Media
	Presenter  Presenter
	Stopwatch  Stopwatch

	Playlist  *media.Playlist
	Reminders *reminder.Store

	Jokes        Jokes
	Quotes       Quotes
	Locator      Locator
	Weather      Weather
	Encyclopedia Encyclopedia
	Recipes      Recipes
	Calendar     Calendar

	Logger *slog.Logger
	Now    func() time.Time
}

// Machine is the dialog state machine actor.
type Machine struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	table  *Table

	inbox      chan event
	recipeExit chan struct{}

	// Owned by the Run goroutine.
	session     Session
	lastTurnEnd time.Time
}

// New creates a machine in BackgroundDefault.
func New(cfg Config, deps Deps) (*Machine, error) {
	switch {
	case deps.Recognizer == nil:
		return nil, errMissing("recognizer")
	case deps.Voice == nil:
		return nil, errMissing("voice")
	case deps.Media == nil:
		return nil, errMissing("media")
	case deps.Presenter == nil:
		return nil, errMissing("presenter")
	}

	def := DefaultConfig()
	if cfg.WakePhrase == "" {
		cfg.WakePhrase = def.WakePhrase
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.InitialSilence <= 0 {
		cfg.InitialSilence = def.InitialSilence
	}
	if cfg.EndSilence <= 0 {
		cfg.EndSilence = def.EndSilence
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}

	if deps.Playlist == nil {
		deps.Playlist = media.NewPlaylist()
	}
	if deps.Reminders == nil {
		deps.Reminders = reminder.NewStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Component("dialog")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	m := &Machine{
		cfg:        cfg,
		deps:       deps,
		logger:     logger,
		now:        now,
		inbox:      make(chan event, cfg.InboxSize),
		recipeExit: make(chan struct{}),
		session: Session{
			Mode:        BackgroundDefault,
			SavedVolume: cfg.DefaultVolume,
		},
	}
	m.table = m.buildTable()
	return m, nil
}

func errMissing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingDependency, name)
}

// Table returns the dispatch table.
func (m *Machine) Table() *Table {
	return m.table
}

// Greeting is shown and spoken when the assistant is idle.
func (m *Machine) Greeting() string {
	return Greeting(m.cfg.Name)
}

// Greeting returns the idle greeting for an assistant called name.
func Greeting(name string) string {
	return "Hi, I'm " + name + ". How can I help you?"
}

// Run shows the default view, greets, starts continuous recognition and
// processes events until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	m.logger.Info("dialog machine started", "wake_phrase", m.cfg.WakePhrase)

	m.deps.Presenter.ShowDefaultView()
	m.deps.Presenter.SetIndicator(false)
	m.deps.Presenter.SetVolume(m.session.SavedVolume)
	m.say(ctx, m.Greeting())
	m.startContinuous(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("dialog machine stopped")
			return ctx.Err()
		case ev := <-m.inbox:
			m.handle(ctx, ev)
		}
	}
}

// =============================================================================
// Events
// =============================================================================

type event interface{ name() string }

type phraseRecognized struct {
	text string
	at   time.Time
}

type recognizerStateChanged struct{ state RecognizerState }

type trackEnded struct{}

type mediaStateChanged struct{ state media.State }

type uiAction struct {
	action Action
	value  int
}

type snapshotRequest struct{ reply chan Session }

func (phraseRecognized) name() string       { return "phrase_recognized" }
func (recognizerStateChanged) name() string { return "recognizer_state_changed" }
func (trackEnded) name() string             { return "track_ended" }
func (mediaStateChanged) name() string      { return "media_state_changed" }
func (uiAction) name() string               { return "ui_action" }
func (snapshotRequest) name() string        { return "snapshot" }

// RecognizerState is the continuous recognizer's state.
type RecognizerState string

const (
	RecognizerIdle      RecognizerState = "idle"
	RecognizerListening RecognizerState = "listening"
)

// Action is a dashboard button or slider action.
type Action string

const (
	ActionPlay           Action = "play"
	ActionStop           Action = "stop"
	ActionNext           Action = "next"
	ActionPrevious       Action = "previous"
	ActionClose          Action = "close"
	ActionVolume         Action = "volume"
	ActionStopwatchStart Action = "stopwatch.start"
	ActionStopwatchStop  Action = "stopwatch.stop"
	ActionStopwatchReset Action = "stopwatch.reset"
)

func (m *Machine) post(ev event) bool {
	select {
	case m.inbox <- ev:
		return true
	default:
		m.logger.Warn("inbox full, dropping event", "event", ev.name())
		return false
	}
}

// PhraseRecognized delivers a continuous recognition result heard at at.
func (m *Machine) PhraseRecognized(text string, at time.Time) {
	if at.IsZero() {
		at = m.now()
	}
	m.post(phraseRecognized{text: text, at: at})
}

// IdleStateChanged delivers a continuous recognizer state change.
func (m *Machine) IdleStateChanged(state RecognizerState) {
	m.post(recognizerStateChanged{state: state})
}

// TrackEnded reports that the current track finished playing.
func (m *Machine) TrackEnded() {
	m.post(trackEnded{})
}

// MediaStateChanged reports a player state change.
func (m *Machine) MediaStateChanged(state media.State) {
	m.post(mediaStateChanged{state: state})
}

// UIAction delivers a dashboard action. value is used by ActionVolume.
func (m *Machine) UIAction(action Action, value int) {
	m.post(uiAction{action: action, value: value})
}

// ExitRecipe leaves the recipe view. It has no effect unless a recipe
// command is waiting for it.
func (m *Machine) ExitRecipe() bool {
	select {
	case m.recipeExit <- struct{}{}:
		return true
	default:
		return false
	}
}

// Snapshot returns a copy of the session. It waits for any running turn.
func (m *Machine) Snapshot(ctx context.Context) (Session, error) {
	req := snapshotRequest{reply: make(chan Session, 1)}
	select {
	case m.inbox <- req:
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

func (m *Machine) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case phraseRecognized:
		m.handlePhrase(ctx, e)
	case recognizerStateChanged:
		m.handleRecognizerState(ctx, e.state)
	case trackEnded:
		m.handleTrackEnded(ctx)
	case mediaStateChanged:
		m.handleMediaState(e.state)
	case uiAction:
		m.handleUIAction(ctx, e.action, e.value)
	case snapshotRequest:
		e.reply <- m.session
	}
}
