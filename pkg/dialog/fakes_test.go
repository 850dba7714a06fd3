package dialog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/content"
	"github.com/teslashibe/go-alan/pkg/media"
	"github.com/teslashibe/go-alan/pkg/reminder"
)

// harness wires a Machine to in-memory collaborators that record every
// call into one ordered trace.
type harness struct {
	mu    sync.Mutex
	trace []string

	answers  []string
	opts     []RecognizeOptions
	recErr   error
	starts   int
	stops    int
	spoken   []string
	shown    []string
	volume   int
	volumes  []int
	state    media.State
	loaded   []media.Track
	views    []string
	animated bool
	title    string
	artist   string
	sw       []string

	m *Machine
}

var testNow = time.Date(2026, time.March, 5, 14, 5, 0, 0, time.UTC)

func newHarness(t *testing.T, tracks []media.Track, answers ...string) *harness {
	t.Helper()
	h := &harness{answers: answers, state: media.StateStopped}

	m, err := New(DefaultConfig(), Deps{
		Recognizer: (*fakeRecognizer)(h),
		Voice:      (*fakeVoice)(h),
		Media:      (*fakeMedia)(h),
		Presenter:  (*fakePresenter)(h),
		Stopwatch:  (*fakeStopwatch)(h),
		Playlist:   media.NewPlaylist(tracks...),
		Reminders:  reminder.NewStore(),
		Logger:     log.Discard(),
		Now:        func() time.Time { return testNow },
	})
	require.NoError(t, err)
	h.m = m
	return h
}

func (h *harness) record(format string, args ...any) {
	h.trace = append(h.trace, fmt.Sprintf(format, args...))
}

// wake delivers the wake phrase synchronously.
func (h *harness) wake() {
	h.m.handle(context.Background(), phraseRecognized{text: "hey alan", at: testNow})
}

func (h *harness) Spoken() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.spoken...)
}

func (h *harness) Views() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.views...)
}

func (h *harness) Trace() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.trace...)
}

// =============================================================================
// Recognizer
// =============================================================================

type fakeRecognizer harness

func (r *fakeRecognizer) StartContinuous(context.Context) error {
	h := (*harness)(r)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
	h.record("rec.start")
	return nil
}

func (r *fakeRecognizer) StopContinuous(context.Context) error {
	h := (*harness)(r)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	h.record("rec.stop")
	return nil
}

func (r *fakeRecognizer) RecognizeOnce(ctx context.Context, opts RecognizeOptions) (string, error) {
	h := (*harness)(r)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opts = append(h.opts, opts)
	if h.recErr != nil {
		return "", h.recErr
	}
	if len(h.answers) == 0 {
		h.record("rec.once %q", "")
		return "", nil
	}
	text := h.answers[0]
	h.answers = h.answers[1:]
	h.record("rec.once %q", text)
	return text, nil
}

// =============================================================================
// Voice
// =============================================================================

type fakeVoice harness

func (v *fakeVoice) SpeakAndShow(_ context.Context, text string) error {
	h := (*harness)(v)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spoken = append(h.spoken, text)
	h.record("say %q", text)
	return nil
}

func (v *fakeVoice) ShowOnly(_ context.Context, text string) error {
	h := (*harness)(v)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown = append(h.shown, text)
	h.record("show %q", text)
	return nil
}

// =============================================================================
// Media
// =============================================================================

type fakeMedia harness

func (f *fakeMedia) Load(_ context.Context, track media.Track) error {
	h := (*harness)(f)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = append(h.loaded, track)
	h.record("media.load %s", track)
	return nil
}

func (f *fakeMedia) Play(context.Context) error {
	h := (*harness)(f)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = media.StatePlaying
	h.record("media.play")
	return nil
}

func (f *fakeMedia) Pause(context.Context) error {
	h := (*harness)(f)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = media.StatePaused
	h.record("media.pause")
	return nil
}

func (f *fakeMedia) SetVolume(_ context.Context, v int) error {
	h := (*harness)(f)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume = v
	h.volumes = append(h.volumes, v)
	h.record("media.volume %d", v)
	return nil
}

func (f *fakeMedia) Volume() int {
	h := (*harness)(f)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (f *fakeMedia) State() media.State {
	h := (*harness)(f)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// =============================================================================
// Presenter
// =============================================================================

type fakePresenter harness

func (p *fakePresenter) view(name string) {
	h := (*harness)(p)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.views = append(h.views, name)
	h.record("view %s", name)
}

func (p *fakePresenter) ShowDefaultView()                { p.view("default") }
func (p *fakePresenter) ShowMediaView()                  { p.view("media") }
func (p *fakePresenter) ShowWeatherView(content.Weather) { p.view("weather") }
func (p *fakePresenter) ShowStopwatchView()              { p.view("stopwatch") }
func (p *fakePresenter) ShowRecipeView(content.Recipe)   { p.view("recipe") }

func (p *fakePresenter) SetIndicator(animated bool) {
	h := (*harness)(p)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.animated = animated
}

func (p *fakePresenter) SetMediaText(title, artist string) {
	h := (*harness)(p)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.title, h.artist = title, artist
}

func (p *fakePresenter) SetVolume(int) {}

// =============================================================================
// Stopwatch
// =============================================================================

type fakeStopwatch harness

func (s *fakeStopwatch) do(op string) {
	h := (*harness)(s)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sw = append(h.sw, op)
}

func (s *fakeStopwatch) Start() { s.do("start") }
func (s *fakeStopwatch) Stop()  { s.do("stop") }
func (s *fakeStopwatch) Reset() { s.do("reset") }

// =============================================================================
// Content providers
// =============================================================================

type jokesFunc func(ctx context.Context) (string, error)

func (f jokesFunc) Joke(ctx context.Context) (string, error) { return f(ctx) }

type recipesFunc func(ctx context.Context, dish string) (content.Recipe, error)

func (f recipesFunc) Search(ctx context.Context, dish string) (content.Recipe, error) {
	return f(ctx, dish)
}

type fixedWeather content.Weather

func (w fixedWeather) Current(context.Context, content.Position) (content.Weather, error) {
	return content.Weather(w), nil
}
