package dialog

import (
	"context"

	"github.com/teslashibe/go-alan/pkg/media"
)

// Spoken responses shared by several handlers.
const (
	PromptListening     = "I'm listening."
	ApologyUnknown      = "I'm sorry, I couldn't understand."
	ApologyCollaborator = "I'm sorry, I couldn't retrieve the informations from the web."
)

func (m *Machine) handlePhrase(ctx context.Context, ev phraseRecognized) {
	// Phrases heard before the last turn ended are stale.
	if ev.at.Before(m.lastTurnEnd) {
		m.logger.Debug("dropping stale phrase", "text", ev.text)
		return
	}
	if Normalize(ev.text) != Normalize(m.cfg.WakePhrase) {
		return
	}
	if !m.session.Mode.IsBackground() {
		m.logger.Debug("wake phrase ignored during turn", "mode", m.session.Mode)
		return
	}
	m.runTurn(ctx)
}

// runTurn conducts one command turn from a background mode.
func (m *Machine) runTurn(ctx context.Context) {
	entry := m.session.Mode
	m.session.Mode = entry.Listening()
	m.deps.Presenter.SetIndicator(true)
	m.logger.Info("turn started", "mode", m.session.Mode)

	// Duck before recognition stops so the music softens immediately.
	if entry == BackgroundMedia {
		m.session.SavedVolume = m.deps.Media.Volume()
		if err := m.deps.Media.SetVolume(ctx, m.cfg.DuckVolume); err != nil {
			m.logger.Warn("failed to duck volume", "error", err)
		}
	}

	if err := m.deps.Recognizer.StopContinuous(ctx); err != nil {
		m.logger.Warn("failed to stop continuous recognition", "error", err)
	}

	m.say(ctx, PromptListening)

	text, err := m.deps.Recognizer.RecognizeOnce(ctx, m.recognizeOptions(""))
	if err != nil {
		m.logger.Warn("command recognition failed", "error", err)
		text = ""
	}

	next := m.table.Dispatch(ctx, m.session.Mode, text)
	m.logger.Info("turn finished", "command", Normalize(text), "next_mode", next)
	m.session.Mode = next

	if next.IsMedia() {
		m.applyVolume(ctx, m.session.SavedVolume)
	}

	m.startContinuous(ctx)
	m.lastTurnEnd = m.now()
}

// handleRecognizerState restarts continuous recognition when it idles in a
// background mode and refreshes the idle presentation.
func (m *Machine) handleRecognizerState(ctx context.Context, state RecognizerState) {
	mode := m.session.Mode
	if state == RecognizerIdle && mode.IsBackground() {
		m.startContinuous(ctx)
	}

	m.deps.Presenter.SetIndicator(!mode.IsBackground())

	if mode == BackgroundDefault {
		m.show(ctx, m.Greeting())
	}
}

func (m *Machine) handleTrackEnded(ctx context.Context) {
	if !m.session.Mode.IsMedia() || m.deps.Playlist.Len() == 0 {
		return
	}
	m.session.TrackIndex = m.deps.Playlist.Next(m.session.TrackIndex)
	if err := m.playCurrent(ctx); err != nil {
		m.logger.Warn("failed to advance playlist", "error", err)
	}
}

func (m *Machine) handleMediaState(state media.State) {
	switch state {
	case media.StatePlaying:
		track, err := m.deps.Playlist.At(m.session.TrackIndex)
		if err != nil {
			return
		}
		title, artist := track.Metadata()
		m.deps.Presenter.SetMediaText(title, artist)
	case media.StatePaused:
		m.deps.Presenter.SetMediaText("Paused", "")
	case media.StateBuffering:
		m.deps.Presenter.SetMediaText("Loading media", "")
	}
}

func (m *Machine) handleUIAction(ctx context.Context, action Action, value int) {
	m.logger.Debug("ui action", "action", action, "value", value)

	switch action {
	case ActionPlay:
		if m.deps.Media.State() != media.StatePlaying {
			m.logIfErr("play", m.deps.Media.Play(ctx))
		}
	case ActionStop:
		if m.deps.Media.State() == media.StatePlaying {
			m.logIfErr("pause", m.deps.Media.Pause(ctx))
		}
	case ActionNext, ActionPrevious:
		if !m.session.Mode.IsMedia() || m.deps.Playlist.Len() == 0 {
			return
		}
		m.logIfErr("pause", m.deps.Media.Pause(ctx))
		if action == ActionNext {
			m.session.TrackIndex = m.deps.Playlist.Next(m.session.TrackIndex)
		} else {
			m.session.TrackIndex = m.deps.Playlist.Previous(m.session.TrackIndex)
		}
		m.logIfErr("play track", m.playCurrent(ctx))
	case ActionClose:
		if m.session.Mode.IsMedia() {
			m.session.Mode = m.closePlayer(ctx)
		}
	case ActionVolume:
		m.applyVolume(ctx, clampVolume(value))
	case ActionStopwatchStart, ActionStopwatchStop, ActionStopwatchReset:
		if m.deps.Stopwatch == nil {
			return
		}
		switch action {
		case ActionStopwatchStart:
			m.deps.Stopwatch.Start()
		case ActionStopwatchStop:
			m.deps.Stopwatch.Stop()
		default:
			m.deps.Stopwatch.Reset()
		}
	default:
		m.logger.Warn("unknown ui action", "action", action)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (m *Machine) recognizeOptions(grammar string) RecognizeOptions {
	return RecognizeOptions{
		Grammar:        grammar,
		InitialSilence: m.cfg.InitialSilence,
		EndSilence:     m.cfg.EndSilence,
	}
}

func (m *Machine) say(ctx context.Context, text string) {
	if err := m.deps.Voice.SpeakAndShow(ctx, text); err != nil {
		m.logger.Warn("failed to speak", "text", text, "error", err)
	}
}

func (m *Machine) show(ctx context.Context, text string) {
	if err := m.deps.Voice.ShowOnly(ctx, text); err != nil {
		m.logger.Warn("failed to show text", "text", text, "error", err)
	}
}

func (m *Machine) startContinuous(ctx context.Context) {
	if err := m.deps.Recognizer.StartContinuous(ctx); err != nil {
		m.logger.Warn("failed to start continuous recognition", "error", err)
	}
}

func (m *Machine) applyVolume(ctx context.Context, volume int) {
	if err := m.deps.Media.SetVolume(ctx, volume); err != nil {
		m.logger.Warn("failed to set volume", "volume", volume, "error", err)
	}
	m.deps.Presenter.SetVolume(volume)
}

// playCurrent loads and plays the track at the session's index.
func (m *Machine) playCurrent(ctx context.Context) error {
	track, err := m.deps.Playlist.At(m.session.TrackIndex)
	if err != nil {
		return err
	}
	if err := m.deps.Media.Load(ctx, track); err != nil {
		return err
	}
	return m.deps.Media.Play(ctx)
}

// closePlayer stops the music and returns to the default view.
func (m *Machine) closePlayer(ctx context.Context) Mode {
	m.logIfErr("pause", m.deps.Media.Pause(ctx))
	m.session.TrackIndex = 0
	m.deps.Presenter.ShowDefaultView()
	return BackgroundDefault
}

func (m *Machine) logIfErr(op string, err error) {
	if err != nil {
		m.logger.Warn("media operation failed", "op", op, "error", err)
	}
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
