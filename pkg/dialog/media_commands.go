package dialog

import (
	"context"

	"github.com/teslashibe/go-alan/pkg/media"
)

const (
	volumeStep = 20
	volumeMax  = 100
)

func (m *Machine) registerMediaCommands(t *Table) {
	t.Register(ListeningMedia, "close", m.mediaClose, "close")
	t.Register(ListeningMedia, "pause", m.mediaStop, "stop")
	t.Register(ListeningMedia, "play", m.mediaPlay, "play")
	t.Register(ListeningMedia, "volume_up", m.mediaVolumeUp, "volume up")
	t.Register(ListeningMedia, "volume_down", m.mediaVolumeDown, "volume down")
	t.Register(ListeningMedia, "next", m.mediaNext, "next")
	t.Register(ListeningMedia, "previous", m.mediaPrevious, "previous")
}

func (m *Machine) mediaClose(ctx context.Context, _ string) Mode {
	return m.closePlayer(ctx)
}

func (m *Machine) mediaStop(ctx context.Context, _ string) Mode {
	if m.deps.Media.State() == media.StatePaused {
		m.say(ctx, "I'm sorry, the music player is already paused.")
	} else {
		m.logIfErr("pause", m.deps.Media.Pause(ctx))
	}
	return BackgroundMedia
}

func (m *Machine) mediaPlay(ctx context.Context, _ string) Mode {
	if m.deps.Media.State() == media.StatePlaying {
		m.say(ctx, "I'm sorry, the music player is already playing.")
	} else {
		m.logIfErr("play", m.deps.Media.Play(ctx))
	}
	return BackgroundMedia
}

// Volume commands adjust the saved volume; it is applied when the turn
// restores playback volume.
func (m *Machine) mediaVolumeUp(_ context.Context, _ string) Mode {
	if m.session.SavedVolume <= volumeMax-volumeStep {
		m.session.SavedVolume += volumeStep
	}
	return BackgroundMedia
}

func (m *Machine) mediaVolumeDown(_ context.Context, _ string) Mode {
	if m.session.SavedVolume >= volumeStep {
		m.session.SavedVolume -= volumeStep
	}
	return BackgroundMedia
}

func (m *Machine) mediaNext(ctx context.Context, _ string) Mode {
	return m.skipTrack(ctx, m.deps.Playlist.Next)
}

func (m *Machine) mediaPrevious(ctx context.Context, _ string) Mode {
	return m.skipTrack(ctx, m.deps.Playlist.Previous)
}

func (m *Machine) skipTrack(ctx context.Context, step func(int) int) Mode {
	m.logIfErr("pause", m.deps.Media.Pause(ctx))
	m.session.TrackIndex = step(m.session.TrackIndex)
	if err := m.playCurrent(ctx); err != nil {
		m.logger.Warn("failed to play track", "index", m.session.TrackIndex, "error", err)
		m.say(ctx, ApologyCollaborator)
	}
	return BackgroundMedia
}
