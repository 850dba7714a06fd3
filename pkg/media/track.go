// Package media describes music tracks, the playlist and player states.
package media

import (
	"path/filepath"
	"strings"
)

// Track is a music file name such as "Title - Artist.mp3".
// Metadata is parsed from the name each time it is needed.
type Track string

// Name returns the base file name.
func (t Track) Name() string {
	return filepath.Base(string(t))
}

// Metadata splits the name into title and artist. The extension is removed
// at the last '.', then the remainder is split at the last '-'. Without a
// hyphen after the first character the whole name is the title.
func (t Track) Metadata() (title, artist string) {
	name := t.Name()
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}

	i := strings.LastIndex(name, "-")
	if i <= 0 {
		return name, ""
	}
	return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
}

// State is the player state reported by the media controller.
type State string

const (
	StateStopped   State = "stopped"
	StatePlaying   State = "playing"
	StatePaused    State = "paused"
	StateBuffering State = "buffering"
)

// ParseState maps a device state name to a State. Unknown names are stopped.
func ParseState(s string) State {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case StatePlaying:
		return StatePlaying
	case StatePaused:
		return StatePaused
	case StateBuffering:
		return StateBuffering
	default:
		return StateStopped
	}
}
