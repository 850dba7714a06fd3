package dialog

import "fmt"

// Mode is the assistant's dialog state. Background modes wait for the wake
// phrase; listening modes last for exactly one command turn.
type Mode int

const (
	BackgroundDefault Mode = iota
	ListeningDefault
	BackgroundMedia
	ListeningMedia
	BackgroundStopwatch
	ListeningStopwatch
)

var modeNames = map[Mode]string{
	BackgroundDefault:   "background_default",
	ListeningDefault:    "listening_default",
	BackgroundMedia:     "background_media",
	ListeningMedia:      "listening_media",
	BackgroundStopwatch: "background_stopwatch",
	ListeningStopwatch:  "listening_stopwatch",
}

// String returns the snake_case mode name.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(b []byte) error {
	for mode, name := range modeNames {
		if name == string(b) {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("dialog: unknown mode %q", b)
}

// IsBackground reports whether continuous wake-phrase detection runs in m.
func (m Mode) IsBackground() bool {
	switch m {
	case BackgroundDefault, BackgroundMedia, BackgroundStopwatch:
		return true
	}
	return false
}

// IsMedia reports whether m is a music player mode.
func (m Mode) IsMedia() bool {
	return m == BackgroundMedia || m == ListeningMedia
}

// Listening returns the listening counterpart of m.
func (m Mode) Listening() Mode {
	switch m {
	case BackgroundDefault:
		return ListeningDefault
	case BackgroundMedia:
		return ListeningMedia
	case BackgroundStopwatch:
		return ListeningStopwatch
	}
	return m
}

// Background returns the background counterpart of m.
func (m Mode) Background() Mode {
	switch m {
	case ListeningDefault:
		return BackgroundDefault
	case ListeningMedia:
		return BackgroundMedia
	case ListeningStopwatch:
		return BackgroundStopwatch
	}
	return m
}

// Session is the assistant state owned by the machine goroutine.
type Session struct {
	Mode        Mode `json:"mode"`
	SavedVolume int  `json:"saved_volume"`
	TrackIndex  int  `json:"track_index"`
}
