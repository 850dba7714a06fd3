package dialog

import (
	"context"
	"time"

	"github.com/teslashibe/go-alan/pkg/content"
	"github.com/teslashibe/go-alan/pkg/media"
)

// RecognizeOptions bounds a single-utterance recognition.
type RecognizeOptions struct {
	// Grammar constrains recognition. Empty means free dictation.
	Grammar        string
	InitialSilence time.Duration
	EndSilence     time.Duration
}

// Recognizer is the speech recognition gateway.
// RecognizeOnce returns "" on silence or timeout.
type Recognizer interface {
	StartContinuous(ctx context.Context) error
	StopContinuous(ctx context.Context) error
	RecognizeOnce(ctx context.Context, opts RecognizeOptions) (string, error)
}

// Voice renders prompts as speech and on-screen text.
type Voice interface {
	SpeakAndShow(ctx context.Context, text string) error
	ShowOnly(ctx context.Context, text string) error
}

// Speaker turns text into audible speech.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Display shows the assistant's output text.
type Display interface {
	ShowText(text string)
}

// Media controls music playback.
type Media interface {
	Load(ctx context.Context, track media.Track) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	Volume() int
	State() media.State
}

// Presenter switches views and updates on-screen widgets.
type Presenter interface {
	ShowDefaultView()
	ShowMediaView()
	ShowWeatherView(w content.Weather)
	ShowStopwatchView()
	ShowRecipeView(r content.Recipe)
	SetIndicator(animated bool)
	SetMediaText(title, artist string)
	SetVolume(volume int)
}

// Stopwatch is driven by stopwatch-mode commands.
type Stopwatch interface {
	Start()
	Stop()
	Reset()
}

// Content providers.
type (
	Jokes interface {
		Joke(ctx context.Context) (string, error)
	}
	Quotes interface {
		QuoteOfTheDay(ctx context.Context) (content.Quote, error)
	}
	Locator interface {
		Locate(ctx context.Context) (content.Position, error)
	}
	Weather interface {
		Current(ctx context.Context, pos content.Position) (content.Weather, error)
	}
	Encyclopedia interface {
		Random(ctx context.Context) (string, error)
	}
	Recipes interface {
		Search(ctx context.Context, dish string) (content.Recipe, error)
	}
	Calendar interface {
		IsAuthenticated() bool
		Today(ctx context.Context, now time.Time) ([]content.Event, error)
	}
)

type voice struct {
	speaker Speaker
	display Display
}

// NewVoice combines a speaker and a display into a Voice.
// The text is shown before it is spoken.
func NewVoice(s Speaker, d Display) Voice {
	return &voice{speaker: s, display: d}
}

func (v *voice) SpeakAndShow(ctx context.Context, text string) error {
	if v.display != nil {
		v.display.ShowText(text)
	}
	if v.speaker == nil {
		return nil
	}
	return v.speaker.Speak(ctx, text)
}

func (v *voice) ShowOnly(_ context.Context, text string) error {
	if v.display != nil {
		v.display.ShowText(text)
	}
	return nil
}
