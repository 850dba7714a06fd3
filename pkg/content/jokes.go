package content

import (
	"context"
	"strings"

	"github.com/teslashibe/go-alan/internal/httpc"
)

const (
	jokesURL      = "https://icanhazdadjoke.com/"
	providerJokes = "icanhazdadjoke"
)

// Jokes fetches a random dad joke as plain text.
type Jokes struct {
	cfg *Config
}

// NewJokes creates a joke provider.
func NewJokes(opts ...Option) *Jokes {
	return &Jokes{cfg: newConfig(jokesURL, opts)}
}

// Joke returns one joke.
func (j *Jokes) Joke(ctx context.Context) (string, error) {
	text, err := httpc.GetText(ctx, j.cfg.HTTPClient, j.cfg.BaseURL, map[string]string{"Accept": "text/plain"})
	if err != nil {
		return "", WrapError(providerJokes, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", WrapError(providerJokes, ErrEmptyResponse)
	}
	return text, nil
}
