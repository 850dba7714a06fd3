package content

import (
	"context"
	"strings"

	"github.com/teslashibe/go-alan/internal/httpc"
)

const (
	quotesURL      = "https://quotes.rest"
	providerQuotes = "quotes.rest"
)

// Quote is a quote of the day.
type Quote struct {
	Text   string `json:"quote"`
	Author string `json:"author"`
}

type qodResponse struct {
	Contents struct {
		Quotes []Quote `json:"quotes"`
	} `json:"contents"`
}

// Quotes fetches the quote of the day.
type Quotes struct {
	cfg *Config
}

// NewQuotes creates a quote provider.
func NewQuotes(opts ...Option) *Quotes {
	return &Quotes{cfg: newConfig(quotesURL, opts)}
}

// QuoteOfTheDay returns today's quote.
func (q *Quotes) QuoteOfTheDay(ctx context.Context) (Quote, error) {
	var resp qodResponse
	if err := httpc.GetJSON(ctx, q.cfg.HTTPClient, strings.TrimRight(q.cfg.BaseURL, "/")+"/qod.json", &resp); err != nil {
		return Quote{}, WrapError(providerQuotes, err)
	}
	if len(resp.Contents.Quotes) == 0 || strings.TrimSpace(resp.Contents.Quotes[0].Text) == "" {
		return Quote{}, WrapError(providerQuotes, ErrEmptyResponse)
	}
	return resp.Contents.Quotes[0], nil
}
