package content

import (
	"context"
	"strings"

	"github.com/teslashibe/go-alan/internal/httpc"
)

const (
	wikipediaURL      = "https://en.wikipedia.org"
	providerWikipedia = "wikipedia"
)

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// Wikipedia reads the summary of a random article.
type Wikipedia struct {
	cfg *Config
}

// NewWikipedia creates an encyclopedia provider.
func NewWikipedia(opts ...Option) *Wikipedia {
	return &Wikipedia{cfg: newConfig(wikipediaURL, opts)}
}

// Random returns a short cleaned snippet from a random article.
func (w *Wikipedia) Random(ctx context.Context) (string, error) {
	var resp summaryResponse
	endpoint := strings.TrimRight(w.cfg.BaseURL, "/") + "/api/rest_v1/page/random/summary"
	if err := httpc.GetJSON(ctx, w.cfg.HTTPClient, endpoint, &resp); err != nil {
		return "", WrapError(providerWikipedia, err)
	}

	text := CleanExtract(resp.Extract)
	if text == "" {
		return "", WrapError(providerWikipedia, ErrEmptyResponse)
	}
	w.cfg.Logger.Debug("encyclopedia snippet", "title", resp.Title)
	return text, nil
}

// CleanExtract shapes article text for speech: bracketed and parenthetical
// asides (nested) are removed, HTML-escaped brackets are decoded first so
// they are removed too, whitespace is collapsed and the text is cut after
// the second sentence-ending period.
func CleanExtract(s string) string {
	s = strings.NewReplacer("&#91;", "[", "&#93;", "]").Replace(s)

	var b strings.Builder
	depth := 0
	periods := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{', '<':
			depth++
			continue
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth > 0 {
			continue
		}
		b.WriteRune(r)
		if r == '.' {
			periods++
			if periods == 2 {
				break
			}
		}
	}

	out := strings.Join(strings.Fields(b.String()), " ")
	// Removing an aside can leave "word ," or "word ."
	out = strings.NewReplacer(" ,", ",", " .", ".").Replace(out)
	return strings.TrimSpace(out)
}
