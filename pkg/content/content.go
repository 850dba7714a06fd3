// Package content fetches the web content the assistant reads aloud:
// jokes, quotes, weather, encyclopedia snippets, recipes and calendar events.
//
// Every provider performs a single request per call and parses the
// provider's JSON response shape. Nothing is retried.
package content

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-alan/internal/httpc"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when a provider requires credentials.
	ErrNoAPIKey = errors.New("content: API key required")

	// ErrEmptyResponse is returned when a provider answered without content.
	ErrEmptyResponse = errors.New("content: empty response")

	// ErrNoRecipe is returned when a recipe search has no hits.
	ErrNoRecipe = errors.New("content: no recipe found")

	// ErrNotAuthorized is returned when the calendar has no OAuth token.
	ErrNotAuthorized = errors.New("content: calendar not authorized")
)

// APIError represents an error response from a content API.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("content [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized returns true for authentication failures (HTTP 401/403).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("content [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context. HTTP status failures
// become an *APIError.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var se *httpc.StatusError
	if errors.As(err, &se) {
		err = &APIError{StatusCode: se.StatusCode, Message: se.Body, Provider: provider}
	}
	return &ProviderError{Provider: provider, Err: err}
}

// Config holds shared provider settings.
// Use functional options (WithXxx) to set these values.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithBaseURL overrides the provider's API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithTimeout uses a dedicated client with the given request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.HTTPClient = httpc.NewClient(d)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

func newConfig(defaultBase string, opts []Option) *Config {
	cfg := &Config{
		BaseURL:    defaultBase,
		HTTPClient: httpc.Client,
		Logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
