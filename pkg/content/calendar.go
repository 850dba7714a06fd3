package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const providerCalendar = "google-calendar"

// Event is a calendar entry for today.
type Event struct {
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	AllDay  bool      `json:"all_day"`
}

// Spoken renders the event for speech.
func (e Event) Spoken() string {
	if e.AllDay {
		return fmt.Sprintf("All day: %s.", e.Summary)
	}
	return fmt.Sprintf("At %s: %s.", e.Start.Format("15:04"), e.Summary)
}

// CalendarConfig configures the Google Calendar provider.
type CalendarConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "http://localhost:8080/api/calendar/callback"
	TokenPath    string

	// ServiceOptions are extra client options, used to point the
	// provider at a test server.
	ServiceOptions []option.ClientOption
}

// GoogleCalendar reads today's events from the primary Google calendar.
// Authorization uses the OAuth2 web flow; the token is kept on disk.
type GoogleCalendar struct {
	config    *oauth2.Config
	tokenPath string
	extra     []option.ClientOption
	logger    *slog.Logger

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewGoogleCalendar creates the provider and loads a stored token if present.
func NewGoogleCalendar(cfg CalendarConfig, logger *slog.Logger) (*GoogleCalendar, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(homeDir, ".alan", "google_token.json")
	}

	g := &GoogleCalendar{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		tokenPath: cfg.TokenPath,
		extra:     cfg.ServiceOptions,
		logger:    logger.With("component", "calendar"),
	}

	if err := g.loadToken(); err != nil && !os.IsNotExist(err) {
		g.logger.Warn("ignoring unreadable calendar token", "path", g.tokenPath, "error", err)
	}
	return g, nil
}

// IsAuthenticated reports whether a token is available.
func (g *GoogleCalendar) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != nil
}

// AuthURL returns the consent page URL.
func (g *GoogleCalendar) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code and stores the token.
func (g *GoogleCalendar) HandleCallback(ctx context.Context, code string) error {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return WrapError(providerCalendar, fmt.Errorf("failed to exchange code for token: %w", err))
	}

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	if err := g.saveToken(token); err != nil {
		g.logger.Warn("failed to save calendar token", "error", err)
	}
	return nil
}

// Today returns the events on now's date, ordered by start time.
func (g *GoogleCalendar) Today(ctx context.Context, now time.Time) ([]Event, error) {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()
	if token == nil {
		return nil, WrapError(providerCalendar, ErrNotAuthorized)
	}

	opts := append([]option.ClientOption{
		option.WithTokenSource(g.config.TokenSource(ctx, token)),
	}, g.extra...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, WrapError(providerCalendar, fmt.Errorf("failed to create calendar service: %w", err))
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	list, err := svc.Events.List("primary").
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, WrapError(providerCalendar, err)
	}

	events := make([]Event, 0, len(list.Items))
	for _, item := range list.Items {
		ev := Event{Summary: item.Summary}
		if item.Start != nil {
			if item.Start.DateTime != "" {
				if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
					ev.Start = t.In(now.Location())
				}
			} else if item.Start.Date != "" {
				ev.AllDay = true
				if t, err := time.ParseInLocation("2006-01-02", item.Start.Date, now.Location()); err == nil {
					ev.Start = t
				}
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

// loadToken loads the OAuth token from disk.
func (g *GoogleCalendar) loadToken() error {
	data, err := os.ReadFile(g.tokenPath)
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}

	g.mu.Lock()
	g.token = &token
	g.mu.Unlock()
	return nil
}

// saveToken saves the OAuth token to disk.
func (g *GoogleCalendar) saveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(g.tokenPath), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(g.tokenPath, data, 0o600)
}
