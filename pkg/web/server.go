// Package web serves the assistant's dashboard: the views the dialog
// machine switches between, the button and slider actions, and the
// calendar authorization flow.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/content"
	"github.com/teslashibe/go-alan/pkg/dialog"
	"github.com/teslashibe/go-alan/pkg/hub"
	"github.com/teslashibe/go-alan/pkg/stopwatch"
)

// View is the screen currently shown on the dashboard.
type View string

const (
	ViewDefault   View = "default"
	ViewMedia     View = "media"
	ViewWeather   View = "weather"
	ViewStopwatch View = "stopwatch"
	ViewRecipe    View = "recipe"
)

// Status is everything the dashboard renders.
type Status struct {
	View        View             `json:"view"`
	Text        string           `json:"text"`
	Animated    bool             `json:"animated"`
	MediaTitle  string           `json:"media_title"`
	MediaArtist string           `json:"media_artist"`
	Volume      int              `json:"volume"`
	Stopwatch   string           `json:"stopwatch"`
	Weather     *content.Weather `json:"weather,omitempty"`
	Recipe      *content.Recipe  `json:"recipe,omitempty"`
}

// ConversationEntry is one line of the transcript.
type ConversationEntry struct {
	Time    string `json:"time"`
	Role    string `json:"role"` // user, assistant
	Message string `json:"message"`
}

const maxConversation = 100

// Controller receives dashboard actions. *dialog.Machine implements it.
type Controller interface {
	Snapshot(ctx context.Context) (dialog.Session, error)
	UIAction(action dialog.Action, value int)
	ExitRecipe() bool
}

// CalendarAuth runs the calendar OAuth flow.
type CalendarAuth interface {
	IsAuthenticated() bool
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) error
}

// Config configures the server.
type Config struct {
	Port      string
	StaticDir string
	// MusicDir is served under /media so devices can fetch tracks.
	MusicDir string
	// Greeting is shown whenever the default view opens.
	Greeting string
	// Debug enables request logging.
	Debug bool
}

// Server is the dashboard server. It implements dialog.Presenter and
// dialog.Display.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	status   Status
	statusMu sync.RWMutex

	conversation   []ConversationEntry
	conversationMu sync.RWMutex

	statusHub *hub.Hub
	stopwatch *stopwatch.Stopwatch

	mu         sync.RWMutex
	controller Controller
	calendar   CalendarAuth
	oauthState string
}

// NewServer creates the dashboard server and its stopwatch.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:          cfg,
		logger:       log.Component("web"),
		status:       Status{View: ViewDefault, Text: cfg.Greeting, Stopwatch: stopwatch.Format(0)},
		conversation: make([]ConversationEntry, 0, maxConversation),
		statusHub:    hub.New("status"),
		stopwatch:    stopwatch.New(),
	}

	s.stopwatch.OnTick(func(display string) {
		s.update(func(st *Status) { st.Stopwatch = display })
	})

	app := fiber.New(fiber.Config{
		AppName:               "Alan Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/conversation", s.handleGetConversation)
	api.Post("/recipe/exit", s.handleRecipeExit)
	api.Post("/media/volume", s.handleMediaVolume)
	api.Post("/media/:action", s.handleMediaAction)
	api.Post("/stopwatch/:action", s.handleStopwatchAction)
	api.Get("/calendar/auth", s.handleCalendarAuth)
	api.Get("/calendar/callback", s.handleCalendarCallback)

	app.Use("/ws/status", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	if cfg.MusicDir != "" {
		app.Static("/media", cfg.MusicDir)
	}
	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	s.app = app
	return s
}

// App returns the fiber app so other packages can register routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Stopwatch returns the stopwatch shown in the stopwatch view.
func (s *Server) Stopwatch() *stopwatch.Stopwatch {
	return s.stopwatch
}

// Attach sets the controller that receives dashboard actions.
func (s *Server) Attach(c Controller) {
	s.mu.Lock()
	s.controller = c
	s.mu.Unlock()
}

// SetCalendar enables the calendar authorization routes.
func (s *Server) SetCalendar(c CalendarAuth) {
	s.mu.Lock()
	s.calendar = c
	s.mu.Unlock()
}

// Start serves until ctx is done, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.cfg.Port)

	go s.statusHub.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(":" + s.cfg.Port) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Status returns a copy of the dashboard status.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// update mutates the status and broadcasts it.
func (s *Server) update(fn func(*Status)) {
	s.statusMu.Lock()
	fn(&s.status)
	st := s.status
	s.statusMu.Unlock()

	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("failed to broadcast status", "error", err)
	}
}

// AddConversation appends a transcript line.
func (s *Server) AddConversation(role, message string) {
	entry := ConversationEntry{
		Time:    time.Now().Format("15:04:05"),
		Role:    role,
		Message: message,
	}

	s.conversationMu.Lock()
	s.conversation = append(s.conversation, entry)
	if len(s.conversation) > maxConversation {
		s.conversation = s.conversation[1:]
	}
	s.conversationMu.Unlock()
}

// =============================================================================
// dialog.Presenter
// =============================================================================

// ShowDefaultView resets the stopwatch and shows the greeting.
func (s *Server) ShowDefaultView() {
	s.stopwatch.Reset()
	s.update(func(st *Status) {
		st.View = ViewDefault
		st.Text = s.cfg.Greeting
		st.Weather = nil
		st.Recipe = nil
	})
}

func (s *Server) ShowMediaView() {
	s.update(func(st *Status) { st.View = ViewMedia })
}

func (s *Server) ShowWeatherView(w content.Weather) {
	s.update(func(st *Status) {
		st.View = ViewWeather
		st.Weather = &w
	})
}

func (s *Server) ShowStopwatchView() {
	display := s.stopwatch.String()
	s.update(func(st *Status) {
		st.View = ViewStopwatch
		st.Stopwatch = display
	})
}

func (s *Server) ShowRecipeView(r content.Recipe) {
	s.update(func(st *Status) {
		st.View = ViewRecipe
		st.Recipe = &r
	})
}

// SetIndicator animates the listening indicator while a turn runs.
func (s *Server) SetIndicator(animated bool) {
	s.update(func(st *Status) { st.Animated = animated })
}

func (s *Server) SetMediaText(title, artist string) {
	s.update(func(st *Status) {
		st.MediaTitle = title
		st.MediaArtist = artist
	})
}

func (s *Server) SetVolume(volume int) {
	s.update(func(st *Status) { st.Volume = volume })
}

// =============================================================================
// dialog.Display
// =============================================================================

// ShowText shows the assistant's output and records it in the transcript.
func (s *Server) ShowText(text string) {
	s.update(func(st *Status) { st.Text = text })
	s.AddConversation("assistant", text)
}

var (
	_ dialog.Presenter = (*Server)(nil)
	_ dialog.Display   = (*Server)(nil)
)
