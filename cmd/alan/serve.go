package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-alan/internal/config"
	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/content"
	"github.com/teslashibe/go-alan/pkg/device"
	"github.com/teslashibe/go-alan/pkg/dialog"
	"github.com/teslashibe/go-alan/pkg/media"
	"github.com/teslashibe/go-alan/pkg/reminder"
	"github.com/teslashibe/go-alan/pkg/tts"
	"github.com/teslashibe/go-alan/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant, the device endpoint and the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log.Init(cfg.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := log.Component("alan")

	playlist, err := media.ScanDir(cfg.Media.MusicDir, cfg.Media.Extensions)
	if err != nil {
		logger.Warn("music library unavailable", "dir", cfg.Media.MusicDir, "error", err)
		playlist = media.NewPlaylist()
	}
	logger.Info("music library loaded", "tracks", playlist.Len())

	server := web.NewServer(web.Config{
		Port:      cfg.Server.Port,
		StaticDir: cfg.Server.StaticDir,
		MusicDir:  cfg.Media.MusicDir,
		Greeting:  dialog.Greeting(cfg.Assistant.Name),
		Debug:     cfg.LogLevel == "debug",
	})

	hubOpts := []device.Option{device.WithTrackPrefix("/media/")}
	if cfg.Speech.TTS == "openai" {
		synth, err := tts.NewOpenAI(
			tts.WithAPIKey(cfg.Speech.OpenAIKey),
			tts.WithVoice(cfg.Speech.TTSVoice),
			tts.WithOutputFormat(tts.EncodingPCM24),
		)
		if err != nil {
			return fmt.Errorf("speech synthesis: %w", err)
		}
		defer synth.Close()
		hubOpts = append(hubOpts, device.WithSynthesizer(synth))
	}
	devices := device.NewHub(hubOpts...)

	deps := dialog.Deps{
		Recognizer: devices,
		Voice:      dialog.NewVoice(devices, server),
		Media:      devices,
		Presenter:  server,
		Stopwatch:  server.Stopwatch(),
		Playlist:   playlist,
		Reminders:  reminder.NewStore(),
	}
	cal, err := wireContent(cfg, &deps)
	if err != nil {
		return err
	}

	machine, err := dialog.New(dialog.Config{
		Name:           cfg.Assistant.Name,
		WakePhrase:     cfg.Assistant.WakePhrase,
		InitialSilence: cfg.Speech.InitialSilence,
		EndSilence:     cfg.Speech.EndSilence,
		DefaultVolume:  cfg.Media.DefaultVolume,
		DuckVolume:     cfg.Media.DuckVolume,
	}, deps)
	if err != nil {
		return err
	}

	server.Attach(machine)
	if cal != nil {
		server.SetCalendar(cal)
	}

	devices.OnPhrase(func(text string, at time.Time) {
		server.AddConversation("user", text)
		machine.PhraseRecognized(text, at)
	})
	devices.OnRecognizerState(machine.IdleStateChanged)
	devices.OnMediaState(machine.MediaStateChanged)
	devices.OnMediaEnded(machine.TrackEnded)

	app := server.App()
	devices.RegisterRoutes(app)
	devices.RegisterAPIRoutes(app.Group("/api"))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version,
			"devices": devices.DeviceCount(),
		})
	})

	logger.Info("alan starting",
		"version", version,
		"wake_phrase", cfg.Assistant.WakePhrase,
		"device_url", "ws://localhost:"+cfg.Server.Port+"/ws/device/<id>",
		"tts", cfg.Speech.TTS,
	)

	go func() {
		if err := machine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dialog machine stopped", "error", err)
		}
	}()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	logger.Info("alan stopped")
	return nil
}

// wireContent sets the content providers the configuration allows. A
// provider without credentials stays nil and its commands apologize.
func wireContent(cfg config.Config, deps *dialog.Deps) (*content.GoogleCalendar, error) {
	opts := []content.Option{
		content.WithTimeout(cfg.Content.Timeout),
		content.WithLogger(log.Component("content")),
	}

	deps.Jokes = content.NewJokes(opts...)
	deps.Quotes = content.NewQuotes(opts...)
	deps.Encyclopedia = content.NewWikipedia(opts...)

	if cfg.Content.Latitude != 0 || cfg.Content.Longitude != 0 {
		deps.Locator = content.FixedLocator{Position: content.Position{
			Lat: cfg.Content.Latitude,
			Lon: cfg.Content.Longitude,
		}}
	} else {
		deps.Locator = content.NewIPLocator(opts...)
	}

	if cfg.Content.OpenWeatherKey != "" {
		weather, err := content.NewOpenWeather(cfg.Content.OpenWeatherKey, opts...)
		if err != nil {
			return nil, err
		}
		deps.Weather = weather
	}

	if cfg.Content.EdamamAppID != "" && cfg.Content.EdamamAppKey != "" {
		recipes, err := content.NewEdamam(cfg.Content.EdamamAppID, cfg.Content.EdamamAppKey, opts...)
		if err != nil {
			return nil, err
		}
		deps.Recipes = recipes
	}

	if !cfg.Calendar.Enabled {
		return nil, nil
	}
	cal, err := content.NewGoogleCalendar(content.CalendarConfig{
		ClientID:     cfg.Calendar.ClientID,
		ClientSecret: cfg.Calendar.ClientSecret,
		RedirectURL:  cfg.Calendar.RedirectURL,
		TokenPath:    cfg.Calendar.TokenPath,
	}, log.Component("calendar"))
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	deps.Calendar = cal
	return cal, nil
}
