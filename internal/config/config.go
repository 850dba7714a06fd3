// Package config loads go-alan configuration from an optional YAML file,
// ALAN_* environment variables and the well-known provider key variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultName       = "Alan"
	DefaultWakePhrase = "hey alan"
	DefaultPort       = "8080"

	DefaultInitialSilence = 10 * time.Second
	DefaultEndSilence     = 5 * time.Second

	DefaultMusicVolume = 35
	DefaultDuckVolume  = 10
)

// Config holds all configuration for the assistant.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Speech    SpeechConfig    `mapstructure:"speech" yaml:"speech"`
	Media     MediaConfig     `mapstructure:"media" yaml:"media"`
	Content   ContentConfig   `mapstructure:"content" yaml:"content"`
	Calendar  CalendarConfig  `mapstructure:"calendar" yaml:"calendar"`
}

// AssistantConfig names the assistant and its wake phrase.
type AssistantConfig struct {
	Name       string `mapstructure:"name" yaml:"name"`
	WakePhrase string `mapstructure:"wake_phrase" yaml:"wake_phrase"`
}

// ServerConfig configures the dashboard and device endpoint.
type ServerConfig struct {
	Port      string `mapstructure:"port" yaml:"port"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

// SpeechConfig configures recognition timeouts and server-side synthesis.
type SpeechConfig struct {
	InitialSilence time.Duration `mapstructure:"initial_silence" yaml:"initial_silence"`
	EndSilence     time.Duration `mapstructure:"end_silence" yaml:"end_silence"`

	// TTS is "device" (the device speaks text itself) or "openai".
	TTS       string `mapstructure:"tts" yaml:"tts"`
	TTSVoice  string `mapstructure:"tts_voice" yaml:"tts_voice"`
	OpenAIKey string `mapstructure:"openai_key" yaml:"openai_key"`
}

// MediaConfig configures the music library.
type MediaConfig struct {
	MusicDir      string   `mapstructure:"music_dir" yaml:"music_dir"`
	Extensions    []string `mapstructure:"extensions" yaml:"extensions"`
	DefaultVolume int      `mapstructure:"default_volume" yaml:"default_volume"`
	DuckVolume    int      `mapstructure:"duck_volume" yaml:"duck_volume"`
}

// ContentConfig holds content provider credentials.
type ContentConfig struct {
	OpenWeatherKey string        `mapstructure:"openweather_key" yaml:"openweather_key"`
	EdamamAppID    string        `mapstructure:"edamam_app_id" yaml:"edamam_app_id"`
	EdamamAppKey   string        `mapstructure:"edamam_app_key" yaml:"edamam_app_key"`
	Latitude       float64       `mapstructure:"latitude" yaml:"latitude"`
	Longitude      float64       `mapstructure:"longitude" yaml:"longitude"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CalendarConfig configures the optional Google Calendar integration.
type CalendarConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url" yaml:"redirect_url"`
	TokenPath    string `mapstructure:"token_path" yaml:"token_path"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Assistant: AssistantConfig{
			Name:       DefaultName,
			WakePhrase: DefaultWakePhrase,
		},
		Server: ServerConfig{
			Port:      DefaultPort,
			StaticDir: "./web",
		},
		Speech: SpeechConfig{
			InitialSilence: DefaultInitialSilence,
			EndSilence:     DefaultEndSilence,
			TTS:            "device",
			TTSVoice:       "onyx",
		},
		Media: MediaConfig{
			MusicDir:      "./music",
			Extensions:    []string{".mp3", ".wma"},
			DefaultVolume: DefaultMusicVolume,
			DuckVolume:    DefaultDuckVolume,
		},
		Content: ContentConfig{
			Timeout: 15 * time.Second,
		},
		Calendar: CalendarConfig{
			RedirectURL: "http://localhost:" + DefaultPort + "/api/calendar/callback",
			TokenPath:   filepath.Join(homeDir(), ".alan", "google_token.json"),
		},
	}
}

// Load reads configuration. An empty path searches ./alan.yaml and
// ~/.alan/alan.yaml; a missing file there is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("alan")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(homeDir(), ".alan"))
	}
	v.SetConfigType("yaml")

	// Example: ALAN_SPEECH_INITIAL_SILENCE=8s
	v.SetEnvPrefix("ALAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known provider variables
	_ = v.BindEnv("speech.openai_key", "ALAN_SPEECH_OPENAI_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("content.openweather_key", "ALAN_CONTENT_OPENWEATHER_KEY", "OPENWEATHER_API_KEY")
	_ = v.BindEnv("content.edamam_app_id", "ALAN_CONTENT_EDAMAM_APP_ID", "EDAMAM_APP_ID")
	_ = v.BindEnv("content.edamam_app_key", "ALAN_CONTENT_EDAMAM_APP_KEY", "EDAMAM_APP_KEY")
	_ = v.BindEnv("calendar.client_id", "ALAN_CALENDAR_CLIENT_ID", "GOOGLE_CLIENT_ID")
	_ = v.BindEnv("calendar.client_secret", "ALAN_CALENDAR_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Media.MusicDir = expandPath(cfg.Media.MusicDir)
	cfg.Calendar.TokenPath = expandPath(cfg.Calendar.TokenPath)
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("assistant.name", d.Assistant.Name)
	v.SetDefault("assistant.wake_phrase", d.Assistant.WakePhrase)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("speech.initial_silence", d.Speech.InitialSilence)
	v.SetDefault("speech.end_silence", d.Speech.EndSilence)
	v.SetDefault("speech.tts", d.Speech.TTS)
	v.SetDefault("speech.tts_voice", d.Speech.TTSVoice)
	v.SetDefault("speech.openai_key", "")
	v.SetDefault("media.music_dir", d.Media.MusicDir)
	v.SetDefault("media.extensions", d.Media.Extensions)
	v.SetDefault("media.default_volume", d.Media.DefaultVolume)
	v.SetDefault("media.duck_volume", d.Media.DuckVolume)
	v.SetDefault("content.openweather_key", "")
	v.SetDefault("content.edamam_app_id", "")
	v.SetDefault("content.edamam_app_key", "")
	v.SetDefault("content.latitude", 0.0)
	v.SetDefault("content.longitude", 0.0)
	v.SetDefault("content.timeout", d.Content.Timeout)
	v.SetDefault("calendar.enabled", d.Calendar.Enabled)
	v.SetDefault("calendar.client_id", "")
	v.SetDefault("calendar.client_secret", "")
	v.SetDefault("calendar.redirect_url", d.Calendar.RedirectURL)
	v.SetDefault("calendar.token_path", d.Calendar.TokenPath)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Assistant.WakePhrase) == "" {
		return &ConfigError{Field: "assistant.wake_phrase", Message: "wake phrase must not be empty"}
	}
	if c.Speech.InitialSilence <= 0 || c.Speech.EndSilence <= 0 {
		return &ConfigError{Field: "speech", Message: "recognition silence timeouts must be finite and positive"}
	}
	switch c.Speech.TTS {
	case "device":
	case "openai":
		if c.Speech.OpenAIKey == "" {
			return &ConfigError{Field: "speech.openai_key", Message: "OPENAI_API_KEY is required for openai speech synthesis"}
		}
	default:
		return &ConfigError{Field: "speech.tts", Message: "unknown speech synthesis mode: " + c.Speech.TTS}
	}
	if !validVolume(c.Media.DefaultVolume) || !validVolume(c.Media.DuckVolume) {
		return &ConfigError{Field: "media", Message: "volumes must be between 0 and 100"}
	}
	if c.Calendar.Enabled && (c.Calendar.ClientID == "" || c.Calendar.ClientSecret == "") {
		return &ConfigError{Field: "calendar", Message: "GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required when the calendar is enabled"}
	}
	return nil
}

// Redacted returns a copy with secrets masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.Speech.OpenAIKey = mask(c.Speech.OpenAIKey)
	c.Content.OpenWeatherKey = mask(c.Content.OpenWeatherKey)
	c.Content.EdamamAppKey = mask(c.Content.EdamamAppKey)
	c.Calendar.ClientSecret = mask(c.Calendar.ClientSecret)
	return c
}

// YAML renders the configuration with secrets masked.
func (c Config) YAML() (string, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func validVolume(v int) bool {
	return v >= 0 && v <= 100
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func expandPath(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}
