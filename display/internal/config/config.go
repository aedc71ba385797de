package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultRelayURL        = "http://localhost:8080"
	DefaultTopicName       = "notifications"
	DefaultBufferSize      = 1000
	DefaultStatusPoll      = 2 * time.Second
	DefaultTimestampFormat = "15:04:05"
	DefaultWarningTTL      = 5 * time.Second
)

// Config holds the display configuration parsed from the `display:` section
// of config.yaml. The `server:` key in the same file is ignored.
type Config struct {
	Display DisplayConfig `yaml:"display"`
}

// DisplayConfig holds all display-side settings.
type DisplayConfig struct {
	// RelayURL is the relay's origin. The channel is dialled at its root.
	RelayURL string `yaml:"relay_url" env:"RELAY_URL"`

	// TopicName is the relay's inbound path segment, used by the test
	// publisher.
	TopicName string `yaml:"topic_name" env:"TOPIC_NAME"`

	// BufferSize bounds the Message Buffer (default 1000).
	BufferSize int `yaml:"buffer_size"`

	// StatusPoll is how often the header re-reads the connection status.
	StatusPoll time.Duration `yaml:"status_poll"`

	// TimestampFormat is the Go layout used to stamp received notifications.
	TimestampFormat string `yaml:"timestamp_format"`

	// Reconnect redials after a disconnect the display did not initiate.
	Reconnect bool `yaml:"reconnect"`

	// WarningTTL is how long a warning stays on screen.
	WarningTTL time.Duration `yaml:"warning_ttl"`

	// LogLevel and LogFile control the display's own log. Without a file
	// nothing is logged, since the terminal belongs to the UI.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile  string `yaml:"log_file" env:"DISPLAY_LOG_FILE"`

	// Webhooks additionally receive every warning.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one warning delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads the config file at path (if non-empty), applies environment
// overrides, and validates. An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("display config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("display config: parse yaml: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("display config: read env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("display config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Display: DisplayConfig{
			RelayURL:        DefaultRelayURL,
			TopicName:       DefaultTopicName,
			BufferSize:      DefaultBufferSize,
			StatusPoll:      DefaultStatusPoll,
			TimestampFormat: DefaultTimestampFormat,
			Reconnect:       true,
			WarningTTL:      DefaultWarningTTL,
			LogLevel:        "info",
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	d := cfg.Display
	u, err := url.Parse(d.RelayURL)
	if err != nil {
		return fmt.Errorf("display.relay_url: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("display.relay_url scheme %q unknown: want http|https|ws|wss", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("display.relay_url must include a host")
	}
	if d.TopicName == "" {
		return errors.New("display.topic_name must not be empty")
	}
	if d.BufferSize < 2 {
		return fmt.Errorf("display.buffer_size %d must be at least 2", d.BufferSize)
	}
	if d.StatusPoll <= 0 {
		return errors.New("display.status_poll must be positive")
	}
	if d.TimestampFormat == "" {
		return errors.New("display.timestamp_format must not be empty")
	}
	for i, w := range d.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("display.webhooks[%d].type %q unknown: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}
