package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Default values for the relay configuration.
const (
	DefaultPort          = 8080
	DefaultTopicName     = "notifications"
	DefaultMaxBodyBytes  = 10 << 20
	DefaultStaticDir     = "dist"
	DefaultGreetingDelay = time.Second
	DefaultKafkaGroupID  = "orderrelay"
	DefaultMQTTClientID  = "orderrelay"
)

// reservedTopics are paths the relay already serves; a topic may not shadow them.
var reservedTopics = map[string]bool{
	"healthz": true,
	"metrics": true,
	"ws":      true,
}

// Config holds the relay configuration parsed from the `server:` section of
// config.yaml. Every field can also be set from the environment.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all relay settings.
type ServerConfig struct {
	// Port is the HTTP and WebSocket listen port (default 8080).
	Port int `yaml:"port" env:"PORT"`

	// TopicName is the path segment publishers POST to (default "notifications").
	TopicName string `yaml:"topic_name" env:"TOPIC_NAME"`

	// MaxBodyBytes caps an inbound event body (default 10MB).
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`

	// StaticDir holds a prebuilt UI. When the directory exists it is served
	// with index.html fallback; otherwise the UI is assumed to run elsewhere.
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`

	// GreetingDelay is how long after connect the test message is sent.
	GreetingDelay time.Duration `yaml:"greeting_delay" env:"GREETING_DELAY"`

	Log   LogConfig   `yaml:"log"`
	Kafka KafkaConfig `yaml:"kafka"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
}

// LogConfig controls the relay's structured logging. Level is hot-reloadable.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

// KafkaConfig enables the Kafka ingest. Leaving Brokers empty disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
}

// Enabled reports whether the Kafka ingest should start.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

// MQTTConfig enables the MQTT ingest. Leaving BrokerURL empty disables it.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url" env:"MQTT_BROKER_URL"`
	Topic     string `yaml:"topic" env:"MQTT_TOPIC"`
	ClientID  string `yaml:"client_id" env:"MQTT_CLIENT_ID"`
	QoS       byte   `yaml:"qos" env:"MQTT_QOS"`
	Username  string `yaml:"username" env:"MQTT_USERNAME"`
	// PasswordEnv names the environment variable holding the broker password.
	PasswordEnv string `yaml:"password_env"`
}

// Enabled reports whether the MQTT ingest should start.
func (m MQTTConfig) Enabled() bool { return m.BrokerURL != "" }

// Password returns the broker password resolved from the environment.
func (m MQTTConfig) Password() string {
	if m.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(m.PasswordEnv)
}

// Load reads the config file at path (if path is non-empty), applies
// environment overrides, and validates the result. Missing fields are filled
// with defaults first, so an empty path yields an environment-only config.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("server config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("server config: parse yaml: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("server config: read env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          DefaultPort,
			TopicName:     DefaultTopicName,
			MaxBodyBytes:  DefaultMaxBodyBytes,
			StaticDir:     DefaultStaticDir,
			GreetingDelay: DefaultGreetingDelay,
			Log:           LogConfig{Level: "info"},
			Kafka:         KafkaConfig{GroupID: DefaultKafkaGroupID},
			MQTT:          MQTTConfig{ClientID: DefaultMQTTClientID},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", s.Port)
	}
	if s.TopicName == "" {
		return errors.New("server.topic_name must not be empty")
	}
	if strings.ContainsAny(s.TopicName, "/?#{}* ") {
		return fmt.Errorf("server.topic_name %q must be a single path segment", s.TopicName)
	}
	if reservedTopics[s.TopicName] {
		return fmt.Errorf("server.topic_name %q collides with a built-in route", s.TopicName)
	}
	if s.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if s.GreetingDelay < 0 {
		return errors.New("server.greeting_delay must not be negative")
	}
	if s.Kafka.Enabled() && s.Kafka.Topic == "" {
		return errors.New("server.kafka.topic is required when brokers are set")
	}
	if s.MQTT.Enabled() {
		if s.MQTT.Topic == "" {
			return errors.New("server.mqtt.topic is required when broker_url is set")
		}
		if s.MQTT.QoS > 2 {
			return fmt.Errorf("server.mqtt.qos %d unknown: want 0|1|2", s.MQTT.QoS)
		}
	}
	return nil
}
