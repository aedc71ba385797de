package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Display section only; server section absent.
	p := writeConfig(t, `display:
  relay_url: "http://localhost:8080"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("port: got %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.TopicName != DefaultTopicName {
		t.Errorf("topic_name: got %q, want %q", cfg.Server.TopicName, DefaultTopicName)
	}
	if cfg.Server.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("max_body_bytes: got %d, want %d", cfg.Server.MaxBodyBytes, DefaultMaxBodyBytes)
	}
	if cfg.Server.GreetingDelay != DefaultGreetingDelay {
		t.Errorf("greeting_delay: got %v, want %v", cfg.Server.GreetingDelay, DefaultGreetingDelay)
	}
	if cfg.Server.Kafka.Enabled() || cfg.Server.MQTT.Enabled() {
		t.Error("broker ingest should be disabled by default")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.StaticDir != DefaultStaticDir {
		t.Errorf("static_dir: got %q, want %q", cfg.Server.StaticDir, DefaultStaticDir)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  port: 9091
  topic_name: orders
  max_body_bytes: 1024
  static_dir: ui/dist
  greeting_delay: 250ms
  log:
    level: debug
  kafka:
    brokers: ["k1:9092", "k2:9092"]
    topic: order-events
  mqtt:
    broker_url: tcp://mqtt:1883
    topic: orders/#
    qos: 1
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.Port != 9091 {
		t.Errorf("port: got %d, want 9091", s.Port)
	}
	if s.TopicName != "orders" {
		t.Errorf("topic_name: got %q, want orders", s.TopicName)
	}
	if s.MaxBodyBytes != 1024 {
		t.Errorf("max_body_bytes: got %d, want 1024", s.MaxBodyBytes)
	}
	if s.GreetingDelay != 250*time.Millisecond {
		t.Errorf("greeting_delay: got %v, want 250ms", s.GreetingDelay)
	}
	if !s.Kafka.Enabled() || len(s.Kafka.Brokers) != 2 {
		t.Errorf("kafka brokers: got %v", s.Kafka.Brokers)
	}
	if s.Kafka.GroupID != DefaultKafkaGroupID {
		t.Errorf("kafka group_id: got %q, want default", s.Kafka.GroupID)
	}
	if !s.MQTT.Enabled() || s.MQTT.QoS != 1 {
		t.Errorf("mqtt: got %+v", s.MQTT)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TOPIC_NAME", "shipments")
	t.Setenv("PORT", "7000")
	p := writeConfig(t, `server:
  port: 9091
  topic_name: orders
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.TopicName != "shipments" {
		t.Errorf("topic_name: got %q, want shipments", cfg.Server.TopicName)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port: got %d, want 7000", cfg.Server.Port)
	}
}

func TestLoad_KafkaBrokersFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("KAFKA_TOPIC", "events")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Server.Kafka.Brokers; len(got) != 2 || got[1] != "b:9092" {
		t.Errorf("brokers: got %v", got)
	}
}

func TestLoad_MQTTPasswordEnvResolution(t *testing.T) {
	t.Setenv("TEST_MQTT_PASSWORD", "hunter2")
	p := writeConfig(t, `server:
  mqtt:
    broker_url: tcp://localhost:1883
    topic: orders
    password_env: TEST_MQTT_PASSWORD
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pw := cfg.Server.MQTT.Password(); pw != "hunter2" {
		t.Errorf("Password(): got %q, want hunter2", pw)
	}
}

func TestLoad_PortOutOfRange(t *testing.T) {
	p := writeConfig(t, `server:
  port: 70000
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for out-of-range port, got nil")
	}
}

func TestLoad_TopicMustBeSingleSegment(t *testing.T) {
	p := writeConfig(t, `server:
  topic_name: a/b
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for multi-segment topic, got nil")
	}
}

func TestLoad_TopicCollidesWithHealthz(t *testing.T) {
	p := writeConfig(t, `server:
  topic_name: healthz
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for reserved topic, got nil")
	}
}

func TestLoad_KafkaWithoutTopic(t *testing.T) {
	p := writeConfig(t, `server:
  kafka:
    brokers: ["k1:9092"]
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for kafka without topic, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, `server:
  log:
    level: info
`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, p, func(c *Config) { got <- c }) //nolint:errcheck

	// Give the watcher time to register the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("server:\n  log:\n    level: debug\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// A truncating write can surface as more than one event; wait for the
	// reload that carries the new content.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Server.Log.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("no reload with level debug observed")
		}
	}
}

// waitLevel drains got until a config with the given log level arrives.
func waitLevel(t *testing.T, got <-chan *Config, level string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Server.Log.Level == level {
				return
			}
		case <-deadline:
			t.Fatalf("no reload with level %s observed", level)
		}
	}
}

// saveAtomically writes content to a sibling temp file and renames it over
// path, the way most editors save.
func saveAtomically(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename over config: %v", err)
	}
}

func TestWatch_SurvivesAtomicSaves(t *testing.T) {
	p := writeConfig(t, "server:\n  log:\n    level: info\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	go Watch(ctx, p, func(c *Config) { got <- c }) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	saveAtomically(t, p, "server:\n  log:\n    level: debug\n")
	waitLevel(t, got, "debug")

	saveAtomically(t, p, "server:\n  log:\n    level: warn\n")
	waitLevel(t, got, "warn")

	// A plain write after the inode was replaced still reloads.
	if err := os.WriteFile(p, []byte("server:\n  log:\n    level: error\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	waitLevel(t, got, "error")
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	p := writeConfig(t, "server:\n  log:\n    level: info\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, p, func(c *Config) { got <- c }) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	other := filepath.Join(filepath.Dir(p), "other.yaml")
	if err := os.WriteFile(other, []byte("server:\n  log:\n    level: debug\n"), 0o600); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case c := <-got:
		t.Fatalf("unexpected reload: %+v", c.Server.Log)
	case <-time.After(300 * time.Millisecond):
	}
}
