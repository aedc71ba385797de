package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestNew_FileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	logger, _, closer := New(Options{Level: "info", File: path})

	logger.Info("client connected", "client_id", "abc")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, line)
	}
	if rec["msg"] != "client connected" {
		t.Errorf("msg: got %v", rec["msg"])
	}
	if rec["client_id"] != "abc" {
		t.Errorf("client_id: got %v", rec["client_id"])
	}
}

func TestNew_LevelVarIsLive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	logger, level, closer := New(Options{Level: "warn", File: path})

	logger.Info("dropped")
	level.Set(slog.LevelDebug)
	logger.Debug("kept")
	closer.Close() //nolint:errcheck

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") {
		t.Error("info record written while level was warn")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("debug record missing after lowering level")
	}
}

func TestNew_NoSinksDiscards(t *testing.T) {
	logger, _, closer := New(Options{})
	logger.Info("nowhere")
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
