// Package logging builds the slog logger shared by the relay and display
// binaries. Output is JSON; a file sink is rotated by lumberjack.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where log records go.
type Options struct {
	// Level is debug | info | warn | error. Unknown values mean info.
	Level string

	// File, when set, receives a rotated copy of every record.
	File string

	// MaxSizeMB and MaxBackups bound the rotated file set.
	MaxSizeMB  int
	MaxBackups int

	// Stdout writes records to standard output. The display disables this
	// because the terminal is owned by the UI.
	Stdout bool
}

// New returns a JSON slog.Logger, the LevelVar controlling it (so callers can
// change the level at runtime), and a Closer for the file sink. The Closer is
// never nil.
func New(opts Options) (*slog.Logger, *slog.LevelVar, io.Closer) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if opts.Stdout {
		writers = append(writers, os.Stdout)
	}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
		}
		writers = append(writers, lj)
		closer = lj
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, level, closer
}

// ParseLevel converts a level string to slog.Level. Defaults to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
