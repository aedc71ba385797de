package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderflow/orderrelay/display/internal/alerts"
	"github.com/orderflow/orderrelay/display/internal/config"
	"github.com/orderflow/orderrelay/display/internal/relayclient"
	"github.com/orderflow/orderrelay/display/internal/session"
	"github.com/orderflow/orderrelay/display/internal/store"
	"github.com/orderflow/orderrelay/display/internal/ui"
	"github.com/orderflow/orderrelay/pkg/logging"
	"github.com/orderflow/orderrelay/pkg/types"
)

const healthTimeout = 3 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file; leave empty to configure from the environment only")
	relayURL := flag.String("relay-url", "", "relay origin (overrides display.relay_url)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orderrelay-display: %v\n", err)
		os.Exit(1)
	}
	d := cfg.Display
	if *relayURL != "" {
		d.RelayURL = *relayURL
	}

	// The terminal belongs to the UI, so records only go to the log file.
	logger, _, logCloser := logging.New(logging.Options{
		Level: d.LogLevel,
		File:  d.LogFile,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	client, err := relayclient.New(d.RelayURL, d.TopicName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orderrelay-display: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("orderrelay-display starting", "relay", d.RelayURL, "topic", d.TopicName)
	checkHealth(ctx, client)

	buf := store.New(d.BufferSize)
	notifier := alerts.New(d.RelayURL, d.Webhooks, nil)

	var app *ui.App
	sess := session.New(buf, notifier, session.Options{
		URL:             d.RelayURL,
		TimestampFormat: d.TimestampFormat,
		Reconnect:       d.Reconnect,
		OnMessage: func(types.Notification) {
			app.Refresh()
		},
	})

	app = ui.New(buf, sess.Status(), client, ui.Options{
		StatusPoll: d.StatusPoll,
		WarningTTL: d.WarningTTL,
		OnQuit:     sess.Disconnect,
		Warner:     notifier,
	})
	notifier.SetSink(app.ShowWarning)

	sessDone := make(chan struct{})
	go func() {
		defer close(sessDone)
		if err := sess.Run(ctx); err != nil {
			slog.Error("session stopped", "err", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		slog.Error("ui stopped", "err", err)
	}

	sess.Disconnect()
	cancel()
	<-sessDone
	notifier.Wait()
	slog.Info("orderrelay-display stopped")
}

// checkHealth logs whether the relay answers its liveness probe. The display
// starts either way and keeps retrying the channel.
func checkHealth(ctx context.Context, client *relayclient.Client) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	greeting, err := client.Health(ctx)
	if err != nil {
		slog.Warn("relay health check failed", "err", err)
		return
	}
	slog.Info("relay is up", "greeting", greeting)
}
