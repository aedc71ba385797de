package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderflow/orderrelay/pkg/logging"
	"github.com/orderflow/orderrelay/server/internal/api"
	"github.com/orderflow/orderrelay/server/internal/config"
	"github.com/orderflow/orderrelay/server/internal/metrics"
	"github.com/orderflow/orderrelay/server/internal/receiver"
	"github.com/orderflow/orderrelay/server/internal/relay"
	"github.com/orderflow/orderrelay/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file; leave empty to configure from the environment only")
	uiDir := flag.String("ui-dir", "", "serve the prebuilt UI from this directory (overrides server.static_dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *uiDir != "" {
		cfg.Server.StaticDir = *uiDir
	}

	logger, level, logCloser := logging.New(logging.Options{
		Level:  cfg.Server.Log.Level,
		File:   cfg.Server.Log.File,
		Stdout: true,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	slog.Info("orderrelay-server starting",
		"config", *configPath,
		"port", cfg.Server.Port,
		"topic", cfg.Server.TopicName,
		"kafka", cfg.Server.Kafka.Enabled(),
		"mqtt", cfg.Server.MQTT.Enabled(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hot-reload updates the log level only; everything else needs a restart.
	if *configPath != "" {
		go func() {
			if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
				level.Set(logging.ParseLevel(updated.Server.Log.Level))
				slog.Info("log level updated", "level", updated.Server.Log.Level)
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	m := metrics.New()

	hub := ws.New(ws.Options{GreetingDelay: cfg.Server.GreetingDelay, Metrics: m})
	go hub.Run(ctx)

	core := relay.New(hub, m)

	if cfg.Server.Kafka.Enabled() {
		k := receiver.NewKafka(cfg.Server.Kafka, core)
		go func() {
			if err := k.Run(ctx); err != nil {
				slog.Error("kafka receiver stopped", "err", err)
			}
		}()
	}
	if cfg.Server.MQTT.Enabled() {
		mq := receiver.NewMQTT(cfg.Server.MQTT, core)
		go func() {
			if err := mq.Run(ctx); err != nil {
				slog.Error("mqtt receiver stopped", "err", err)
			}
		}()
	}

	handler := api.New(core, hub, api.Options{
		TopicName:    cfg.Server.TopicName,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		StaticDir:    cfg.Server.StaticDir,
		Metrics:      m.Handler(),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("failed to listen", "port", cfg.Server.Port, "err", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.Port)
		slog.Info("API endpoint", "url", fmt.Sprintf("http://localhost:%d/%s", cfg.Server.Port, cfg.Server.TopicName))
		slog.Info("WebSocket channel", "url", fmt.Sprintf("ws://localhost:%d", cfg.Server.Port))
		if handler.ServesUI() {
			slog.Info("serving UI static files", "dir", cfg.Server.StaticDir)
		} else {
			slog.Info("no prebuilt UI found; use an external dev server", "dir", cfg.Server.StaticDir)
		}
		if err := httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("orderrelay-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
