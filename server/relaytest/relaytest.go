// Package relaytest runs a complete in-process relay on a local port for
// tests outside the server tree, much like net/http/httptest does for a
// single handler.
package relaytest

import (
	"context"
	"net/http/httptest"
	"time"

	"github.com/orderflow/orderrelay/server/internal/api"
	"github.com/orderflow/orderrelay/server/internal/metrics"
	"github.com/orderflow/orderrelay/server/internal/relay"
	"github.com/orderflow/orderrelay/server/internal/ws"
)

// DefaultTopic is the topic a Server accepts when Options.TopicName is empty.
const DefaultTopic = "notifications"

// Options configures a Server.
type Options struct {
	TopicName     string
	GreetingDelay time.Duration
	MaxBodyBytes  int64
}

// Server is a running relay. URL is its http:// origin.
type Server struct {
	URL   string
	Topic string

	srv    *httptest.Server
	hub    *ws.Hub
	cancel context.CancelFunc
}

// NewServer starts a relay wired the same way as the server binary, minus
// broker ingest. Close it when done.
func NewServer(opts Options) *Server {
	if opts.TopicName == "" {
		opts.TopicName = DefaultTopic
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	m := metrics.New()
	hub := ws.New(ws.Options{GreetingDelay: opts.GreetingDelay, Metrics: m})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	h := api.New(relay.New(hub, m), hub, api.Options{
		TopicName:    opts.TopicName,
		MaxBodyBytes: opts.MaxBodyBytes,
		Metrics:      m.Handler(),
	})
	srv := httptest.NewServer(h)

	return &Server{
		URL:    srv.URL,
		Topic:  opts.TopicName,
		srv:    srv,
		hub:    hub,
		cancel: cancel,
	}
}

// Clients returns the number of connected channel clients.
func (s *Server) Clients() int { return s.hub.Count() }

// Close disconnects every client and stops the server.
func (s *Server) Close() {
	s.cancel()
	s.srv.Close()
}
