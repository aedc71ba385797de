package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// HealthGreeting is the fixed body of GET /healthz.
const HealthGreeting = "Hello from orderrelay server"

// Error messages returned to publishers.
const (
	msgProcessFailed = "Failed to process message"
	msgTooLarge      = "Payload too large"
)

// acceptedTypes are the content types whose bodies are parsed as events.
var acceptedTypes = map[string]bool{
	"application/json":             true,
	"application/cloudevents+json": true,
}

// Publisher broadcasts an inbound event body. *relay.Relay implements it.
type Publisher interface {
	Publish(ctx context.Context, source string, body []byte) (int, error)
}

// Options configures the HTTP surface.
type Options struct {
	// TopicName is the path segment publishers POST to.
	TopicName string

	// MaxBodyBytes caps an inbound body; larger bodies get 413.
	MaxBodyBytes int64

	// StaticDir, when it names an existing directory, is served as a
	// single-page app. Empty or missing disables static hosting.
	StaticDir string

	// Metrics serves GET /metrics when non-nil.
	Metrics http.Handler
}

// Handler is the relay's HTTP surface.
type Handler struct {
	pub    Publisher
	hub    http.Handler
	opts   Options
	spa    http.Handler
	router chi.Router
}

// New creates a Handler that publishes through pub and upgrades channel
// connections with hub, and registers all routes.
func New(pub Publisher, hub http.Handler, opts Options) *Handler {
	h := &Handler{pub: pub, hub: hub, opts: opts}
	if StaticAvailable(opts.StaticDir) {
		h.spa = SPA(opts.StaticDir)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Post("/"+opts.TopicName, h.publish)
	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	r.Get("/ws", h.root)
	r.Get("/", h.root)
	if h.spa != nil {
		r.Get("/*", h.spa.ServeHTTP)
	}

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ServesUI reports whether a prebuilt UI is being served.
func (h *Handler) ServesUI() bool { return h.spa != nil }

// --- route handlers ---------------------------------------------------------

// publish handles POST /{topic}: broadcast the event's data to every client.
func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	body, err := h.readEvent(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("api: event body too large", "limit", tooLarge.Limit)
			jsonErr(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		slog.Error("api: error reading event", "err", err)
		jsonErr(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	slog.Debug("api: received event", "topic", h.opts.TopicName, "body", string(body))

	if _, err := h.pub.Publish(r.Context(), "http", body); err != nil {
		slog.Error("api: error processing message", "err", err)
		jsonErr(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// readEvent returns the request body when its content type is a JSON type,
// and nil otherwise. Bodies larger than MaxBodyBytes fail with
// *http.MaxBytesError.
func (h *Handler) readEvent(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !acceptedTypes[mt] {
		return nil, nil
	}
	return io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
}

// healthz handles GET /healthz. It is a liveness probe only.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	slog.Debug("api: health check requested")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, HealthGreeting) //nolint:errcheck
}

// root serves the channel at "/" and "/ws" for WebSocket upgrades. Any
// other GET on those paths gets the UI entry point, or 404 without a UI.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.hub.ServeHTTP(w, r)
		return
	}
	if h.spa != nil {
		h.spa.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Success: false, Error: msg})
}

// requestLogger logs each request at debug level once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
