// Package api implements the relay's HTTP surface.
//
// New(publisher, hub, opts) returns an http.Handler that serves:
//
//	POST /{topic}    broadcast the event's data field; 200 with empty body
//	GET  /healthz    liveness probe, fixed text/plain greeting
//	GET  /metrics    Prometheus exposition (when Options.Metrics is set)
//	GET  /, /ws      WebSocket channel (upgrade requests)
//	GET  /*          prebuilt UI with index.html fallback, when StaticDir exists
//
// Only application/json and application/cloudevents+json bodies are parsed;
// any other content type is handled as an event without data. Processing
// failures answer 500 {"success":false,"error":"Failed to process message"}
// and oversize bodies answer 413.
//
// Routing uses chi with request-ID, panic-recovery and slog request logging.
package api
