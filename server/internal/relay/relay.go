// Package relay is the relay core: it pulls the data field out of an inbound
// event and broadcasts it to every connected client. HTTP, Kafka and MQTT
// ingest all go through Publish.
//
// Delivery is at-most-once and fire-and-forget. Nothing is queued for clients
// that connect later.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/orderflow/orderrelay/pkg/types"
	"github.com/orderflow/orderrelay/server/internal/metrics"
)

// Broadcaster fans one envelope out to all connected clients and reports how
// many it reached. *ws.Hub implements it.
type Broadcaster interface {
	Broadcast(env types.Envelope) (int, error)
}

// Relay extracts and broadcasts inbound events.
type Relay struct {
	hub     Broadcaster
	metrics *metrics.Metrics
}

// New creates a Relay broadcasting through hub. m may be nil.
func New(hub Broadcaster, m *metrics.Metrics) *Relay {
	return &Relay{hub: hub, metrics: m}
}

// Publish broadcasts the data field of body, an inbound event, to every
// connected client. source names the ingest path for logs and metrics.
//
// Bodies that are empty, not JSON, or lack data are not rejected: they
// broadcast the empty string. An error is returned only when the broadcast
// itself fails.
func (r *Relay) Publish(ctx context.Context, source string, body []byte) (int, error) {
	data, err := ExtractData(body)
	if err != nil {
		slog.WarnContext(ctx, "relay: unparseable event body, broadcasting empty message",
			"source", source, "bytes", len(body), "err", err)
	}
	slog.DebugContext(ctx, "relay: processing message", "source", source, "message", string(data))

	n, err := r.hub.Broadcast(types.NewMessage(data))
	if err != nil {
		r.metrics.EventFailed(source)
		return 0, fmt.Errorf("relay: broadcast: %w", err)
	}
	r.metrics.EventReceived(source)

	slog.InfoContext(ctx, "relay: emitted message to all clients", "source", source, "clients", n)
	return n, nil
}

// emptyString is the JSON encoding of "".
var emptyString = json.RawMessage(`""`)

// ExtractData returns the data field of an inbound event as raw JSON. A
// missing, null, false, zero or empty-string data field yields the JSON empty
// string, as does a body that is empty or not a JSON object. The returned
// error reports why body could not be parsed; the value is still usable.
func ExtractData(body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return emptyString, nil
	}

	var event struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return emptyString, fmt.Errorf("decode event: %w", err)
	}

	if isFalsy(event.Data) {
		return emptyString, nil
	}
	return event.Data, nil
}

// isFalsy reports whether raw is absent or one of the JSON values a loose
// truthiness check treats as empty.
func isFalsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", `""`:
		return true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f == 0 {
		return true
	}
	return false
}
