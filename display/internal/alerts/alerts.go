package alerts

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderrelay/display/internal/config"
)

const maxHistoryLen = 200

// Severity levels understood by the webhook formatters.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert kinds.
const (
	KindConnectionClosed = "connection_closed"
	KindPublishFailed    = "publish_failed"
)

// Titles shown in the warning bar.
const (
	TitleConnectionClosed = "Connection Closed"
	TitlePublishFailed    = "Publish Failed"
)

// Alert is a single user-visible warning raised by the display.
type Alert struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
	FiredAt  time.Time `json:"fired_at"`

	// Relay is the origin the display is attached to.
	Relay string `json:"relay"`

	// Reason is the disconnect reason for connection alerts.
	Reason string `json:"reason,omitempty"`

	// Reconnecting is set when the session will redial after this alert.
	Reconnecting bool `json:"reconnecting,omitempty"`

	// OrderID names the notice a failed publish carried.
	OrderID string `json:"order_id,omitempty"`
}

// Notifier shows warnings to the user through a sink and forwards them to any
// configured webhooks.
//
// Notifier is safe for concurrent use.
type Notifier struct {
	relay    string
	webhooks []config.WebhookConfig
	client   *http.Client

	mu      sync.Mutex
	sink    func(Alert)
	history []Alert
	wg      sync.WaitGroup
}

// New creates a Notifier for the display attached to relay. sink may be nil
// and can be set later with SetSink.
func New(relay string, webhooks []config.WebhookConfig, sink func(Alert)) *Notifier {
	return &Notifier{
		relay:    relay,
		webhooks: webhooks,
		sink:     sink,
		client:   &http.Client{Timeout: webhookTimeout},
	}
}

// SetSink replaces the function that displays warnings.
func (n *Notifier) SetSink(sink func(Alert)) {
	n.mu.Lock()
	n.sink = sink
	n.mu.Unlock()
}

// ConnectionClosed raises the warning for a channel the display did not close
// itself.
func (n *Notifier) ConnectionClosed(reason string, reconnecting bool) Alert {
	return n.raise(Alert{
		Kind:         KindConnectionClosed,
		Title:        TitleConnectionClosed,
		Message:      "WebSocket connection closed: " + reason,
		Severity:     SeverityWarning,
		Reason:       reason,
		Reconnecting: reconnecting,
	})
}

// PublishFailed raises the warning for a test notice the relay rejected or
// never received.
func (n *Notifier) PublishFailed(orderID string, err error) Alert {
	return n.raise(Alert{
		Kind:     KindPublishFailed,
		Title:    TitlePublishFailed,
		Message:  err.Error(),
		Severity: SeverityWarning,
		OrderID:  orderID,
	})
}

// raise stamps a, records it, passes it to the sink and delivers webhooks in
// the background.
func (n *Notifier) raise(a Alert) Alert {
	a.ID = uuid.NewString()
	a.FiredAt = time.Now()
	a.Relay = n.relay

	n.mu.Lock()
	n.history = append(n.history, a)
	if len(n.history) > maxHistoryLen {
		n.history = n.history[len(n.history)-maxHistoryLen:]
	}
	sink := n.sink
	n.mu.Unlock()

	slog.Warn("alert raised",
		"kind", a.Kind,
		"relay", a.Relay,
		"reason", a.Reason,
		"order_id", a.OrderID,
		"message", a.Message,
	)

	if sink != nil {
		sink(a)
	}
	if len(n.webhooks) > 0 {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.deliver(a)
		}()
	}
	return a
}

// History returns the raised alerts, oldest first.
func (n *Notifier) History() []Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Alert, len(n.history))
	copy(out, n.history)
	return out
}

// Wait blocks until in-flight webhook deliveries finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
