package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const webhookTimeout = 10 * time.Second

// source identifies the display in webhook payloads.
const source = "orderrelay-display"

// fact is one labelled detail of an alert, rendered as a Slack field or a
// Teams fact.
type fact struct {
	Name  string
	Value string
}

// facts lists the details worth showing for a, in display order.
func facts(a Alert) []fact {
	out := []fact{{"Relay", a.Relay}}
	switch a.Kind {
	case KindConnectionClosed:
		next := "no"
		if a.Reconnecting {
			next = "yes"
		}
		out = append(out, fact{"Reason", a.Reason}, fact{"Reconnecting", next})
	case KindPublishFailed:
		out = append(out, fact{"Order", a.OrderID})
	}
	return append(out, fact{"Fired at", a.FiredAt.UTC().Format(time.RFC3339)})
}

// formatters build the request body for each webhook type.
var formatters = map[string]func(Alert) interface{}{
	"slack": slackBody,
	"teams": teamsBody,
	"http":  httpBody,
}

func slackBody(a Alert) interface{} {
	fields := make([]map[string]interface{}, 0, 4)
	for _, f := range facts(a) {
		fields = append(fields, map[string]interface{}{"title": f.Name, "value": f.Value, "short": true})
	}
	return map[string]interface{}{
		"text": fmt.Sprintf("*%s %s* %s", severityLabel(a.Severity), a.Title, a.Message),
		"attachments": []map[string]interface{}{{
			"color":  "#" + severityColor(a.Severity),
			"fields": fields,
		}},
	}
}

func teamsBody(a Alert) interface{} {
	list := make([]map[string]string, 0, 4)
	for _, f := range facts(a) {
		list = append(list, map[string]string{"name": f.Name, "value": f.Value})
	}
	return map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.Title,
		"title":      "Order Workflow display: " + a.Title,
		"text":       a.Message,
		"sections":   []map[string]interface{}{{"facts": list}},
	}
}

// httpBody posts the alert as-is so receivers get every field.
func httpBody(a Alert) interface{} {
	return map[string]interface{}{
		"source": source,
		"alert":  a,
	}
}

// deliver posts a to every configured webhook. Failures are logged per
// target and never reach the caller.
func (n *Notifier) deliver(a Alert) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			slog.Debug("alerts: webhook url unset", "type", wh.Type, "url_env", wh.URLEnv)
			continue
		}
		format, ok := formatters[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
		err := n.post(ctx, url, format(a))
		cancel()

		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "kind", a.Kind, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "kind", a.Kind, "id", a.ID)
	}
}

func (n *Notifier) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", source)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case SeverityCritical:
		return "[CRITICAL]"
	case SeverityWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case SeverityCritical:
		return "FF4F6A"
	case SeverityWarning:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
