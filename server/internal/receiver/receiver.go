package receiver

import "context"

// Publisher broadcasts an inbound event body. *relay.Relay implements it.
type Publisher interface {
	Publish(ctx context.Context, source string, body []byte) (int, error)
}

// Source labels used in logs and metrics.
const (
	SourceKafka = "kafka"
	SourceMQTT  = "mqtt"
)
