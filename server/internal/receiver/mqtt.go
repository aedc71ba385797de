package receiver

import (
	"context"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/orderflow/orderrelay/server/internal/config"
)

const (
	mqttBackoffStart = time.Second
	mqttBackoffMax   = 30 * time.Second
	mqttQuiesceMs    = 250
)

// MQTT relays payloads from one topic filter.
type MQTT struct {
	cfg    config.MQTTConfig
	pub    Publisher
	client mqtt.Client
}

// NewMQTT creates an MQTT receiver. The client subscribes on every
// (re)connect, so a dropped broker connection resumes on its own.
func NewMQTT(cfg config.MQTTConfig, pub Publisher) *MQTT {
	m := &MQTT{cfg: cfg, pub: pub}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetOrderMatters(false).
		SetCleanSession(true).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if pw := cfg.Password(); pw != "" {
		opts.SetPassword(pw)
	}

	opts.OnConnect = func(c mqtt.Client) {
		slog.Info("receiver: mqtt connected", "broker", cfg.BrokerURL)
		if token := c.Subscribe(cfg.Topic, cfg.QoS, m.handle); token.Wait() && token.Error() != nil {
			slog.Error("receiver: mqtt subscribe failed", "topic", cfg.Topic, "err", token.Error())
			return
		}
		slog.Info("receiver: mqtt subscribed", "topic", cfg.Topic, "qos", cfg.QoS)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("receiver: mqtt connection lost", "broker", cfg.BrokerURL, "err", err)
	}

	m.client = mqtt.NewClient(opts)
	return m
}

// Run connects with exponential backoff, then blocks until ctx is cancelled
// and disconnects.
func (m *MQTT) Run(ctx context.Context) error {
	backoff := mqttBackoffStart
	for {
		token := m.client.Connect()
		if token.Wait() && token.Error() == nil {
			break
		}
		slog.Warn("receiver: mqtt connect failed", "broker", m.cfg.BrokerURL,
			"err", token.Error(), "retry_in", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < mqttBackoffMax {
			backoff *= 2
		}
	}

	<-ctx.Done()
	m.client.Disconnect(mqttQuiesceMs)
	return nil
}

func (m *MQTT) handle(_ mqtt.Client, msg mqtt.Message) {
	slog.Debug("receiver: mqtt message", "topic", msg.Topic(), "bytes", len(msg.Payload()))
	if _, err := m.pub.Publish(context.Background(), SourceMQTT, msg.Payload()); err != nil {
		slog.Error("receiver: mqtt message not relayed", "topic", msg.Topic(), "err", err)
	}
}
