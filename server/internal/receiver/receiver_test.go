package receiver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/orderrelay/server/internal/config"
)

// --- fakes ------------------------------------------------------------------

type published struct {
	source string
	body   string
}

type fakePublisher struct {
	mu   sync.Mutex
	got  []published
	fail bool
}

func (f *fakePublisher) Publish(_ context.Context, source string, body []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, published{source, string(body)})
	if f.fail {
		return 0, errors.New("broadcast failed")
	}
	return 1, nil
}

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.got...)
}

// fakeReader serves queued messages, then blocks until ctx is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	errs      []error
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeMQTTMessage struct {
	topic   string
	payload []byte
}

func (m fakeMQTTMessage) Duplicate() bool   { return false }
func (m fakeMQTTMessage) Qos() byte         { return 0 }
func (m fakeMQTTMessage) Retained() bool    { return false }
func (m fakeMQTTMessage) Topic() string     { return m.topic }
func (m fakeMQTTMessage) MessageID() uint16 { return 1 }
func (m fakeMQTTMessage) Payload() []byte   { return m.payload }
func (m fakeMQTTMessage) Ack()              {}

// --- kafka ------------------------------------------------------------------

func runKafka(t *testing.T, reader *fakeReader, pub *fakePublisher) (stop func()) {
	t.Helper()
	k := &Kafka{reader: reader, pub: pub, topic: "orders"}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.Run(ctx) //nolint:errcheck
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("kafka receiver did not stop")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestKafka_PublishesAndCommitsEachRecord(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Topic: "orders", Offset: 10, Value: []byte(`{"data":"one"}`)},
		{Topic: "orders", Offset: 11, Value: []byte(`{"data":"two"}`)},
	}}
	pub := &fakePublisher{}
	stop := runKafka(t, reader, pub)

	waitFor(t, func() bool { return len(reader.commits()) == 2 })
	stop()

	got := pub.snapshot()
	if len(got) != 2 || got[0].body != `{"data":"one"}` || got[1].source != SourceKafka {
		t.Errorf("published: got %+v", got)
	}
	if c := reader.commits(); c[0] != 10 || c[1] != 11 {
		t.Errorf("commits: got %v, want [10 11]", c)
	}
	if !reader.closed {
		t.Error("reader not closed on shutdown")
	}
}

func TestKafka_FailedBroadcastStillCommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Offset: 3, Value: []byte(`{}`)}}}
	stop := runKafka(t, reader, &fakePublisher{fail: true})

	waitFor(t, func() bool { return len(reader.commits()) == 1 })
	stop()
}

func TestKafka_FetchErrorIsRetried(t *testing.T) {
	reader := &fakeReader{
		errs:  []error{errors.New("broker unavailable")},
		queue: []kafka.Message{{Offset: 1, Value: []byte(`{"data":"after"}`)}},
	}
	pub := &fakePublisher{}
	stop := runKafka(t, reader, pub)

	waitFor(t, func() bool { return len(pub.snapshot()) == 1 })
	stop()
}

func TestNewKafka_UsesConfig(t *testing.T) {
	k := NewKafka(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "orders", GroupID: "g"}, &fakePublisher{})
	defer k.reader.Close()
	if k.topic != "orders" {
		t.Errorf("topic: got %q", k.topic)
	}
	r, ok := k.reader.(*kafka.Reader)
	if !ok {
		t.Fatalf("reader type: %T", k.reader)
	}
	if cfg := r.Config(); cfg.GroupID != "g" || cfg.Topic != "orders" {
		t.Errorf("reader config: got group %q topic %q", cfg.GroupID, cfg.Topic)
	}
}

// --- mqtt -------------------------------------------------------------------

func TestMQTT_HandlePublishesPayload(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(config.MQTTConfig{BrokerURL: "tcp://localhost:1883", Topic: "orders/#", ClientID: "test"}, pub)

	m.handle(nil, fakeMQTTMessage{topic: "orders/42", payload: []byte(`{"data":"shipped"}`)})

	got := pub.snapshot()
	if len(got) != 1 {
		t.Fatalf("published: got %d, want 1", len(got))
	}
	if got[0].source != SourceMQTT || got[0].body != `{"data":"shipped"}` {
		t.Errorf("published: got %+v", got[0])
	}
}

func TestMQTT_RunStopsWhileBrokerUnreachable(t *testing.T) {
	m := NewMQTT(config.MQTTConfig{BrokerURL: "tcp://127.0.0.1:1", Topic: "orders", ClientID: "test"}, &fakePublisher{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx) //nolint:errcheck
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
