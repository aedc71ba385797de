package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/orderflow/orderrelay/display/internal/relayclient"
	"github.com/orderflow/orderrelay/display/internal/render"
	"github.com/orderflow/orderrelay/display/internal/session"
	"github.com/orderflow/orderrelay/display/internal/store"
	"github.com/orderflow/orderrelay/pkg/types"
	"github.com/orderflow/orderrelay/server/relaytest"
)

// TestSession_RelayedNoticeRendersAsGroup drives a real relay: the display
// connects, receives the greeting, a notice is posted to the topic, and the
// rendered log holds one "shipped" row under order 42.
func TestSession_RelayedNoticeRendersAsGroup(t *testing.T) {
	relay := relaytest.NewServer(relaytest.Options{GreetingDelay: 10 * time.Millisecond})
	defer relay.Close()

	buf := store.New(store.DefaultCapacity)
	warn := &recordingWarner{}
	recv := make(chan types.Notification, 4)
	sess := session.New(buf, warn, session.Options{
		URL:       relay.URL,
		OnMessage: func(n types.Notification) { recv <- n },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	next := func() types.Notification {
		t.Helper()
		select {
		case n := <-recv:
			return n
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for a notification")
			return types.Notification{}
		}
	}

	if greeting := next(); greeting.OrderID != "test_connection" || greeting.Message != "Connection test successful" {
		t.Fatalf("greeting: got %+v", greeting)
	}
	if got := sess.Status().Get(); got != session.StatusOpen {
		t.Errorf("status: got %q, want open", got)
	}

	client, err := relayclient.New(relay.URL, relay.Topic)
	if err != nil {
		t.Fatalf("relayclient: %v", err)
	}
	if err := client.PublishNotice(ctx, types.OrderNotice{OrderID: "42", Message: "shipped"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if n := next(); n.OrderID != "42" {
		t.Fatalf("notice: got %+v", n)
	}

	var order *render.Group
	groups := render.Groups(buf.Messages(), render.NewColors())
	for i := range groups {
		if groups[i].OrderID == "42" {
			order = &groups[i]
		}
	}
	if order == nil {
		t.Fatalf("no group for order 42 in %+v", groups)
	}
	if len(order.Messages) != 1 || order.Messages[0].Message != "shipped" {
		t.Errorf("order 42 rows: got %+v, want one shipped row", order.Messages)
	}
	if len(groups) != 2 {
		t.Errorf("groups: got %d, want 2 (greeting and order 42)", len(groups))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if w := warn.all(); len(w) != 0 {
		t.Errorf("warnings: got %v, want none", w)
	}
}
