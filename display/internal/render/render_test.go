package render

import (
	"testing"

	"github.com/orderflow/orderrelay/pkg/types"
)

func n(order, msg, ts string) types.Notification {
	return types.Notification{OrderID: order, Message: msg, Timestamp: ts}
}

func TestGroups_GroupsByOrderID(t *testing.T) {
	got := Groups([]types.Notification{
		n("42", "created", "10:00:00"),
		n("7", "created", "10:00:01"),
		n("42", "shipped", "10:00:02"),
	}, NewColors())

	if len(got) != 2 {
		t.Fatalf("groups: got %d, want 2", len(got))
	}
	if got[0].OrderID != "42" || len(got[0].Messages) != 2 {
		t.Errorf("first group: got %s with %d messages", got[0].OrderID, len(got[0].Messages))
	}
	if got[0].Messages[1].Message != "shipped" {
		t.Errorf("arrival order lost: got %q", got[0].Messages[1].Message)
	}
}

func TestGroups_OrderedByFirstTimestampLexically(t *testing.T) {
	// "9:00:00" sorts after "10:00:00" as a string: lexical, not chronological.
	got := Groups([]types.Notification{
		n("a", "m", "9:00:00"),
		n("b", "m", "10:00:00"),
	}, NewColors())

	if got[0].OrderID != "b" || got[1].OrderID != "a" {
		t.Errorf("order: got %s,%s want b,a", got[0].OrderID, got[1].OrderID)
	}
}

func TestGroups_TiesKeepFirstSeenOrder(t *testing.T) {
	got := Groups([]types.Notification{
		n("x", "m", "10:00:00"),
		n("y", "m", "10:00:00"),
		n("z", "m", "10:00:00"),
	}, NewColors())

	for i, want := range []string{"x", "y", "z"} {
		if got[i].OrderID != want {
			t.Errorf("group %d: got %s, want %s", i, got[i].OrderID, want)
		}
	}
}

func TestGroups_EmptyOrderIDIsUnknown(t *testing.T) {
	got := Groups([]types.Notification{n("", "hello", "t")}, NewColors())
	if got[0].OrderID != UnknownOrderID {
		t.Errorf("order_id: got %q, want unknown", got[0].OrderID)
	}
}

func TestGroups_Empty(t *testing.T) {
	if got := Groups(nil, NewColors()); len(got) != 0 {
		t.Errorf("groups: got %d, want 0", len(got))
	}
}

func TestColors_StableAndCycling(t *testing.T) {
	c := NewColors()
	first := c.For("o0")
	if first != Palette[0] {
		t.Errorf("first color: got %s, want %s", first, Palette[0])
	}
	for i := 1; i < len(Palette); i++ {
		c.For(string(rune('a' + i)))
	}
	if got := c.For("wrap"); got != Palette[0] {
		t.Errorf("11th id: got %s, want palette to cycle to %s", got, Palette[0])
	}
	if got := c.For("o0"); got != first {
		t.Errorf("repeat lookup: got %s, want %s", got, first)
	}
}

func TestGroups_ColorsPersistAcrossRenders(t *testing.T) {
	c := NewColors()
	first := Groups([]types.Notification{n("42", "m", "10:00:00")}, c)
	second := Groups([]types.Notification{
		n("7", "m", "09:00:00"),
		n("42", "m", "10:00:00"),
	}, c)

	if second[1].OrderID != "42" || second[1].Color != first[0].Color {
		t.Errorf("42 color changed: %s -> %s", first[0].Color, second[1].Color)
	}
	if second[0].Color == first[0].Color {
		t.Error("new order id reused an assigned color")
	}
}
