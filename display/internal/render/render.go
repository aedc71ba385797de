// Package render turns the display's buffered notifications into ordered,
// colored groups. It has no terminal dependency; package ui draws the result.
package render

import (
	"sort"

	"github.com/orderflow/orderrelay/pkg/types"
)

// UnknownOrderID groups notifications that carry no order_id.
const UnknownOrderID = "unknown"

// Palette is the fixed set of group colors, assigned in first-seen order.
var Palette = []string{
	"#8B5CF6", "#D946EF", "#F97316", "#0EA5E9", "#10B981",
	"#F59E0B", "#EC4899", "#6366F1", "#14B8A6", "#EF4444",
}

// Colors assigns each order_id a stable palette color. It belongs to one
// display session and keeps its assignments when the buffer is cleared.
// Not safe for concurrent use: call it from the draw loop only.
type Colors struct {
	assigned map[string]string
}

// NewColors creates an empty color assignment.
func NewColors() *Colors {
	return &Colors{assigned: make(map[string]string)}
}

// For returns orderID's color, assigning the next palette entry (cycling)
// the first time orderID is seen.
func (c *Colors) For(orderID string) string {
	if col, ok := c.assigned[orderID]; ok {
		return col
	}
	col := Palette[len(c.assigned)%len(Palette)]
	c.assigned[orderID] = col
	return col
}

// Group is the notifications for one order_id, in arrival order.
type Group struct {
	OrderID  string
	Color    string
	Messages []types.Notification
}

// Groups partitions msgs by order_id and orders the groups by the timestamp
// of each group's first message. Timestamps are compared as plain strings,
// so ordering is only chronological when the format sorts lexically (the
// default 24-hour clock does, within one day). Ties keep first-seen order.
// Colors are assigned from c while walking the ordered groups.
func Groups(msgs []types.Notification, c *Colors) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, m := range msgs {
		id := m.OrderID
		if id == "" {
			id = UnknownOrderID
		}
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{OrderID: id})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Messages[0].Timestamp < groups[b].Messages[0].Timestamp
	})

	for i := range groups {
		groups[i].Color = c.For(groups[i].OrderID)
	}
	return groups
}
