package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"

	"github.com/orderflow/orderrelay/display/internal/alerts"
	"github.com/orderflow/orderrelay/display/internal/render"
	"github.com/orderflow/orderrelay/display/internal/session"
	"github.com/orderflow/orderrelay/pkg/types"
)

// Title is shown at the left of the header.
const Title = "Order Workflow"

// Placeholder is shown when the buffer is empty.
const Placeholder = "No messages yet"

const separatorWidth = 48

// HeaderText renders the title and the connection badge.
func HeaderText(s session.Status, count int) string {
	return fmt.Sprintf(" [::b]%s[::-]   [%s::b]connection: %s[-::-]   [%s]%d messages[-]",
		Title, statusTag(s), s, tagMuted, count)
}

// LogText renders ordered groups, one line per notification, with a rule
// between groups.
func LogText(groups []render.Group) string {
	if len(groups) == 0 {
		return fmt.Sprintf("[%s]%s[-]", tagMuted, Placeholder)
	}
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintf(&b, "[%s]%s[-]\n", tagSeparator, strings.Repeat("─", separatorWidth))
		}
		for _, n := range g.Messages {
			b.WriteString(LogLine(n, g.Color))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// LogLine renders `timestamp | order_id | message` with the order_id in
// color.
func LogLine(n types.Notification, color string) string {
	return fmt.Sprintf("[%s]%s[-] | [%s::b]%s[-::-] | %s",
		tagMuted, tview.Escape(n.Timestamp),
		color, tview.Escape(n.OrderID),
		tview.Escape(n.Message))
}

// WarningText renders a warning for the warning bar.
func WarningText(a alerts.Alert) string {
	return fmt.Sprintf(" [%s::b]%s[-::-]  %s", tagClosed, tview.Escape(a.Title), tview.Escape(a.Message))
}

// footerText lists the key bindings.
func footerText() string {
	return " [green]c[-] clear  [green]t[-] send test notice  [green]q[-] quit"
}
