package ui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/orderflow/orderrelay/display/internal/session"
)

// Theme colors for the TUI.
var (
	ColorBackground      = tcell.NewHexColor(0x1e1e2e)
	ColorBackgroundPanel = tcell.NewHexColor(0x181825)
	ColorText            = tcell.NewHexColor(0xcdd6f4)
	ColorWarningPanel    = tcell.NewHexColor(0x3b1d2a)
)

// Color tags used inside dynamic-color text.
const (
	tagOpen      = "green"
	tagClosed    = "red"
	tagMuted     = "gray"
	tagSeparator = "#45475a"
)

// statusTag returns the color tag for the connection badge. Only an open
// connection is shown as healthy.
func statusTag(s session.Status) string {
	if s == session.StatusOpen {
		return tagOpen
	}
	return tagClosed
}
