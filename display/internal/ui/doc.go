// Package ui is the display's terminal interface: a header with the
// connection badge, the grouped message log, a warning bar, and key
// bindings for clearing, sending a test notice and quitting.
package ui
