// Package session manages the display's connection to the relay channel.
//
// A Session dials the relay origin once, decodes every message frame into a
// timestamped Notification, and hands it to a Buffer for deduplication. The
// tri-state connection status is published through a StatusWatcher. When the
// relay closes the connection, or it times out or breaks, a single warning is
// raised through the Warner. Disconnect closes quietly.
package session
