// Package types defines the wire types shared by the relay server and the
// display client. The server encodes Envelope frames onto the WebSocket
// channel; the display decodes them into Notification values.
package types
