package types

import "encoding/json"

// EventMessage is the only channel event the relay emits.
const EventMessage = "message"

// Envelope is the JSON frame written to every WebSocket client.
//
//	{"event": "message", "data": {"message": <string or raw JSON value>}}
type Envelope struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

// Payload carries the value extracted from an inbound event's data field.
// It is usually a JSON string holding an encoded OrderNotice, but any JSON
// value is forwarded untouched.
type Payload struct {
	Message json.RawMessage `json:"message"`
}

// OrderNotice is the shape publishers encode into an event's data field.
type OrderNotice struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// Notification is a decoded, timestamped message held by the display.
type Notification struct {
	OrderID   string `json:"order_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewMessage wraps payload in a message Envelope.
func NewMessage(payload json.RawMessage) Envelope {
	return Envelope{Event: EventMessage, Data: Payload{Message: payload}}
}

// StringPayload encodes s as a JSON string value.
func StringPayload(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// NoticePayload encodes n as JSON and then wraps that text as a JSON string,
// matching how publishers place an encoded notice inside data.
func NoticePayload(n OrderNotice) json.RawMessage {
	inner, _ := json.Marshal(n)
	return StringPayload(string(inner))
}
