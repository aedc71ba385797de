package session

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/orderflow/orderrelay/pkg/types"
)

const (
	unknownOrderID   = "unknown"
	fallbackMessage  = "Order notification received"
	nonStringMessage = "Notification received"
	emptyRawMessage  = "Error parsing message"
)

// Decode turns the message field of a channel frame into an OrderNotice.
//
// A string holding JSON contributes its order_id and message fields. A string
// that is not JSON becomes the message of an unknown order. Any other value
// yields a generic notice. Empty results fall back to "unknown" and
// "Order notification received".
func Decode(raw json.RawMessage) types.OrderNotice {
	var n types.OrderNotice

	var text string
	if !isString(raw) || json.Unmarshal(raw, &text) != nil {
		n = types.OrderNotice{OrderID: unknownOrderID, Message: nonStringMessage}
	} else {
		var inner interface{}
		if err := json.Unmarshal([]byte(text), &inner); err != nil {
			n.OrderID = unknownOrderID
			n.Message = text
			if n.Message == "" {
				n.Message = emptyRawMessage
			}
		} else if obj, ok := inner.(map[string]interface{}); ok {
			n.OrderID = field(obj["order_id"])
			n.Message = field(obj["message"])
		}
	}

	if n.OrderID == "" {
		n.OrderID = unknownOrderID
	}
	if n.Message == "" {
		n.Message = fallbackMessage
	}
	return n
}

// field renders a decoded JSON value as display text. Falsy values render
// empty so the caller's fallback applies.
func field(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func isString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}
