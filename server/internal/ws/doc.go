// Package ws implements the relay's WebSocket hub.
//
// Hub manages the set of connected clients and fans relay messages out to all
// of them. It is the only per-connection state the relay keeps.
//
// New(opts) creates a Hub.
// Hub.Run(ctx) blocks until ctx is cancelled, then closes all connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends that client a
// test message after Options.GreetingDelay, then streams broadcasts.
// Hub.Broadcast queues one frame to every client without blocking.
//
// Message format sent to clients:
//
//	{
//	  "event": "message",
//	  "data":  { "message": "<data field of the inbound event>" }
//	}
//
// The test message carries a JSON-encoded notice with order_id
// "test_connection". The upgrader accepts all origins.
package ws
