// Package config loads the display configuration from the `display:` section
// of an optional config.yaml, with RELAY_URL, TOPIC_NAME, LOG_LEVEL and
// DISPLAY_LOG_FILE environment overrides.
//
// Config fields:
//   - RelayURL          relay origin (default http://localhost:8080)
//   - TopicName         relay inbound path segment (default "notifications")
//   - BufferSize        Message Buffer bound (default 1000)
//   - StatusPoll        header status refresh (default 2s)
//   - TimestampFormat   receipt timestamp layout (default 15:04:05)
//   - Reconnect         redial after a remote disconnect (default true)
//   - Webhooks          extra warning targets (slack | teams | http)
package config
