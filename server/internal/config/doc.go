// Package config loads the relay configuration from the `server:` section of
// an optional config.yaml, then applies environment overrides.
//
// Config fields:
//   - Port            HTTP/WebSocket listen port (PORT, default 8080)
//   - TopicName       inbound path segment (TOPIC_NAME, default "notifications")
//   - MaxBodyBytes    inbound body cap (default 10MB)
//   - StaticDir       prebuilt UI directory (STATIC_DIR, default "dist")
//   - GreetingDelay   delay before the per-connection test message (default 1s)
//   - Log             level and optional rotated file (LOG_LEVEL, LOG_FILE)
//   - Kafka, MQTT     optional broker ingest, disabled unless configured
//
// Load(path) applies defaults before unmarshalling, reads the environment with
// cleanenv, then validates. Watch(ctx, path, fn) reloads on file writes.
package config
