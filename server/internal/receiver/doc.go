// Package receiver implements the optional broker ingest paths. Each receiver
// treats an incoming record as an inbound event body and hands it to the relay
// core, exactly as POST /{topic} does.
//
// Kafka.Run consumes a topic as part of a consumer group, publishing then
// committing each record. MQTT.Run subscribes to a topic filter and publishes
// every payload. Both block until ctx is cancelled and are started only when
// their section of the config is filled in.
package receiver
