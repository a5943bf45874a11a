// Package events publishes message lifecycle events to MQTT.
//
// Publishing is optional: when MQTT is disabled in configuration a no-op
// publisher is used and the rest of the system is unaffected. Events are
// JSON payloads on per-lobby topics, e.g.
//
//	lockerroom/lobby/lob-4f9a12bc/messages
//
// Delivery is best effort. A failed publish is logged and dropped rather
// than failing the originating request.
package events
