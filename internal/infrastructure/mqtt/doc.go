// Package mqtt publishes audioctl's domain events to an MQTT broker.
//
// The client is publish-only: device changes, scan results, and session
// outcomes go out on audioctl/events/<type>, and a retained status
// message on audioctl/system/status (backed by a Last Will) tells
// subscribers whether the service is up. MQTT is optional; when disabled
// in config the service runs without a broker.
package mqtt
