// Package core orchestrates the service's domain operations: device
// snapshots, volume and routing changes, Bluetooth discovery scans, and
// pairing/connection sessions.
//
// Concurrency rules live here. Discovery is single-flight for the whole
// service; pair and connect are single-flight per device with
// last-request-wins semantics (a newer request cancels the older session
// for the same MAC). The core's own lock covers only its bookkeeping and
// is never held while a backend call is in flight.
package core
