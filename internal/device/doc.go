// Package device merges the audio server's sink inventory and the
// Bluetooth adapter's device inventory into a single device model.
//
// The Registry is the read/write surface the rest of the service uses:
// it builds fresh snapshots on every query, routes the volume and
// default-output mutations to the audio backend, and keeps the small
// scratchpad of scan results that neither backend remembers. Devices are
// classified as built-in, usb, or bluetooth from their sink names, and
// Bluetooth devices carry a lifecycle state (discovered, paired,
// connected) that decides whether audio can be routed to them.
package device
