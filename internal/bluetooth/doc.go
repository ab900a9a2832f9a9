// Package bluetooth abstracts the host Bluetooth stack for discovery,
// pairing, and connection of audio devices.
//
// The Backend interface covers the five primitives the rest of the service
// needs: a streamed discovery scan, a paired-device snapshot, pair, connect,
// and cancellation of an in-flight pair. The production implementation,
// BluetoothctlBackend, shells out to bluetoothctl and parses its line
// output; tests substitute in-memory fakes.
package bluetooth
