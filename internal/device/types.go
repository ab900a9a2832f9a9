package device

import (
	"regexp"
	"strings"
)

// Kind classifies how an output device is attached to the host.
type Kind string

const (
	KindBuiltIn   Kind = "built-in"
	KindUSB       Kind = "usb"
	KindBluetooth Kind = "bluetooth"
)

// BluetoothState tracks where a Bluetooth device sits in its lifecycle
// relative to this service.
type BluetoothState string

const (
	// StateNone marks non-Bluetooth devices.
	StateNone BluetoothState = ""

	// StateDiscovered means the device was seen in a scan but is not paired.
	StateDiscovered BluetoothState = "discovered"

	// StatePaired means the stack holds a bond but no active connection.
	StatePaired BluetoothState = "paired"

	// StateConnected means the device is connected and can expose a sink.
	StateConnected BluetoothState = "connected"
)

// Device is the unified view of an audio output: sinks the audio server
// exposes and Bluetooth devices the adapter knows about, merged into one
// record shape.
type Device struct {
	// ID is the stable identity used in API calls: the sink name for
	// routable devices, the MAC for Bluetooth devices without a sink.
	ID string `json:"id"`

	// DisplayName is the human-readable label.
	DisplayName string `json:"display_name"`

	// Kind classifies the attachment: built-in, usb, or bluetooth.
	Kind Kind `json:"kind"`

	// Volume is the current playback volume 0-100. Nil when the device
	// has no sink and therefore no volume.
	Volume *int `json:"volume,omitempty"`

	// Muted reports whether the sink is muted. Only meaningful when the
	// device has a sink.
	Muted bool `json:"muted"`

	// IsActive marks the current default output. At most one device in a
	// snapshot is active.
	IsActive bool `json:"is_active"`

	// MAC is the Bluetooth hardware address, empty for wired devices.
	MAC string `json:"mac,omitempty"`

	// BluetoothState is the lifecycle state for Bluetooth devices, empty
	// otherwise.
	BluetoothState BluetoothState `json:"bluetooth_state,omitempty"`
}

// Routable reports whether audio can be directed at the device right now.
// Wired sinks always are; Bluetooth devices only once connected with a
// sink present.
func (d Device) Routable() bool {
	if d.Kind != KindBluetooth {
		return true
	}
	return d.BluetoothState == StateConnected && d.Volume != nil
}

// sinkMACRE matches the MAC embedded in a BlueZ sink name, e.g.
// bluez_output.AA_BB_CC_DD_EE_FF.1 or bluez_sink.AA:BB:CC:DD:EE:FF.a2dp_sink.
var sinkMACRE = regexp.MustCompile(`([0-9A-Fa-f]{2}[_:]){5}[0-9A-Fa-f]{2}`)

// macFromSinkName extracts and normalises the MAC from a BlueZ sink name.
// Returns "" when the name carries no address.
func macFromSinkName(name string) string {
	m := sinkMACRE.FindString(name)
	if m == "" {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(m, "_", ":"))
}

// normalizeMAC upper-cases a MAC address for comparison.
func normalizeMAC(mac string) string {
	return strings.ToUpper(mac)
}

// classifySink maps a sink name onto a device kind.
func classifySink(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "bluez"):
		return KindBluetooth
	case strings.Contains(lower, "usb"):
		return KindUSB
	default:
		return KindBuiltIn
	}
}
