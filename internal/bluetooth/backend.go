package bluetooth

import (
	"context"
	"regexp"
	"time"
)

// Found is one device reported during discovery.
type Found struct {
	MAC  string
	Name string
}

// PairedDevice is one entry from the adapter's paired-device list.
type PairedDevice struct {
	MAC       string
	Name      string
	Connected bool
}

// Backend is the narrow interface to the host Bluetooth stack.
//
// Pair and Connect are long-running calls bounded by their context
// deadline; Cancel asks the stack to abort an in-flight pairing attempt
// and is best-effort.
type Backend interface {
	// Discover scans for nearby devices for the given window. Devices are
	// streamed on the returned channel as they appear; the channel is
	// closed once the window elapses. The error return covers failure to
	// start the scan, not failures of individual reports.
	Discover(ctx context.Context, window time.Duration) (<-chan Found, error)

	// PairedDevices returns the adapter's current paired-device snapshot,
	// including whether each device is presently connected.
	PairedDevices(ctx context.Context) ([]PairedDevice, error)

	// Pair pairs with the given device. Already-paired devices are not an
	// error. The context deadline bounds the attempt.
	Pair(ctx context.Context, mac string) error

	// Connect connects to the given (paired) device. The context deadline
	// bounds the attempt.
	Connect(ctx context.Context, mac string) error

	// Cancel aborts an in-flight pairing attempt for the given device.
	Cancel(ctx context.Context, mac string) error
}

// macRE matches a colon-separated Bluetooth MAC address.
var macRE = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// ValidMAC reports whether s is a well-formed Bluetooth MAC address.
func ValidMAC(s string) bool {
	return macRE.MatchString(s)
}
