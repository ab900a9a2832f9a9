package bluetooth

import "errors"

// Domain errors for the bluetooth package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, bluetooth.ErrBackend) {
//	    // bluetoothctl failed or produced unparseable output
//	}
var (
	// ErrBackend is returned when a bluetoothctl invocation fails or its
	// output cannot be parsed.
	ErrBackend = errors.New("bluetooth: backend failure")

	// ErrInvalidAddress is returned when a MAC address is malformed.
	ErrInvalidAddress = errors.New("bluetooth: invalid MAC address")

	// ErrPairFailed is returned when the stack rejects a pairing attempt.
	ErrPairFailed = errors.New("bluetooth: pairing failed")

	// ErrConnectFailed is returned when the stack rejects a connection attempt.
	ErrConnectFailed = errors.New("bluetooth: connection failed")
)
