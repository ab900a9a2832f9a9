package device

import "errors"

var (
	// ErrInvalidVolume indicates a volume outside the 0-100 range.
	ErrInvalidVolume = errors.New("device: volume must be between 0 and 100")

	// ErrNoActiveDevice indicates no default output is configured.
	ErrNoActiveDevice = errors.New("device: no active output device")

	// ErrDeviceNotFound indicates the requested device is not in the
	// current snapshot.
	ErrDeviceNotFound = errors.New("device: device not found")

	// ErrDeviceNotRoutable indicates the device exists but cannot take
	// audio yet, typically a Bluetooth device that is not connected.
	ErrDeviceNotRoutable = errors.New("device: device is not routable")
)
