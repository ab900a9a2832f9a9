package audio

import "context"

// Sink describes one output endpoint reported by the sound server.
type Sink struct {
	// ID is the sink name as reported by the sound server
	// (e.g. "alsa_output.pci-0000_00_1f.3.analog-stereo" or
	// "bluez_output.AA_BB_CC_DD_EE_FF.1").
	ID string

	// Description is the human-readable sink description.
	Description string

	// Volume is the flat volume as an integer percent.
	Volume int

	// Muted reports whether the sink is muted.
	Muted bool

	// IsDefault reports whether this sink is the current default sink.
	IsDefault bool
}

// Backend is the narrow interface to the host sound server.
//
// Implementations must be safe for concurrent reads; mutating calls
// (SetVolume, SetDefault) are serialized by the implementation since the
// sound server offers no locking guarantees of its own.
type Backend interface {
	// ListSinks returns the current sink snapshot, default-sink flag included.
	ListSinks(ctx context.Context) ([]Sink, error)

	// SetVolume sets the volume of the given sink to an integer percent.
	SetVolume(ctx context.Context, id string, percent int) error

	// SetDefault makes the given sink the default output.
	SetDefault(ctx context.Context, id string) error
}
