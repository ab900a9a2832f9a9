package audio

import "errors"

// Domain errors for the audio package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, audio.ErrBackend) {
//	    // sound server unreachable or returned garbage
//	}
var (
	// ErrBackend is returned when a sound-server invocation fails or its
	// output cannot be parsed. Parse failures are never silently defaulted.
	ErrBackend = errors.New("audio: backend failure")

	// ErrSinkNotFound is returned when a sink ID is not known to the
	// sound server.
	ErrSinkNotFound = errors.New("audio: sink not found")
)
