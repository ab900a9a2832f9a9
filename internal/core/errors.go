package core

import "errors"

var (
	// ErrScanInProgress indicates a discovery scan is already running.
	ErrScanInProgress = errors.New("core: scan already in progress")

	// ErrSessionCancelled indicates a pairing session was superseded by a
	// newer request for the same device.
	ErrSessionCancelled = errors.New("core: session cancelled")

	// ErrTimeout indicates a pairing session exceeded its deadline.
	ErrTimeout = errors.New("core: session timed out")
)
