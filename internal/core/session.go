package core

import (
	"context"
	"errors"
	"time"
)

// SessionState is a pairing session's position in its lifecycle.
type SessionState string

const (
	StateIdle        SessionState = "idle"
	StateDiscovering SessionState = "discovering"
	StateDiscovered  SessionState = "discovered"
	StatePairing     SessionState = "pairing"
	StatePaired      SessionState = "paired"
	StateConnecting  SessionState = "connecting"
	StateConnected   SessionState = "connected"
	StateFailed      SessionState = "failed"
)

// Failure reasons reported on a failed session result.
const (
	ReasonTimeout    = "timeout"
	ReasonSuperseded = "superseded"
)

// Result is the terminal outcome of a pairing or connection session.
type Result struct {
	MAC    string       `json:"mac"`
	Name   string       `json:"name,omitempty"`
	State  SessionState `json:"state"`
	Reason string       `json:"reason,omitempty"`
}

// Failed reports whether the session ended in the failed state.
func (r Result) Failed() bool {
	return r.State == StateFailed
}

// session is one in-flight pair or connect attempt for a single device.
// At most one session per MAC is live at a time; a newer request for the
// same MAC cancels the older session with ErrSessionCancelled.
type session struct {
	mac            string
	ctx            context.Context
	cancel         context.CancelCauseFunc
	cancelDeadline context.CancelFunc
}

// newSession builds a session context off the caller's context with the
// given deadline. The deadline fires with ErrTimeout as its cause so the
// outcome can be told apart from a supersede cancellation.
func newSession(parent context.Context, mac string, timeout time.Duration) *session {
	ctx, cancel := context.WithCancelCause(parent)
	ctx, cancelDeadline := context.WithDeadlineCause(ctx, time.Now().Add(timeout), ErrTimeout)
	return &session{mac: mac, ctx: ctx, cancel: cancel, cancelDeadline: cancelDeadline}
}

// supersede cancels the session because a newer request took over.
func (s *session) supersede() {
	s.cancel(ErrSessionCancelled)
}

// release frees the session's contexts after it has finished.
func (s *session) release() {
	s.cancelDeadline()
	s.cancel(nil)
}

// outcome classifies why a session's backend call failed, preferring the
// context cause over the raw backend error.
func (s *session) outcome(err error) (reason string) {
	cause := context.Cause(s.ctx)
	switch {
	case errors.Is(cause, ErrTimeout):
		return ReasonTimeout
	case errors.Is(cause, ErrSessionCancelled):
		return ReasonSuperseded
	case cause != nil && !errors.Is(cause, context.Canceled):
		return cause.Error()
	case err != nil:
		return err.Error()
	default:
		return "unknown failure"
	}
}
