package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSession_OutcomeTimeout(t *testing.T) {
	s := newSession(context.Background(), "AA:BB:CC:DD:EE:FF", 10*time.Millisecond)
	defer s.release()

	<-s.ctx.Done()

	if got := s.outcome(s.ctx.Err()); got != ReasonTimeout {
		t.Errorf("outcome() = %q, want %q", got, ReasonTimeout)
	}
}

func TestSession_OutcomeSuperseded(t *testing.T) {
	s := newSession(context.Background(), "AA:BB:CC:DD:EE:FF", time.Minute)
	defer s.release()

	s.supersede()
	<-s.ctx.Done()

	if got := s.outcome(s.ctx.Err()); got != ReasonSuperseded {
		t.Errorf("outcome() = %q, want %q", got, ReasonSuperseded)
	}
}

func TestSession_OutcomeBackendError(t *testing.T) {
	s := newSession(context.Background(), "AA:BB:CC:DD:EE:FF", time.Minute)
	defer s.release()

	backendErr := errors.New("AuthenticationFailed")
	if got := s.outcome(backendErr); got != "AuthenticationFailed" {
		t.Errorf("outcome() = %q, want the backend error text", got)
	}
}

func TestSession_SupersedeWinsOverLaterDeadline(t *testing.T) {
	s := newSession(context.Background(), "AA:BB:CC:DD:EE:FF", 20*time.Millisecond)
	defer s.release()

	s.supersede()
	// Let the deadline pass too; the recorded cause must stay the
	// supersede, not flip to timeout.
	time.Sleep(40 * time.Millisecond)

	if got := s.outcome(s.ctx.Err()); got != ReasonSuperseded {
		t.Errorf("outcome() = %q, want %q", got, ReasonSuperseded)
	}
}

func TestResult_Failed(t *testing.T) {
	if (Result{State: StatePaired}).Failed() {
		t.Error("paired result reported as failed")
	}
	if !(Result{State: StateFailed}).Failed() {
		t.Error("failed result not reported as failed")
	}
}
