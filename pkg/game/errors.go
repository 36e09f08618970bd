package game

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvariant marks programmer errors such as malformed rounds.
var ErrInvariant = errors.New("game invariant violated")

type InsufficientContentError struct {
	Word     string
	Attempts int
	Cause    error
}

func (e *InsufficientContentError) Error() string {
	msg := fmt.Sprintf("not enough content for %q after %d attempts", e.Word, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InsufficientContentError) Unwrap() error { return e.Cause }

type InvalidChoiceError struct {
	Choice int
}

func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("invalid choice %d: must be 0 or 1", e.Choice)
}

type AlreadyResolvedError struct {
	RoundID string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("round %s is already resolved", e.RoundID)
}

type NoActiveRoundError struct{}

func (e *NoActiveRoundError) Error() string { return "no active round" }

// RoundInProgressError is returned when a round is started while another one
// still awaits a choice.
type RoundInProgressError struct {
	RoundID string
}

func (e *RoundInProgressError) Error() string {
	return fmt.Sprintf("round %s is still awaiting a choice", e.RoundID)
}

type ProviderTimeoutError struct {
	Bias    string
	Timeout time.Duration
	Cause   error
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("content provider timed out after %s (%s pool)", e.Timeout, e.Bias)
}

func (e *ProviderTimeoutError) Unwrap() error { return e.Cause }

type ProviderTransportError struct {
	Bias  string
	Cause error
}

func (e *ProviderTransportError) Error() string {
	return fmt.Sprintf("content provider failed (%s pool): %v", e.Bias, e.Cause)
}

func (e *ProviderTransportError) Unwrap() error { return e.Cause }

type PersistenceError struct {
	SessionID string
	Op        string
	Cause     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed for session %s: %v", e.Op, e.SessionID, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
