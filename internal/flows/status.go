// Package flows implements the linear auth wizards: login with an optional
// second factor, OTP signup, password reset, password change and TOTP
// enrolment. Each wizard is a plain struct kept in the visitor's session and
// driven by handlers; backend calls go through small interfaces.
package flows

import (
	"errors"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/validation"
)

// Phase is where a wizard step stands.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// submitTimeout bounds how long a Submitting phase blocks a new submission.
const submitTimeout = time.Minute

var (
	// ErrInFlight rejects a submission while the previous one is still running.
	ErrInFlight = errors.New("a submission is already in progress")
	// ErrWrongStep rejects a step whose predecessor has not succeeded.
	ErrWrongStep = errors.New("this step is not available yet")
)

// Status is the Idle → Submitting → Done|Failed machine shared by all wizards.
type Status struct {
	Phase   Phase     `json:"phase,omitempty"`
	Message string    `json:"message,omitempty"`
	Since   time.Time `json:"since,omitempty"`
}

// Begin moves to Submitting. A Submitting phase older than submitTimeout is
// treated as abandoned.
func (s *Status) Begin(now time.Time) error {
	if s.Phase == PhaseSubmitting && now.Sub(s.Since) < submitTimeout {
		return ErrInFlight
	}
	s.Phase = PhaseSubmitting
	s.Message = ""
	s.Since = now
	return nil
}

// Submitting reports whether a submission is running.
func (s Status) Submitting() bool { return s.Phase == PhaseSubmitting }

// Failed reports whether the last submission failed.
func (s Status) Failed() bool { return s.Phase == PhaseFailed }

func (s *Status) succeed(msg string) {
	s.Phase = PhaseDone
	s.Message = msg
}

// idle returns to Idle keeping a message, for steps that advance the wizard.
func (s *Status) idle(msg string) {
	s.Phase = PhaseIdle
	s.Message = msg
}

func (s *Status) fail(err error) error {
	s.Phase = PhaseFailed
	s.Message = UserMessage(err)
	return err
}

// Generic notices for failures that carry no backend message.
const (
	MsgUnreachable = "Cannot reach the server. Please try again later."
	MsgUnexpected  = "Something went wrong. Please try again."
)

// UserMessage turns an error into the notice shown to the visitor.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *validation.Error
		be *api.BusinessError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, api.ErrSecondFactorRequired):
		return err.Error()
	case errors.As(err, &be):
		if be.Message == "" {
			return MsgUnexpected
		}
		return be.Message
	case errors.Is(err, api.ErrUnreachable):
		return MsgUnreachable
	case errors.Is(err, ErrInFlight), errors.Is(err, ErrWrongStep),
		errors.Is(err, ErrResendTooSoon), errors.Is(err, ErrNotSignedIn),
		errors.Is(err, ErrAlreadyEnabled):
		return err.Error()
	default:
		return MsgUnexpected
	}
}
