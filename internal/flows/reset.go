package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/internal/validation"
)

// ResetCodeLength is the size of an emailed password reset code.
const ResetCodeLength = 5

// ResetStep is the visible step of the password reset wizard.
type ResetStep string

const (
	StepResetEmail    ResetStep = "email"
	StepResetCode     ResetStep = "code"
	StepResetPassword ResetStep = "password"
)

// ErrResendTooSoon rejects a new code before the cooldown has run out.
var ErrResendTooSoon = errors.New("please wait before requesting another code")

// Recoverer is the backend surface of password reset.
type Recoverer interface {
	ForgotPassword(ctx context.Context, email string) (string, error)
	VerifyResetOTP(ctx context.Context, email, otp string) (string, error)
	ResetPassword(ctx context.Context, email, password string) (string, error)
}

// Reset is the three step password reset wizard.
type Reset struct {
	Status
	Step     ResetStep     `json:"step,omitempty"`
	Email    string        `json:"email,omitempty"`
	SentAt   time.Time     `json:"sentAt,omitempty"`
	Cooldown time.Duration `json:"cooldown,omitempty"`
}

type resetCodeForm struct {
	Code string `form:"otp" validate:"required,len=5,digits"`
}

// ResetPasswordInput is the final form.
type ResetPasswordInput struct {
	Password string `form:"password" validate:"required,strongpwd"`
	Confirm  string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

// NewReset starts a wizard whose resend button is disabled for cooldown
// after every send.
func NewReset(cooldown time.Duration) *Reset {
	return &Reset{Step: StepResetEmail, Cooldown: cooldown}
}

// ResendIn is how long the resend button stays disabled at now.
func (f *Reset) ResendIn(now time.Time) time.Duration {
	if f.SentAt.IsZero() {
		return 0
	}
	left := f.SentAt.Add(f.Cooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left.Truncate(time.Second)
}

// Restart returns to the email step. The cooldown of the last send still
// applies, whichever address is entered next.
func (f *Reset) Restart() {
	*f = Reset{Step: StepResetEmail, Cooldown: f.Cooldown, SentAt: f.SentAt}
}

// RequestCode emails a reset code, also serving as resend from the code step.
func (f *Reset) RequestCode(ctx context.Context, rec Recoverer, email string, now time.Time) (string, error) {
	if f.Step == StepResetCode && email == "" {
		email = f.Email
	}
	if err := validation.Struct(signupEmailForm{Email: email}); err != nil {
		return "", f.fail(err)
	}
	if left := f.ResendIn(now); left > 0 {
		return "", f.fail(fmt.Errorf("%w (%s)", ErrResendTooSoon, left))
	}
	if err := f.Begin(now); err != nil {
		return "", err
	}

	msg, err := rec.ForgotPassword(ctx, email)
	if err != nil {
		return "", f.fail(err)
	}
	f.Step = StepResetCode
	f.Email = email
	f.SentAt = now
	f.idle(msg)
	return msg, nil
}

// VerifyCode checks the emailed code.
func (f *Reset) VerifyCode(ctx context.Context, rec Recoverer, code string) (string, error) {
	if f.Step != StepResetCode {
		return "", f.fail(ErrWrongStep)
	}
	if err := validation.Struct(resetCodeForm{Code: code}); err != nil {
		return "", f.fail(err)
	}
	if err := f.Begin(time.Now()); err != nil {
		return "", err
	}

	msg, err := rec.VerifyResetOTP(ctx, f.Email, code)
	if err != nil {
		return "", f.fail(err)
	}
	f.Step = StepResetPassword
	f.idle(msg)
	return msg, nil
}

// SetPassword stores the new password for the verified email.
func (f *Reset) SetPassword(ctx context.Context, rec Recoverer, in ResetPasswordInput) (string, error) {
	if f.Step != StepResetPassword {
		return "", f.fail(ErrWrongStep)
	}
	if err := validation.Struct(in); err != nil {
		return "", f.fail(err)
	}
	if err := f.Begin(time.Now()); err != nil {
		return "", err
	}

	msg, err := rec.ResetPassword(ctx, f.Email, in.Password)
	if err != nil {
		return "", f.fail(err)
	}
	f.Step = StepResetEmail
	f.Email = ""
	f.SentAt = time.Time{}
	f.succeed(msg)
	return msg, nil
}
