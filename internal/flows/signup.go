package flows

import (
	"context"
	"time"

	"github.com/example/storefront/internal/validation"
)

// SignupStep is the visible step of the signup wizard.
type SignupStep string

const (
	StepSignupEmail SignupStep = "email"
	StepSignupCode  SignupStep = "code"
)

// Registrar is the backend surface of signup.
type Registrar interface {
	SendSignupOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	SetPassword(ctx context.Context, email, name, password string) (string, error)
}

// Signup is the OTP-gated signup wizard.
type Signup struct {
	Status
	Step  SignupStep `json:"step,omitempty"`
	Email string     `json:"email,omitempty"`
}

type signupEmailForm struct {
	Email string `form:"email" validate:"required,email"`
}

// SignupInput is the completion form.
type SignupInput struct {
	Code     string `form:"otp" validate:"required,len=6,digits"`
	Name     string `form:"name" validate:"required"`
	Password string `form:"password" validate:"required,strongpwd"`
	Confirm  string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

// RequestCode emails a signup code. Validation failures make no call.
func (f *Signup) RequestCode(ctx context.Context, reg Registrar, email string) (string, error) {
	if err := validation.Struct(signupEmailForm{Email: email}); err != nil {
		return "", f.fail(err)
	}
	if err := f.Begin(time.Now()); err != nil {
		return "", err
	}

	msg, err := reg.SendSignupOTP(ctx, email)
	if err != nil {
		return "", f.fail(err)
	}
	f.Step = StepSignupCode
	f.Email = email
	f.idle(msg)
	return msg, nil
}

// Complete verifies the code and sets name and password as one submission.
func (f *Signup) Complete(ctx context.Context, reg Registrar, in SignupInput) (string, error) {
	if f.Step != StepSignupCode || f.Email == "" {
		return "", f.fail(ErrWrongStep)
	}
	if err := validation.Struct(in); err != nil {
		return "", f.fail(err)
	}
	if err := f.Begin(time.Now()); err != nil {
		return "", err
	}

	if _, err := reg.VerifyOTP(ctx, f.Email, in.Code); err != nil {
		return "", f.fail(err)
	}
	msg, err := reg.SetPassword(ctx, f.Email, in.Name, in.Password)
	if err != nil {
		return "", f.fail(err)
	}
	f.Step = StepSignupEmail
	f.Email = ""
	f.succeed(msg)
	return msg, nil
}
