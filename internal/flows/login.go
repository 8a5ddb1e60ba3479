package flows

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/validation"
)

// CodeLength is the size of signup and TOTP codes.
const CodeLength = 6

// LoginStep is the visible step of the login form.
type LoginStep string

const (
	StepCredentials  LoginStep = "credentials"
	StepSecondFactor LoginStep = "second-factor"
)

// Authenticator signs a visitor in.
type Authenticator interface {
	SignIn(ctx context.Context, email, password, code string) (*api.SignInResult, error)
}

// Login is the login wizard. While Step is StepSecondFactor the credentials
// are held here so they can be resubmitted with the code; the session seals
// Password at rest.
type Login struct {
	Status
	Step     LoginStep `json:"step,omitempty"`
	Email    string    `json:"email,omitempty"`
	Password string    `json:"password,omitempty"`
}

type credentialsForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type codeForm struct {
	Code string `form:"code" validate:"required,len=6,digits"`
}

// CredentialsLocked reports whether email and password are frozen because
// the code field is showing.
func (f *Login) CredentialsLocked() bool {
	return f.Step == StepSecondFactor
}

// Submit sends the credentials. ErrSecondFactorRequired moves the wizard to
// the code step and is returned so the caller can render it.
func (f *Login) Submit(ctx context.Context, auth Authenticator, email, password string) (*api.SignInResult, error) {
	if f.CredentialsLocked() {
		return nil, f.fail(ErrWrongStep)
	}
	if err := validation.Struct(credentialsForm{Email: email, Password: password}); err != nil {
		return nil, f.fail(err)
	}
	if err := f.Begin(time.Now()); err != nil {
		return nil, err
	}

	res, err := auth.SignIn(ctx, email, password, "")
	if errors.Is(err, api.ErrSecondFactorRequired) {
		f.Step = StepSecondFactor
		f.Email = email
		f.Password = password
		f.idle(err.Error())
		return nil, err
	}
	if err != nil {
		return nil, f.fail(err)
	}
	f.finish(res.Message)
	return res, nil
}

// SubmitCode resubmits the held credentials with a TOTP code. A wrong code
// keeps the wizard on the code step.
func (f *Login) SubmitCode(ctx context.Context, auth Authenticator, code string) (*api.SignInResult, error) {
	if !f.CredentialsLocked() {
		return nil, f.fail(ErrWrongStep)
	}
	if err := validation.Struct(codeForm{Code: code}); err != nil {
		return nil, f.fail(err)
	}
	if err := f.Begin(time.Now()); err != nil {
		return nil, err
	}

	res, err := auth.SignIn(ctx, f.Email, f.Password, code)
	if err != nil {
		return nil, f.fail(err)
	}
	f.finish(res.Message)
	return res, nil
}

// Cancel drops the held credentials and returns to the first step.
func (f *Login) Cancel() {
	*f = Login{}
}

func (f *Login) finish(msg string) {
	f.Step = StepCredentials
	f.Email = ""
	f.Password = ""
	f.succeed(msg)
}

// LandingPath is where a freshly signed-in user is sent.
func LandingPath(u *api.User) string {
	if u.IsAdmin() {
		return "/admin-panel"
	}
	return "/"
}
