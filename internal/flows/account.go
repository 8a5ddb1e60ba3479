package flows

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/validation"
)

// PasswordChanger changes the password of a signed-in user.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, token, oldPassword, newPassword string) (string, error)
}

// ChangePasswordInput is the change password form.
type ChangePasswordInput struct {
	Old     string `form:"oldPassword" validate:"required"`
	New     string `form:"newPassword" validate:"required"`
	Confirm string `form:"confirmPassword" validate:"required,eqfield=New"`
}

// ErrNotSignedIn rejects account operations without a backend session.
var ErrNotSignedIn = errors.New("you must sign in first")

// ChangePassword validates the form and changes the password. The caller
// refreshes the session and sends the visitor home on success.
func ChangePassword(ctx context.Context, pc PasswordChanger, token string, in ChangePasswordInput) (string, error) {
	if token == "" {
		return "", ErrNotSignedIn
	}
	if err := validation.Struct(in); err != nil {
		return "", err
	}
	return pc.ChangePassword(ctx, token, in.Old, in.New)
}

// TwoFactorStep is the visible step of TOTP enrolment.
type TwoFactorStep string

const (
	StepTwoFactorStart TwoFactorStep = "start"
	StepTwoFactorScan  TwoFactorStep = "scan"
)

// ErrAlreadyEnabled is returned by Start when the account already has TOTP.
var ErrAlreadyEnabled = errors.New("two-factor authentication is already enabled")

// Enroller is the backend surface of TOTP enrolment.
type Enroller interface {
	TwoFactorSetup(ctx context.Context, token string) (*api.TwoFactorSetup, error)
	TwoFactorVerify(ctx context.Context, token, code string) (string, error)
}

// TwoFactor is the TOTP enrolment wizard.
type TwoFactor struct {
	Status
	Step        TwoFactorStep `json:"step,omitempty"`
	QRCodeImage string        `json:"qrCodeImage,omitempty"`
	Secret      string        `json:"secret,omitempty"`
}

// Start fetches the QR code and secret. It does nothing for a user who
// already has TOTP enabled.
func (f *TwoFactor) Start(ctx context.Context, en Enroller, token string, user *api.User) error {
	if user == nil {
		return f.fail(ErrNotSignedIn)
	}
	if user.TwoFactorEnabled {
		f.idle(ErrAlreadyEnabled.Error())
		return ErrAlreadyEnabled
	}
	if err := f.Begin(time.Now()); err != nil {
		return err
	}

	setup, err := en.TwoFactorSetup(ctx, token)
	if err != nil {
		return f.fail(err)
	}
	f.Step = StepTwoFactorScan
	f.QRCodeImage = setup.QRCodeImage
	f.Secret = setup.Secret
	f.idle("")
	return nil
}

// Activate confirms enrolment with the first code. A rejected code discards
// the secret and the wizard starts over.
func (f *TwoFactor) Activate(ctx context.Context, en Enroller, token, code string) (string, error) {
	if f.Step != StepTwoFactorScan {
		return "", f.fail(ErrWrongStep)
	}
	if err := validation.Struct(codeForm{Code: code}); err != nil {
		return "", f.fail(err)
	}
	if err := f.Begin(time.Now()); err != nil {
		return "", err
	}

	msg, err := en.TwoFactorVerify(ctx, token, code)
	f.Step = StepTwoFactorStart
	f.QRCodeImage = ""
	f.Secret = ""
	if err != nil {
		return "", f.fail(err)
	}
	f.succeed(msg)
	return msg, nil
}
