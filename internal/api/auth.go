package api

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrSecondFactorRequired is returned by SignIn when the account needs a TOTP code.
var ErrSecondFactorRequired = errors.New("second factor required")

type signInRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	TwoFactorToken string `json:"twoFactorToken,omitempty"`
}

type signInResponse struct {
	Envelope
	Requires2FA bool            `json:"requires2FA"`
	User        *User           `json:"user"`
	Token       string          `json:"token"`
	Data        json.RawMessage `json:"data"`
}

// SignInResult is a successful sign-in.
type SignInResult struct {
	Token   string
	User    *User
	Message string
}

// SignIn authenticates credentials, with code set on the second attempt of a
// 2FA login. The backend session token is taken from the Set-Cookie header,
// falling back to the body.
func (c *Client) SignIn(ctx context.Context, email, password, code string) (*SignInResult, error) {
	var resp signInResponse
	res, err := c.Call(ctx, c.reg.MustLookup(OpSignIn), "", signInRequest{
		Email:          email,
		Password:       password,
		TwoFactorToken: code,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Requires2FA {
		return nil, &secondFactorError{message: resp.Message}
	}
	if err := resp.Err(res.Status); err != nil {
		return nil, err
	}

	token := res.Cookie(c.cookieName)
	if token == "" {
		token = resp.Token
	}
	if token == "" && len(resp.Data) > 0 {
		_ = json.Unmarshal(resp.Data, &token)
	}
	if token == "" {
		return nil, &BusinessError{Status: res.Status, Message: "sign-in succeeded but no session token was issued"}
	}

	return &SignInResult{Token: token, User: resp.User, Message: resp.Message}, nil
}

type secondFactorError struct {
	message string
}

func (e *secondFactorError) Error() string {
	if e.message == "" {
		return ErrSecondFactorRequired.Error()
	}
	return e.message
}

func (e *secondFactorError) Is(target error) bool {
	return target == ErrSecondFactorRequired
}

// CurrentUser fetches the account behind token.
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var resp dataResponse[*User]
	if _, err := c.call(ctx, OpCurrentUser, token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &BusinessError{Message: "user details missing"}
	}
	return resp.Data, nil
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context, token string) error {
	var resp Envelope
	_, err := c.call(ctx, OpLogout, token, nil, &resp)
	return err
}

// SendSignupOTP emails a signup code. It returns the backend's message.
func (c *Client) SendSignupOTP(ctx context.Context, email string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpSendSignupOTP, "", map[string]string{"email": email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// VerifyOTP checks a signup code.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpVerifyOTP, "", map[string]string{"email": email, "otp": otp}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// SetPassword completes a signup.
func (c *Client) SetPassword(ctx context.Context, email, name, password string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpSetPassword, "", map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ForgotPassword emails a password reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpForgotPassword, "", map[string]string{"email": email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// VerifyResetOTP checks a password reset code.
func (c *Client) VerifyResetOTP(ctx context.Context, email, otp string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpVerifyResetOTP, "", map[string]string{"email": email, "otp": otp}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword sets a new password after a verified reset code.
func (c *Client) ResetPassword(ctx context.Context, email, password string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpResetPassword, "", map[string]string{
		"email":       email,
		"newPassword": password,
	}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpChangePassword, token, map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

type twoFactorSetupResponse struct {
	Envelope
	TwoFactorSetup
}

// TwoFactorSetup starts TOTP enrolment and returns the QR image and secret.
func (c *Client) TwoFactorSetup(ctx context.Context, token string) (*TwoFactorSetup, error) {
	var resp twoFactorSetupResponse
	if _, err := c.call(ctx, OpTwoFactorSetup, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.TwoFactorSetup, nil
}

// TwoFactorVerify activates TOTP with the first code from the authenticator.
func (c *Client) TwoFactorVerify(ctx context.Context, token, code string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpTwoFactorVerify, token, map[string]string{"token": code}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
