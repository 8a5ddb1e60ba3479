package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/flows"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
)

// AuthHandler bundles dependencies for the sign-in, sign-up and password
// recovery pages.
type AuthHandler struct {
	base
	client    *api.Client
	otpResend time.Duration
	now       func() time.Time
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(sessions *session.Manager, client *api.Client, otpResend time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		base:      newBase(sessions, logger),
		client:    client,
		otpResend: otpResend,
		now:       time.Now,
	}
}

type loginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Code     string `form:"code"`
}

// LoginPage renders the credentials step or, while a second factor is
// pending, the code step with the credentials locked.
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	st := s.Snapshot()
	if st.SignedIn() {
		return redirect(c, flows.LandingPath(st.User))
	}
	return h.render(c, "login", "Sign in", fiber.Map{
		"Email":  st.Login.Email,
		"Locked": st.Login.CredentialsLocked(),
	})
}

// Login submits the credentials.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var landing string
	err := s.Submit(func() error {
		login := s.Snapshot().Login
		res, err := login.Submit(c.UserContext(), h.client, req.Email, req.Password)
		s.Update(func(st *session.State) { st.Login = login })
		if err != nil {
			return err
		}
		landing, err = h.completeSignIn(c.UserContext(), s, res)
		return err
	})
	return h.afterLogin(c, err, landing)
}

// LoginCode resubmits the held credentials with a TOTP code.
func (h *AuthHandler) LoginCode(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var landing string
	err := s.Submit(func() error {
		login := s.Snapshot().Login
		res, err := login.SubmitCode(c.UserContext(), h.client, req.Code)
		s.Update(func(st *session.State) { st.Login = login })
		if err != nil {
			return err
		}
		landing, err = h.completeSignIn(c.UserContext(), s, res)
		return err
	})
	return h.afterLogin(c, err, landing)
}

// LoginCancel abandons a pending second factor.
func (h *AuthHandler) LoginCancel(c *fiber.Ctx) error {
	middleware.CurrentSession(c).Update(func(st *session.State) { st.Login.Cancel() })
	return redirect(c, "/login")
}

// completeSignIn attaches the backend session, then loads the user and the
// cart count. It returns where the user should land.
func (h *AuthHandler) completeSignIn(ctx context.Context, s *session.Session, res *api.SignInResult) (string, error) {
	if res.Token == "" {
		return "", fmt.Errorf("sign in: backend returned no session token")
	}
	user, err := h.client.CurrentUser(ctx, res.Token)
	if err != nil {
		return "", err
	}
	h.sessions.SignIn(s, res.Token, user)
	if err := h.sessions.RefreshCart(ctx, s); err != nil {
		h.log.Warn().Err(err).Str("session", s.ID.String()).Msg("cart count unavailable after sign in")
	}
	s.Flash(session.FlashSuccess, res.Message)
	h.log.Info().Str("session", s.ID.String()).Str("user", user.ID).Msg("signed in")
	return flows.LandingPath(user), nil
}

func (h *AuthHandler) afterLogin(c *fiber.Ctx, err error, landing string) error {
	switch {
	case err == nil:
		return redirect(c, landing)
	case errors.Is(err, api.ErrSecondFactorRequired):
		h.info(c, err.Error())
	default:
		h.fail(c, err)
	}
	return redirect(c, "/login")
}

// Logout ends the backend session and forgets the visitor's session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	if err := h.sessions.Destroy(c.UserContext(), s); err != nil {
		h.log.Error().Err(err).Str("session", s.ID.String()).Msg("failed to destroy session")
	}
	return redirect(c, "/")
}

type signupEmailRequest struct {
	Email string `form:"email"`
}

// SignupPage renders the email step.
func (h *AuthHandler) SignupPage(c *fiber.Ctx) error {
	st := middleware.CurrentSession(c).Snapshot()
	return h.render(c, "signup", "Sign up", fiber.Map{"Email": st.Signup.Email})
}

// SignupRequest asks the backend to email a signup code.
func (h *AuthHandler) SignupRequest(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req signupEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := s.Submit(func() error {
		signup := s.Snapshot().Signup
		msg, err := signup.RequestCode(c.UserContext(), h.client, req.Email)
		s.Update(func(st *session.State) { st.Signup = signup })
		if err == nil {
			s.Flash(session.FlashSuccess, msg)
		}
		return err
	})
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/sign-up")
	}
	return redirect(c, "/sign-up/complete")
}

// SignupCompletePage renders the code, name and password step.
func (h *AuthHandler) SignupCompletePage(c *fiber.Ctx) error {
	st := middleware.CurrentSession(c).Snapshot()
	if st.Signup.Step != flows.StepSignupCode {
		return redirect(c, "/sign-up")
	}
	return h.render(c, "signup_complete", "Sign up", fiber.Map{
		"Email":      st.Signup.Email,
		"CodeLength": flows.CodeLength,
	})
}

// SignupComplete verifies the code and creates the account.
func (h *AuthHandler) SignupComplete(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var in flows.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := s.Submit(func() error {
		signup := s.Snapshot().Signup
		msg, err := signup.Complete(c.UserContext(), h.client, in)
		s.Update(func(st *session.State) { st.Signup = signup })
		if err == nil {
			s.Flash(session.FlashSuccess, msg)
		}
		return err
	})
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/sign-up/complete")
	}
	return redirect(c, "/login")
}

// reset returns the session's recovery wizard, starting one when absent.
func (h *AuthHandler) reset(s *session.Session) flows.Reset {
	st := s.Snapshot()
	if st.Reset == nil {
		return *flows.NewReset(h.otpResend)
	}
	return *st.Reset
}

// runReset runs fn against the recovery wizard and stores the result.
func (h *AuthHandler) runReset(s *session.Session, fn func(r *flows.Reset) (string, error)) error {
	return s.Submit(func() error {
		r := h.reset(s)
		msg, err := fn(&r)
		s.Update(func(st *session.State) { st.Reset = &r })
		if err == nil {
			s.Flash(session.FlashSuccess, msg)
		}
		return err
	})
}

// ForgotPage renders whichever recovery step is current.
func (h *AuthHandler) ForgotPage(c *fiber.Ctx) error {
	r := h.reset(middleware.CurrentSession(c))
	return h.render(c, "forgot_password", "Forgot password", fiber.Map{
		"Step":       string(r.Step),
		"Email":      r.Email,
		"ResendIn":   int(r.ResendIn(h.now()).Seconds()),
		"CodeLength": flows.ResetCodeLength,
	})
}

type resetRequest struct {
	Email string `form:"email"`
	Code  string `form:"otp"`
}

// ForgotRequest sends, or resends, the recovery code.
func (h *AuthHandler) ForgotRequest(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	err := h.runReset(s, func(r *flows.Reset) (string, error) {
		return r.RequestCode(c.UserContext(), h.client, req.Email, h.now())
	})
	if err != nil {
		h.fail(c, err)
	}
	return redirect(c, "/forgot-password")
}

// ForgotVerify checks the recovery code.
func (h *AuthHandler) ForgotVerify(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	err := h.runReset(s, func(r *flows.Reset) (string, error) {
		return r.VerifyCode(c.UserContext(), h.client, req.Code)
	})
	if err != nil {
		h.fail(c, err)
	}
	return redirect(c, "/forgot-password")
}

// ForgotReset stores the new password.
func (h *AuthHandler) ForgotReset(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var in flows.ResetPasswordInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	err := h.runReset(s, func(r *flows.Reset) (string, error) {
		return r.SetPassword(c.UserContext(), h.client, in)
	})
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/forgot-password")
	}
	s.Update(func(st *session.State) { st.Reset = nil })
	return redirect(c, "/login")
}

// ForgotRestart abandons recovery and returns to the email step.
func (h *AuthHandler) ForgotRestart(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	r := h.reset(s)
	r.Restart()
	s.Update(func(st *session.State) { st.Reset = &r })
	return redirect(c, "/forgot-password")
}
