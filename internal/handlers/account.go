package handlers

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/flows"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
)

// AccountHandler serves the signed-in user's own pages.
type AccountHandler struct {
	base
	client *api.Client
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(sessions *session.Manager, client *api.Client, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{base: newBase(sessions, logger), client: client}
}

// ChangePasswordPage renders the change password form.
func (h *AccountHandler) ChangePasswordPage(c *fiber.Ctx) error {
	return h.render(c, "change_password", "Change password", nil)
}

// ChangePassword changes the password, then reloads the session's user and
// cart before going home.
func (h *AccountHandler) ChangePassword(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var in flows.ChangePasswordInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var msg string
	err := s.Submit(func() error {
		var err error
		msg, err = flows.ChangePassword(c.UserContext(), h.client, s.Token(), in)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/change-password")
	}

	h.success(c, msg)
	h.reload(c, s)
	return redirect(c, "/")
}

func (h *AccountHandler) reload(c *fiber.Ctx, s *session.Session) {
	if err := h.sessions.RefreshUser(c.UserContext(), s); err != nil {
		h.log.Warn().Err(err).Str("session", s.ID.String()).Msg("user refresh failed")
	}
	if err := h.sessions.RefreshCart(c.UserContext(), s); err != nil {
		h.log.Warn().Err(err).Str("session", s.ID.String()).Msg("cart count refresh failed")
	}
}

// TwoFactorPage renders TOTP enrolment.
func (h *AccountHandler) TwoFactorPage(c *fiber.Ctx) error {
	st := middleware.CurrentSession(c).Snapshot()
	return h.render(c, "two_factor", "Two-factor authentication", fiber.Map{
		"Enabled":     st.User != nil && st.User.TwoFactorEnabled,
		"Step":        string(st.TwoFactor.Step),
		"QRCodeImage": st.TwoFactor.QRCodeImage,
		"Secret":      st.TwoFactor.Secret,
		"CodeLength":  flows.CodeLength,
	})
}

// TwoFactorStart fetches a QR code and secret to scan.
func (h *AccountHandler) TwoFactorStart(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	err := s.Submit(func() error {
		tf := s.Snapshot().TwoFactor
		err := tf.Start(c.UserContext(), h.client, s.Token(), s.User())
		s.Update(func(st *session.State) { st.TwoFactor = tf })
		return err
	})
	switch {
	case errors.Is(err, flows.ErrAlreadyEnabled):
		h.info(c, notice(err))
	case err != nil:
		h.fail(c, err)
	}
	return redirect(c, "/2fa/setup")
}

type codeRequest struct {
	Code string `form:"code"`
}

// TwoFactorVerify activates TOTP with the first code.
func (h *AccountHandler) TwoFactorVerify(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := s.Submit(func() error {
		tf := s.Snapshot().TwoFactor
		msg, err := tf.Activate(c.UserContext(), h.client, s.Token(), req.Code)
		s.Update(func(st *session.State) { st.TwoFactor = tf })
		if err == nil {
			s.Flash(session.FlashSuccess, msg)
		}
		return err
	})
	if err != nil {
		h.fail(c, err)
	} else if refreshErr := h.sessions.RefreshUser(c.UserContext(), s); refreshErr != nil {
		h.log.Warn().Err(refreshErr).Str("session", s.ID.String()).Msg("user refresh failed")
	}
	return redirect(c, "/2fa/setup")
}

// MyOrders lists the user's orders, newest first.
func (h *AccountHandler) MyOrders(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	orders, err := h.client.UserOrders(c.UserContext(), s.Token())
	if err != nil {
		h.fail(c, err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return h.render(c, "my_orders", "My orders", fiber.Map{"Orders": orders})
}
