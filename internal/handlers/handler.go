package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/flows"
	"github.com/example/storefront/internal/geo"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/validation"
)

// Pages without header and footer.
var bareRoutes = []string{
	"/login", "/sign-up", "/forgot-password", "/reset-password",
	"/change-password", "/cart", "/payment", "/qr-payment", "/my-orders", "/privacy-policy",
}

// Pages with a header but no footer.
var noFooterRoutes = []string{
	"/admin-panel/all-users", "/admin-panel/all-products", "/admin-panel/all-payment",
}

func matchesRoute(list []string, path string) bool {
	for _, r := range list {
		if path == r || strings.HasPrefix(path, r+"/") {
			return true
		}
	}
	return false
}

// HideHeader reports whether path renders without the site header.
func HideHeader(path string) bool {
	return matchesRoute(bareRoutes, path)
}

// HideFooter reports whether path renders without the site footer.
func HideFooter(path string) bool {
	return HideHeader(path) || matchesRoute(noFooterRoutes, path)
}

// base carries what every page handler needs to render and flash.
type base struct {
	sessions *session.Manager
	log      zerolog.Logger
}

func newBase(sessions *session.Manager, logger zerolog.Logger) base {
	return base{sessions: sessions, log: logger}
}

// render executes a page with the shell data every template expects.
func (b base) render(c *fiber.Ctx, page, title string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	s := middleware.CurrentSession(c)
	path := c.Path()

	if _, ok := data["Query"]; !ok {
		data["Query"] = ""
	}
	data["Title"] = title
	data["Path"] = path
	data["CSRF"] = middleware.CSRFToken(c)
	data["HideHeader"] = HideHeader(path)
	data["HideFooter"] = HideFooter(path)
	if s != nil {
		data["Session"] = b.sessions.Get(s)
		data["Flashes"] = s.TakeFlashes()
	}
	return c.Render(page, data)
}

// fail queues err as a notice. Validation errors carry every field message.
func (b base) fail(c *fiber.Ctx, err error) {
	s := middleware.CurrentSession(c)
	var ve *validation.Error
	if errors.As(err, &ve) {
		for _, msg := range ve.Messages() {
			s.Flash(session.FlashError, msg)
		}
		return
	}
	if errors.Is(err, api.ErrUnreachable) {
		b.log.Warn().Err(err).Str("path", c.Path()).Msg("backend unreachable")
	}
	s.Flash(session.FlashError, notice(err))
}

// Errors whose text is fit for visitors as is.
var visibleErrors = []error{
	checkout.ErrCartNotCleared,
	checkout.ErrMethodDisabled,
	checkout.ErrUnknownPayPalOrder,
	geo.ErrIncomplete,
	geo.ErrUnknownDivision,
}

// notice is the text shown to the visitor for err.
func notice(err error) string {
	for _, target := range visibleErrors {
		if errors.Is(err, target) {
			msg := target.Error()
			return strings.ToUpper(msg[:1]) + msg[1:] + "."
		}
	}
	return flows.UserMessage(err)
}

func (b base) success(c *fiber.Ctx, msg string) {
	middleware.CurrentSession(c).Flash(session.FlashSuccess, msg)
}

func (b base) info(c *fiber.Ctx, msg string) {
	middleware.CurrentSession(c).Flash(session.FlashInfo, msg)
}

func redirect(c *fiber.Ctx, to string) error {
	return c.Redirect(to, fiber.StatusSeeOther)
}

// back redirects to the referring page or fallback.
func back(c *fiber.Ctx, fallback string) error {
	return c.RedirectBack(fallback, fiber.StatusSeeOther)
}

// wantsJSON reports whether the caller is a script rather than a form.
func wantsJSON(c *fiber.Ctx) bool {
	return c.Get(fiber.HeaderXRequestedWith) == "XMLHttpRequest" ||
		strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}
