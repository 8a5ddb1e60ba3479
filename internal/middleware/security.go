package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/example/storefront/internal/session"
)

// CSRFContextKey is where the CSRF token for forms is stored in Locals.
const CSRFContextKey = "csrf"

// CSRF protects every unsafe request. Forms send the token in a hidden
// _csrf field, scripts in the X-Csrf-Token header.
func CSRF(secure bool) fiber.Handler {
	fromForm := csrf.CsrfFromForm("_csrf")
	fromHeader := csrf.CsrfFromHeader(csrf.HeaderName)
	return csrf.New(csrf.Config{
		CookieName:     "sf_csrf",
		CookieSecure:   secure,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     time.Hour,
		ContextKey:     CSRFContextKey,
		Extractor: func(c *fiber.Ctx) (string, error) {
			if token, err := fromForm(c); err == nil {
				return token, nil
			}
			return fromHeader(c)
		},
	})
}

// CSRFToken returns the token forms must echo, empty when CSRF is off.
func CSRFToken(c *fiber.Ctx) string {
	token, _ := c.Locals(CSRFContextKey).(string)
	return token
}

// OTPLimiter caps how often one client can make the backend send mail.
func OTPLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + c.Path()
		},
		LimitReached: func(c *fiber.Ctx) error {
			if s := CurrentSession(c); s != nil {
				s.Flash(session.FlashError, "Too many code requests. Please wait a moment and try again.")
			}
			return c.Redirect(c.Path(), fiber.StatusSeeOther)
		},
	})
}
