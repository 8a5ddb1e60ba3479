package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/session"
)

// RequireUser sends anonymous visitors to the login page.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := CurrentSession(c)
		if s == nil || s.Token() == "" || s.User() == nil {
			if s != nil {
				s.Flash(session.FlashInfo, "Please sign in to continue.")
			}
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// RequireAdmin allows only users with the ADMIN role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := CurrentSession(c)
		if s == nil || s.Token() == "" {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		if !s.User().IsAdmin() {
			s.Flash(session.FlashError, "You do not have access to the admin panel.")
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}
