package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/utils"
)

// SessionCookie is the name of the signed session cookie.
const SessionCookie = "sf_session"

const sessionContextKey = "session"

// SessionConfig configures the session middleware.
type SessionConfig struct {
	Manager *session.Manager
	Secret  string
	Secure  bool
	Logger  zerolog.Logger
}

// Session attaches the visitor's session to the request, starting a new one
// when the cookie is missing, forged or expired. The session is saved after
// the handler returns. A visitor gets a cookie only once the session holds
// state.
func Session(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var s *session.Session
		raw := c.Cookies(SessionCookie)
		if raw != "" {
			sid, err := utils.ParseSessionID(cfg.Secret, raw)
			if err == nil {
				s, err = cfg.Manager.Load(c.UserContext(), sid)
				if err != nil && !errors.Is(err, session.ErrNotFound) {
					cfg.Logger.Error().Err(err).Str("session", sid.String()).Msg("failed to load session")
				}
			}
		}
		if s == nil {
			s = cfg.Manager.Start()
		}
		c.Locals(sessionContextKey, s)

		err := c.Next()

		if s.Destroyed() {
			c.ClearCookie(SessionCookie)
			return err
		}
		if saveErr := cfg.Manager.Save(c.UserContext(), s); saveErr != nil {
			cfg.Logger.Error().Err(saveErr).Str("session", s.ID.String()).Msg("failed to save session")
		}
		if !s.Stored() {
			if raw != "" {
				c.ClearCookie(SessionCookie)
			}
			return err
		}
		value, signErr := utils.SignSessionID(cfg.Secret, s.ID, cfg.Manager.TTL())
		if signErr != nil {
			cfg.Logger.Error().Err(signErr).Msg("failed to sign session cookie")
			return err
		}
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    value,
			Path:     "/",
			Expires:  time.Now().Add(cfg.Manager.TTL()),
			HTTPOnly: true,
			Secure:   cfg.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return err
	}
}

// CurrentSession returns the session attached by Session.
func CurrentSession(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionContextKey).(*session.Session)
	return s
}
