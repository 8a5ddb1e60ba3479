package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/flows"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
)

// PageHandler serves the home page and static pages.
type PageHandler struct {
	base
	catalog *api.Client
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(sessions *session.Manager, client *api.Client, logger zerolog.Logger) *PageHandler {
	return &PageHandler{base: newBase(sessions, logger), catalog: client}
}

// Shelf is one category row on the home page.
type Shelf struct {
	Category string
	Products []api.Product
}

// Home lists the category showcase and a shelf per category.
func (h *PageHandler) Home(c *fiber.Ctx) error {
	ctx := c.UserContext()

	showcase, err := h.catalog.CategoryShowcase(ctx)
	products, perr := h.catalog.AllProducts(ctx)
	if err == nil {
		err = perr
	}
	if err != nil {
		h.fail(c, err)
	}

	return h.render(c, "home", "Home", fiber.Map{
		"Showcase": showcase,
		"Shelves":  shelves(showcase, products),
	})
}

// shelves groups products by category, in showcase order first.
func shelves(showcase, products []api.Product) []Shelf {
	index := map[string]int{}
	var out []Shelf
	add := func(cat string) int {
		if i, ok := index[cat]; ok {
			return i
		}
		index[cat] = len(out)
		out = append(out, Shelf{Category: cat})
		return len(out) - 1
	}
	for _, p := range showcase {
		if p.Category != "" {
			add(p.Category)
		}
	}
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		i := add(p.Category)
		out[i].Products = append(out[i].Products, p)
	}
	return out
}

// PrivacyPolicy renders the privacy policy.
func (h *PageHandler) PrivacyPolicy(c *fiber.Ctx) error {
	return h.render(c, "privacy_policy", "Privacy policy", nil)
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(c *fiber.Ctx) error {
	c.Status(fiber.StatusNotFound)
	return h.render(c, "error", "Page not found", fiber.Map{
		"Code":    fiber.StatusNotFound,
		"Message": "The page you are looking for does not exist.",
	})
}

// ErrorHandler renders failures as an error page.
func ErrorHandler(sessions *session.Manager, logger zerolog.Logger) fiber.ErrorHandler {
	b := newBase(sessions, logger)
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := flows.MsgUnexpected
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		c.Status(code)
		if wantsJSON(c) || middleware.CurrentSession(c) == nil {
			return c.JSON(fiber.Map{"success": false, "error": true, "message": msg})
		}
		if renderErr := b.render(c, "error", "Error", fiber.Map{"Code": code, "Message": msg}); renderErr != nil {
			logger.Error().Err(renderErr).Msg("failed to render error page")
			return c.SendString(msg)
		}
		return nil
	}
}
