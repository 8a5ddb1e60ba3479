package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/validation"
)

// CartHandler serves the cart page and its actions.
type CartHandler struct {
	base
	client *api.Client
	loader *cart.Loader
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(sessions *session.Manager, client *api.Client, logger zerolog.Logger) *CartHandler {
	return &CartHandler{base: newBase(sessions, logger), client: client, loader: cart.NewLoader(client)}
}

type cartAddRequest struct {
	ProductID string `form:"productId" json:"productId" validate:"required"`
}

type cartLineRequest struct {
	LineID   string `form:"lineId" json:"lineId" validate:"required"`
	Quantity int    `form:"quantity" json:"quantity" validate:"omitempty,min=1"`
}

// View renders the cart from a fresh snapshot.
func (h *CartHandler) View(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var snap cart.Snapshot
	if token := s.Token(); token != "" {
		var err error
		snap, err = h.loader.Load(c.UserContext(), token)
		if err != nil {
			h.fail(c, err)
		} else {
			h.sessions.SetCartCount(s, snap.Len())
		}
	}
	return h.render(c, "cart", "Cart", fiber.Map{"Cart": snap})
}

// Add puts one unit of a product in the cart.
func (h *CartHandler) Add(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req cartAddRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return h.cartResult(c, err, "")
	}

	msg, err := h.client.AddToCart(c.UserContext(), s.Token(), req.ProductID)
	if err == nil {
		h.refresh(c, s)
	}
	return h.cartResult(c, err, msg)
}

// Update sets the quantity of a cart line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req cartLineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Quantity == 0 {
		return h.cartResult(c, validation.Fail("quantity", "Quantity must be at least 1"), "")
	}
	if err := validation.Struct(req); err != nil {
		return h.cartResult(c, err, "")
	}

	err := h.client.UpdateCartLine(c.UserContext(), s.Token(), req.LineID, req.Quantity)
	if err == nil {
		h.refresh(c, s)
	}
	return h.cartResult(c, err, "")
}

// Delete removes a cart line.
func (h *CartHandler) Delete(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req cartLineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return h.cartResult(c, err, "")
	}

	err := h.client.DeleteCartLine(c.UserContext(), s.Token(), req.LineID)
	if err == nil {
		h.refresh(c, s)
	}
	return h.cartResult(c, err, "Product removed from cart")
}

func (h *CartHandler) refresh(c *fiber.Ctx, s *session.Session) {
	if err := h.sessions.RefreshCart(c.UserContext(), s); err != nil {
		h.log.Warn().Err(err).Str("session", s.ID.String()).Msg("cart count refresh failed")
	}
}

// cartResult answers scripts with JSON and forms with a redirect.
func (h *CartHandler) cartResult(c *fiber.Ctx, err error, msg string) error {
	if wantsJSON(c) {
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"success": false, "error": true, "message": notice(err),
			})
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"message":   msg,
			"cartCount": h.sessions.Get(middleware.CurrentSession(c)).CartCount,
		})
	}
	if err != nil {
		h.fail(c, err)
	} else if msg != "" {
		h.success(c, msg)
	}
	return back(c, "/cart")
}
