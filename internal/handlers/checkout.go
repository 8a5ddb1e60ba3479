package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/geo"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
)

// CheckoutHandler serves the payment pages and gateway endpoints.
type CheckoutHandler struct {
	base
	loader         *cart.Loader
	checkout       *checkout.Service
	geo            geo.Provider
	payPalClientID string
}

// NewCheckoutHandler constructs a CheckoutHandler.
func NewCheckoutHandler(sessions *session.Manager, client *api.Client, svc *checkout.Service, provider geo.Provider, payPalClientID string, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		base:           newBase(sessions, logger),
		loader:         cart.NewLoader(client),
		checkout:       svc,
		geo:            provider,
		payPalClientID: payPalClientID,
	}
}

type addressRequest struct {
	Name     string `form:"name" json:"name"`
	Phone    string `form:"phone" json:"phone"`
	Method   string `form:"method" json:"method"`
	Province int    `form:"province" json:"province"`
	District int    `form:"district" json:"district"`
	Ward     int    `form:"ward" json:"ward"`
}

// cascade returns the session's address cascade, restoring the saved
// selection when it is first created.
func (h *CheckoutHandler) cascade(ctx context.Context, s *session.Session, sel geo.Selection) (*geo.Cascade, error) {
	c, created := s.Cascade(h.geo)
	if !created {
		return c, nil
	}
	if err := c.LoadProvinces(ctx); err != nil {
		s.ResetCascade()
		return nil, err
	}
	if err := c.Restore(ctx, sel); err != nil {
		h.log.Warn().Err(err).Str("session", s.ID.String()).Msg("saved address could not be restored")
	}
	return c, nil
}

// order assembles a checkout order from a fresh cart snapshot.
func (h *CheckoutHandler) order(ctx context.Context, s *session.Session) (checkout.Order, error) {
	st := s.Snapshot()
	o := checkout.Order{Token: st.Token, User: st.User, Draft: st.Checkout}
	if o.Draft.Method == "" {
		o.Draft.Method = h.checkout.DefaultMethod()
	}

	c, err := h.cascade(ctx, s, st.Checkout.Address)
	if err != nil {
		return o, err
	}
	o.Address = c.View()

	if st.Token != "" {
		o.Snapshot, err = h.loader.Load(ctx, st.Token)
		if err != nil {
			return o, err
		}
		h.sessions.SetCartCount(s, o.Snapshot.Len())
	}
	return o, nil
}

// Page renders the checkout form.
func (h *CheckoutHandler) Page(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	o, err := h.order(c.UserContext(), s)
	if err != nil {
		h.fail(c, err)
	}
	if err == nil && o.Snapshot.Empty() {
		h.info(c, "Your cart is empty")
		return redirect(c, "/cart")
	}

	foreign, _ := o.Snapshot.Foreign(h.checkout.Options().ExchangeRate)
	return h.render(c, "payment", "Payment", fiber.Map{
		"Draft":          o.Draft,
		"Address":        o.Address,
		"Cart":           o.Snapshot,
		"Methods":        h.checkout.Methods(),
		"MethodLabels":   checkout.MethodLabels,
		"Ready":          checkout.Check(o).Ready(),
		"GatewayReady":   checkout.GatewayReady(o.Draft, o.Address),
		"Foreign":        foreign,
		"Currency":       h.checkout.Options().PayPalCurrency,
		"PayPalClientID": h.payPalClientID,
	})
}

// applyAddress saves the contact fields and moves the cascade to the
// submitted selection. Only the highest changed level is applied, since a
// changed province makes the submitted district and ward stale.
func (h *CheckoutHandler) applyAddress(c *fiber.Ctx, s *session.Session, req addressRequest) (*geo.Cascade, error) {
	ctx := c.UserContext()
	if req.Method != "" && !h.checkout.MethodEnabled(req.Method) {
		return nil, checkout.ErrMethodDisabled
	}

	casc, err := h.cascade(ctx, s, s.Snapshot().Checkout.Address)
	if err != nil {
		return nil, err
	}
	sel := casc.Selection()
	switch {
	case req.Province != sel.Province:
		err = casc.SelectProvince(ctx, req.Province)
	case req.District != sel.District:
		err = casc.SelectDistrict(ctx, req.District)
	case req.Ward != sel.Ward:
		err = casc.SelectWard(req.Ward)
	}
	if errors.Is(err, geo.ErrSuperseded) {
		err = nil
	}

	s.Update(func(st *session.State) {
		d := &st.Checkout
		d.Name = req.Name
		d.Phone = req.Phone
		if req.Method != "" {
			d.Method = req.Method
		}
		d.Address = casc.Selection()
		d.Normalize()
	})
	return casc, err
}

// Address updates the form after a field changed. Scripts get the new
// option lists back as JSON.
func (h *CheckoutHandler) Address(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	casc, err := h.applyAddress(c, s, req)
	if wantsJSON(c) {
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "message": notice(err)})
		}
		v := casc.View()
		return c.JSON(fiber.Map{
			"success":      true,
			"selection":    casc.Selection(),
			"districts":    v.Districts,
			"wards":        v.Wards,
			"gatewayReady": checkout.GatewayReady(s.Snapshot().Checkout, v),
		})
	}
	if err != nil {
		h.fail(c, err)
	}
	return redirect(c, "/payment")
}

// Submit saves the form and continues with the chosen method.
func (h *CheckoutHandler) Submit(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if _, err := h.applyAddress(c, s, req); err != nil {
		h.fail(c, err)
		return redirect(c, "/payment")
	}

	o, err := h.order(c.UserContext(), s)
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/payment")
	}

	switch o.Draft.Method {
	case config.MethodCOD:
		review, err := h.checkout.Review(o)
		if err != nil {
			h.fail(c, err)
			return redirect(c, "/payment")
		}
		return h.render(c, "payment_review", "Confirm order", fiber.Map{"Review": review})

	case config.MethodVNPay:
		payURL, err := h.checkout.CreateVNPayURL(c.UserContext(), o)
		if err != nil {
			h.fail(c, err)
			return redirect(c, "/payment")
		}
		return c.Redirect(payURL, fiber.StatusSeeOther)

	case config.MethodQR:
		q, err := h.checkout.PrepareQR(o)
		if err != nil {
			h.fail(c, err)
			return redirect(c, "/payment")
		}
		s.Update(func(st *session.State) { st.Checkout.Reference = q.Reference })
		return redirect(c, "/qr-payment")

	case config.MethodPayPal:
		h.info(c, "Use the PayPal button to pay")
		return redirect(c, "/payment")
	}
	h.fail(c, checkout.ErrMethodDisabled)
	return redirect(c, "/payment")
}

// Confirm places the cash on delivery order the visitor reviewed. Totals are
// taken from a fresh snapshot, never from the review page.
func (h *CheckoutHandler) Confirm(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	err := s.Submit(func() error {
		o, err := h.order(c.UserContext(), s)
		if err != nil {
			return err
		}
		return h.checkout.PlaceCashOrder(c.UserContext(), o)
	})
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/payment")
	}

	h.finish(s)
	h.success(c, "Your order has been placed!")
	return redirect(c, "/")
}

// finish forgets the paid cart.
func (h *CheckoutHandler) finish(s *session.Session) {
	s.Update(func(st *session.State) { st.Checkout.Reset() })
	h.sessions.SetCartCount(s, 0)
	s.ResetCascade()
}

// PayPalCreateOrder opens a PayPal order for the PayPal button.
func (h *CheckoutHandler) PayPalCreateOrder(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	o, err := h.order(c.UserContext(), s)
	if err != nil {
		return h.jsonError(c, err)
	}
	id, err := h.checkout.CreatePayPalOrder(c.UserContext(), o)
	if err != nil {
		return h.jsonError(c, err)
	}
	s.Update(func(st *session.State) { st.Checkout.PayPalID = id })
	return c.JSON(fiber.Map{"id": id})
}

type captureRequest struct {
	OrderID string `json:"orderID" form:"orderID"`
}

// PayPalCaptureOrder settles the approved PayPal order.
func (h *CheckoutHandler) PayPalCaptureOrder(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var req captureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var msg string
	err := s.Submit(func() error {
		o, err := h.order(c.UserContext(), s)
		if err != nil {
			return err
		}
		msg, err = h.checkout.CapturePayPalOrder(c.UserContext(), o, req.OrderID)
		return err
	})
	if err != nil {
		return h.jsonError(c, err)
	}

	h.finish(s)
	if msg == "" {
		msg = "Payment completed!"
	}
	h.success(c, msg)
	return c.JSON(fiber.Map{"success": true, "message": msg, "redirect": "/"})
}

func (h *CheckoutHandler) jsonError(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnprocessableEntity
	if errors.Is(err, api.ErrUnreachable) {
		status = fiber.StatusBadGateway
		h.log.Warn().Err(err).Str("path", c.Path()).Msg("backend unreachable")
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": true, "message": notice(err)})
}

// QRPage shows bank transfer instructions for the current cart.
func (h *CheckoutHandler) QRPage(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	if s.Snapshot().Checkout.Reference == "" {
		return redirect(c, "/payment")
	}
	o, err := h.order(c.UserContext(), s)
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/payment")
	}
	q, err := h.checkout.PrepareQR(o)
	if err != nil {
		h.fail(c, err)
		return redirect(c, "/payment")
	}
	return h.render(c, "qr_payment", "Bank transfer", fiber.Map{"QR": q})
}

// Success is where gateways return after a completed payment.
func (h *CheckoutHandler) Success(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	s.Update(func(st *session.State) { st.Checkout.Reset() })
	if err := h.sessions.RefreshCart(c.UserContext(), s); err != nil {
		h.log.Warn().Err(err).Str("session", s.ID.String()).Msg("cart count refresh failed")
	}
	return h.render(c, "payment_result", "Payment successful", fiber.Map{"Success": true})
}

// Failed is where gateways return after a failed or cancelled payment.
func (h *CheckoutHandler) Failed(c *fiber.Ctx) error {
	return h.render(c, "payment_result", "Payment failed", fiber.Map{"Success": false})
}
