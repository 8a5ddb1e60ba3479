package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

const adminPageSize = 20

// AdminHandler exposes admin panel pages.
type AdminHandler struct {
	base
	client *api.Client
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(sessions *session.Manager, client *api.Client, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{base: newBase(sessions, logger), client: client}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

// FilterUsers keeps users whose name or email contains term, ignoring case.
func FilterUsers(users []api.User, term string) []api.User {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return users
	}
	var out []api.User
	for _, u := range users {
		if containsFold(u.Name, term) || containsFold(u.Email, term) {
			out = append(out, u)
		}
	}
	return out
}

// FilterProducts keeps products whose name contains term, ignoring case.
func FilterProducts(products []api.Product, term string) []api.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return products
	}
	var out []api.Product
	for _, p := range products {
		if containsFold(p.ProductName, term) {
			out = append(out, p)
		}
	}
	return out
}

// FilterOrders keeps orders whose customer name or phone contains term.
func FilterOrders(orders []api.Order, term string) []api.Order {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return orders
	}
	var out []api.Order
	for _, o := range orders {
		if containsFold(o.Name, term) || containsFold(o.Phone, term) {
			out = append(out, o)
		}
	}
	return out
}

// Index opens the first admin view.
func (h *AdminHandler) Index(c *fiber.Ctx) error {
	return redirect(c, "/admin-panel/all-products")
}

// Users lists accounts.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	users, err := h.client.AllUsers(c.UserContext(), s.Token())
	if err != nil {
		h.fail(c, err)
	}
	q := c.Query("q")
	return h.render(c, "admin_users", "Users", fiber.Map{
		"Query": q,
		"Roles": []string{api.RoleAdmin, api.RoleGeneral},
		"Users": utils.Paginate(FilterUsers(users, q), utils.ParsePagination(c, adminPageSize)),
	})
}

type userForm struct {
	Name  string `form:"name"`
	Email string `form:"email" validate:"omitempty,email"`
	Role  string `form:"role" validate:"omitempty,oneof=ADMIN GENERAL"`
}

// UpdateUser edits an account's profile or role.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var form userForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(form); err != nil {
		h.fail(c, err)
		return back(c, "/admin-panel/all-users")
	}

	msg, err := h.client.UpdateUser(c.UserContext(), s.Token(), api.UserUpdate{
		UserID: c.Params("id"),
		Name:   strings.TrimSpace(form.Name),
		Email:  strings.TrimSpace(form.Email),
		Role:   form.Role,
	})
	if err != nil {
		h.fail(c, err)
	} else {
		h.success(c, msg)
		h.log.Info().Str("admin", s.User().ID).Str("user", c.Params("id")).Str("role", form.Role).Msg("user updated")
	}
	return back(c, "/admin-panel/all-users")
}

// DeleteUser removes an account. Admins cannot remove themselves.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	id := c.Params("id")
	if me := s.User(); me != nil && me.ID == id {
		h.fail(c, validation.Fail("user", "You cannot delete your own account"))
		return back(c, "/admin-panel/all-users")
	}
	if err := h.client.DeleteUser(c.UserContext(), s.Token(), id); err != nil {
		h.fail(c, err)
	} else {
		h.success(c, "User deleted")
		h.log.Info().Str("admin", s.User().ID).Str("user", id).Msg("user deleted")
	}
	return back(c, "/admin-panel/all-users")
}

// Products lists the catalog.
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	products, err := h.client.AllProducts(c.UserContext())
	if err != nil {
		h.fail(c, err)
	}
	q := c.Query("q")
	return h.render(c, "admin_products", "Products", fiber.Map{
		"Query":    q,
		"Products": utils.Paginate(FilterProducts(products, q), utils.ParsePagination(c, adminPageSize)),
	})
}

type productForm struct {
	ProductName  string  `form:"productName" validate:"required"`
	BrandName    string  `form:"brandName" validate:"required"`
	Category     string  `form:"category" validate:"required"`
	ProductImage string  `form:"productImage"`
	Description  string  `form:"description"`
	Price        float64 `form:"price" validate:"required,gt=0"`
	SellingPrice float64 `form:"sellingPrice" validate:"required,gt=0,ltefield=Price"`
}

// input converts the form; images are one URL per line.
func (f productForm) input(id string) api.ProductInput {
	var images []string
	for _, line := range strings.FieldsFunc(f.ProductImage, func(r rune) bool { return r == '\n' || r == ',' }) {
		if line = strings.TrimSpace(line); line != "" {
			images = append(images, line)
		}
	}
	return api.ProductInput{
		ID:           id,
		ProductName:  strings.TrimSpace(f.ProductName),
		BrandName:    strings.TrimSpace(f.BrandName),
		Category:     strings.TrimSpace(f.Category),
		ProductImage: images,
		Description:  strings.TrimSpace(f.Description),
		Price:        f.Price,
		SellingPrice: f.SellingPrice,
	}
}

func (h *AdminHandler) saveProduct(c *fiber.Ctx, id string) error {
	s := middleware.CurrentSession(c)
	var form productForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(form); err != nil {
		h.fail(c, err)
		return back(c, "/admin-panel/all-products")
	}

	var (
		msg string
		err error
	)
	if id == "" {
		msg, err = h.client.UploadProduct(c.UserContext(), s.Token(), form.input(""))
	} else {
		msg, err = h.client.UpdateProduct(c.UserContext(), s.Token(), form.input(id))
	}
	if err != nil {
		h.fail(c, err)
	} else {
		h.success(c, msg)
	}
	return back(c, "/admin-panel/all-products")
}

// UploadProduct creates a product.
func (h *AdminHandler) UploadProduct(c *fiber.Ctx) error {
	return h.saveProduct(c, "")
}

// UpdateProduct edits a product.
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	return h.saveProduct(c, c.Params("id"))
}

// DeleteProduct removes a product.
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	if err := h.client.DeleteProduct(c.UserContext(), s.Token(), c.Params("id")); err != nil {
		h.fail(c, err)
	} else {
		h.success(c, "Product deleted")
	}
	return back(c, "/admin-panel/all-products")
}

// Orders lists every order.
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	orders, err := h.client.Orders(c.UserContext(), s.Token())
	if err != nil {
		h.fail(c, err)
	}
	q := c.Query("q")
	return h.render(c, "admin_orders", "Orders", fiber.Map{
		"Query":    q,
		"Statuses": api.OrderStatuses,
		"Orders":   utils.Paginate(FilterOrders(orders, q), utils.ParsePagination(c, adminPageSize)),
	})
}

type statusForm struct {
	Status string `form:"status" validate:"required,oneof=pending confirmed shipping delivered cancelled"`
}

// UpdateOrderStatus moves an order along.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	var form statusForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(form); err != nil {
		h.fail(c, err)
		return back(c, "/admin-panel/all-payment")
	}
	if err := h.client.UpdateOrderStatus(c.UserContext(), s.Token(), c.Params("id"), form.Status); err != nil {
		h.fail(c, err)
	} else {
		h.success(c, "Order status updated")
	}
	return back(c, "/admin-panel/all-payment")
}

// DeleteOrder removes an order.
func (h *AdminHandler) DeleteOrder(c *fiber.Ctx) error {
	s := middleware.CurrentSession(c)
	if err := h.client.DeleteOrder(c.UserContext(), s.Token(), c.Params("id")); err != nil {
		h.fail(c, err)
	} else {
		h.success(c, "Order deleted")
	}
	return back(c, "/admin-panel/all-payment")
}
