package handlers

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/session"
)

// Sort orders on the category page.
const (
	SortAsc  = "asc"
	SortDesc = "dsc"
)

// CatalogHandler serves product pages.
type CatalogHandler struct {
	base
	catalog *api.Client
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(sessions *session.Manager, client *api.Client, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{base: newBase(sessions, logger), catalog: client}
}

// Product shows one product with others from its category.
func (h *CatalogHandler) Product(c *fiber.Ctx) error {
	ctx := c.UserContext()
	product, err := h.catalog.ProductDetails(ctx, c.Params("id"))
	if err != nil {
		var be *api.BusinessError
		if errors.As(err, &be) {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return err
	}

	var related []api.Product
	if product.Category != "" {
		list, err := h.catalog.CategoryProducts(ctx, product.Category)
		if err != nil {
			h.log.Warn().Err(err).Str("category", product.Category).Msg("related products unavailable")
		}
		for _, p := range list {
			if p.ID != product.ID {
				related = append(related, p)
			}
		}
	}

	return h.render(c, "product", product.ProductName, fiber.Map{
		"Product": product,
		"Related": related,
	})
}

// Category filters products by any number of categories and sorts them by
// selling price.
func (h *CatalogHandler) Category(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var selected []string
	for _, v := range c.Context().QueryArgs().PeekMulti("category") {
		if cat := strings.TrimSpace(string(v)); cat != "" {
			selected = append(selected, cat)
		}
	}
	order := c.Query("sort")

	showcase, err := h.catalog.CategoryShowcase(ctx)
	if err != nil {
		h.fail(c, err)
	}
	categories := make([]string, 0, len(showcase))
	for _, p := range showcase {
		if p.Category != "" {
			categories = append(categories, p.Category)
		}
	}

	var products []api.Product
	if len(selected) > 0 {
		products, err = h.catalog.FilterProducts(ctx, selected)
		if err != nil {
			h.fail(c, err)
		}
	}
	SortBySellingPrice(products, order)

	return h.render(c, "category", "Categories", fiber.Map{
		"Categories": categories,
		"Selected":   selected,
		"Sort":       order,
		"Products":   products,
	})
}

// SortBySellingPrice orders products in place; other orders leave them as is.
func SortBySellingPrice(products []api.Product, order string) {
	switch order {
	case SortAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].SellingPrice < products[j].SellingPrice
		})
	case SortDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].SellingPrice > products[j].SellingPrice
		})
	}
}

// Search lists products matching q.
func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	var products []api.Product
	if q != "" {
		var err error
		products, err = h.catalog.SearchProducts(c.UserContext(), q)
		if err != nil {
			h.fail(c, err)
		}
	}
	return h.render(c, "search", "Search", fiber.Map{
		"Query":    q,
		"Products": products,
	})
}
