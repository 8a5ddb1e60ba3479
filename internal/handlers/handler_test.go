package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/flows"
	"github.com/example/storefront/internal/geo"
)

func TestChromeVisibility(t *testing.T) {
	tests := []struct {
		path       string
		hideHeader bool
		hideFooter bool
	}{
		{"/", false, false},
		{"/product/p1", false, false},
		{"/login", true, true},
		{"/sign-up/complete", true, true},
		{"/payment", true, true},
		{"/payment/success", true, true},
		{"/cart", true, true},
		{"/cartography", false, false},
		{"/admin-panel/all-users", false, true},
		{"/admin-panel/all-payment", false, true},
		{"/admin-panel", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.hideHeader, HideHeader(tt.path))
			assert.Equal(t, tt.hideFooter, HideFooter(tt.path))
		})
	}
}

func TestShelvesFollowShowcaseOrder(t *testing.T) {
	showcase := []api.Product{{Category: "watches"}, {Category: "airpodes"}}
	products := []api.Product{
		{ID: "1", Category: "airpodes"},
		{ID: "2", Category: "mobiles"},
		{ID: "3", Category: "watches"},
		{ID: "4", Category: ""},
		{ID: "5", Category: "airpodes"},
	}

	got := shelves(showcase, products)
	if assert.Len(t, got, 3) {
		assert.Equal(t, "watches", got[0].Category)
		assert.Equal(t, "airpodes", got[1].Category)
		assert.Equal(t, "mobiles", got[2].Category)
		assert.Len(t, got[1].Products, 2)
		assert.Equal(t, "3", got[0].Products[0].ID)
	}
}

func TestSortBySellingPrice(t *testing.T) {
	ids := func(ps []api.Product) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}
	base := []api.Product{{ID: "a", SellingPrice: 30}, {ID: "b", SellingPrice: 10}, {ID: "c", SellingPrice: 20}}

	asc := append([]api.Product(nil), base...)
	SortBySellingPrice(asc, SortAsc)
	assert.Equal(t, []string{"b", "c", "a"}, ids(asc))

	desc := append([]api.Product(nil), base...)
	SortBySellingPrice(desc, SortDesc)
	assert.Equal(t, []string{"a", "c", "b"}, ids(desc))

	none := append([]api.Product(nil), base...)
	SortBySellingPrice(none, "")
	assert.Equal(t, []string{"a", "b", "c"}, ids(none))
}

func TestAdminFilters(t *testing.T) {
	users := []api.User{{Name: "Nguyễn An", Email: "an@example.com"}, {Name: "Bình", Email: "binh@example.com"}}
	assert.Len(t, FilterUsers(users, "  "), 2)
	assert.Len(t, FilterUsers(users, "AN@"), 1)
	assert.Len(t, FilterUsers(users, "nguyễn"), 1)

	products := []api.Product{{ProductName: "Airpods Pro"}, {ProductName: "Mi Band"}}
	assert.Equal(t, "Mi Band", FilterProducts(products, "band")[0].ProductName)
	assert.Empty(t, FilterProducts(products, "phone"))

	orders := []api.Order{{Name: "An", Phone: "0901234567"}, {Name: "Bình", Phone: "0987654321"}}
	assert.Len(t, FilterOrders(orders, "0987"), 1)
	assert.Equal(t, "An", FilterOrders(orders, "an")[0].Name)
}

func TestNotice(t *testing.T) {
	assert.Equal(t, "Order placed but the cart could not be cleared.",
		notice(fmt.Errorf("%w: %w", checkout.ErrCartNotCleared, errors.New("timeout"))))
	assert.Equal(t, "Unknown PayPal order.", notice(checkout.ErrUnknownPayPalOrder))
	assert.Equal(t, "Out of stock", notice(&api.BusinessError{Status: 400, Message: "Out of stock"}))
	assert.Equal(t, flows.MsgUnexpected, notice(errors.New("boom")))
	assert.NotEmpty(t, notice(geo.ErrIncomplete))
}
