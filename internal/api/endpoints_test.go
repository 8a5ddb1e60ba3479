package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesAgainstBase(t *testing.T) {
	reg := NewRegistry("https://shop.example/")

	ep, ok := reg.Lookup(OpSignIn)
	require.True(t, ok)
	assert.Equal(t, Endpoint{URL: "https://shop.example/api/signin", Method: http.MethodPost}, ep)

	ep, ok = reg.Lookup(OpCleanCart)
	require.True(t, ok)
	assert.Equal(t, http.MethodDelete, ep.Method)
}

func TestRegistryUnknownOp(t *testing.T) {
	reg := NewRegistry("http://localhost:8080")

	_, ok := reg.Lookup(Op("no-such-op"))
	assert.False(t, ok)
	assert.Panics(t, func() { reg.MustLookup(Op("no-such-op")) })
}

func TestRegistryCoversEveryOp(t *testing.T) {
	reg := NewRegistry("http://localhost:8080")
	assert.Len(t, reg.Ops(), len(routes))
	for _, op := range reg.Ops() {
		ep := reg.MustLookup(op)
		assert.NotEmpty(t, ep.Method, op)
		assert.Contains(t, ep.URL, "http://localhost:8080/api/", op)
	}
}

func TestRegistryLookupReturnsCopy(t *testing.T) {
	reg := NewRegistry("http://localhost:8080")

	ep := reg.MustLookup(OpCartView)
	ep.URL = "http://evil.example"
	ep.Method = http.MethodDelete

	again := reg.MustLookup(OpCartView)
	assert.Equal(t, "http://localhost:8080/api/view-card-product", again.URL)
	assert.Equal(t, http.MethodGet, again.Method)
}

func TestRegistryParameterised(t *testing.T) {
	reg := NewRegistry("http://localhost:8080")

	assert.Equal(t,
		Endpoint{URL: "http://localhost:8080/api/orders/abc/status", Method: http.MethodPut},
		reg.OrderStatus("abc"))
	assert.Equal(t,
		Endpoint{URL: "http://localhost:8080/api/orders/a%2Fb", Method: http.MethodDelete},
		reg.DeleteOrder("a/b"))
	assert.Equal(t, "http://localhost:8080/api/delete-user/u1", reg.DeleteUser("u1").URL)
	assert.Equal(t, "http://localhost:8080/api/products/p1", reg.DeleteProduct("p1").URL)
}

func TestPayPalCaptureURLHasNoStraySpace(t *testing.T) {
	reg := NewRegistry("http://localhost:8080")
	assert.NotContains(t, reg.MustLookup(OpPayPalCaptureOrder).URL, " ")
}
