package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/api"
)

func product(id string, selling float64) *api.Product {
	return &api.Product{ID: id, ProductName: "Product " + id, SellingPrice: selling, Price: selling * 1.2}
}

func TestSnapshotTotalsSkipUnresolvedLines(t *testing.T) {
	s := NewSnapshot([]api.CartLine{
		{ID: "l1", Product: product("p1", 120000), Quantity: 2},
		{ID: "l2", Product: nil, Quantity: 5},
		{ID: "l3", Product: product("p3", 45500), Quantity: 1},
		{ID: "l4", Product: &api.Product{}, Quantity: 3},
		{ID: "l5", Product: product("p5", 10000), Quantity: 0},
	})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.Dropped())
	assert.Equal(t, 3, s.TotalQuantity())
	assert.True(t, decimal.NewFromInt(285500).Equal(s.TotalCost()), s.TotalCost().String())
}

func TestSnapshotTotalsMatchLineSums(t *testing.T) {
	lines := []api.CartLine{
		{ID: "a", Product: product("a", 19990), Quantity: 3},
		{ID: "b", Product: product("b", 5), Quantity: 7},
		{ID: "c", Product: product("c", 1000000), Quantity: 1},
	}
	s := NewSnapshot(lines)

	qty := 0
	cost := decimal.Zero
	for _, l := range lines {
		qty += l.Quantity
		cost = cost.Add(decimal.NewFromFloat(l.Product.SellingPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.Equal(t, qty, s.TotalQuantity())
	assert.True(t, cost.Equal(s.TotalCost()))
}

func TestSnapshotRoundsToWholeUnits(t *testing.T) {
	s := NewSnapshot([]api.CartLine{{ID: "l", Product: product("p", 1000.6), Quantity: 1}})
	assert.Equal(t, "1001", s.TotalCost().String())
}

func TestSnapshotForeign(t *testing.T) {
	s := NewSnapshot([]api.CartLine{{ID: "l", Product: product("p", 250000), Quantity: 3}})

	usd, err := s.Foreign(decimal.NewFromInt(25000))
	require.NoError(t, err)
	assert.Equal(t, "30.00", usd)

	s = NewSnapshot([]api.CartLine{{ID: "l", Product: product("p", 100000), Quantity: 1}})
	usd, err = s.Foreign(decimal.NewFromInt(24000))
	require.NoError(t, err)
	assert.Equal(t, "4.17", usd)

	_, err = s.Foreign(decimal.Zero)
	assert.Error(t, err)
}

func TestSnapshotItems(t *testing.T) {
	s := NewSnapshot([]api.CartLine{
		{ID: "l1", Product: product("p1", 50000), Quantity: 2},
		{ID: "l2", Quantity: 1},
	})

	assert.Equal(t, []api.OrderItem{{ID: "p1", Name: "Product p1", Price: 50000, Quantity: 2}}, s.Items())
}

func TestEmptySnapshot(t *testing.T) {
	var s Snapshot
	assert.True(t, s.Empty())
	assert.Zero(t, s.TotalQuantity())
	assert.True(t, s.TotalCost().IsZero())
	assert.Empty(t, s.Items())
}

type stubSource struct {
	lines []api.CartLine
	err   error
	token string
}

func (s *stubSource) CartView(ctx context.Context, token string) ([]api.CartLine, error) {
	s.token = token
	return s.lines, s.err
}

func TestLoaderLoad(t *testing.T) {
	src := &stubSource{lines: []api.CartLine{{ID: "l1", Product: product("p1", 1000), Quantity: 4}}}
	s, err := NewLoader(src).Load(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", src.token)
	assert.Equal(t, 4, s.TotalQuantity())

	src.err = errors.New("down")
	_, err = NewLoader(src).Load(context.Background(), "tok")
	assert.ErrorContains(t, err, "load cart")
}
