// Package cart loads the visitor's cart and derives its totals.
package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/api"
)

// Line is a cart line whose product reference resolved.
type Line struct {
	ID       string
	Product  api.Product
	Quantity int
}

// Subtotal is quantity × selling price.
func (l Line) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Product.SellingPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable view of the cart. Totals only ever come from the
// lines of the same snapshot.
type Snapshot struct {
	lines    []Line
	dropped  int
	quantity int
	cost     decimal.Decimal
}

// NewSnapshot keeps lines with a resolvable product and a positive quantity.
func NewSnapshot(raw []api.CartLine) Snapshot {
	s := Snapshot{cost: decimal.Zero}
	for _, l := range raw {
		if l.Product == nil || l.Product.ID == "" || l.Quantity <= 0 {
			s.dropped++
			continue
		}
		line := Line{ID: l.ID, Product: *l.Product, Quantity: l.Quantity}
		s.lines = append(s.lines, line)
		s.quantity += line.Quantity
		s.cost = s.cost.Add(line.Subtotal())
	}
	// The domestic currency has no minor unit.
	s.cost = s.cost.Round(0)
	return s
}

// Lines returns a copy of the kept lines.
func (s Snapshot) Lines() []Line {
	return append([]Line(nil), s.lines...)
}

// Len is the number of kept lines.
func (s Snapshot) Len() int { return len(s.lines) }

// Empty reports whether nothing purchasable is in the cart.
func (s Snapshot) Empty() bool { return len(s.lines) == 0 }

// Dropped is how many backend lines were filtered out.
func (s Snapshot) Dropped() int { return s.dropped }

// TotalQuantity sums the kept line quantities.
func (s Snapshot) TotalQuantity() int { return s.quantity }

// TotalCost sums quantity × selling price in whole domestic units.
func (s Snapshot) TotalCost() decimal.Decimal { return s.cost }

// Foreign converts TotalCost at rate, fixed to two decimals.
func (s Snapshot) Foreign(rate decimal.Decimal) (string, error) {
	if !rate.IsPositive() {
		return "", fmt.Errorf("exchange rate must be positive, got %s", rate)
	}
	return s.cost.DivRound(rate, 2).StringFixed(2), nil
}

// Items formats the lines as order items.
func (s Snapshot) Items() []api.OrderItem {
	out := make([]api.OrderItem, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, api.OrderItem{
			ID:       l.Product.ID,
			Name:     l.Product.ProductName,
			Price:    l.Product.SellingPrice,
			Quantity: l.Quantity,
		})
	}
	return out
}

// Source is the backend surface the loader needs.
type Source interface {
	CartView(ctx context.Context, token string) ([]api.CartLine, error)
}

// Loader fetches cart snapshots.
type Loader struct {
	src Source
}

// NewLoader builds a Loader over src.
func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load fetches the cart of the session behind token.
func (l *Loader) Load(ctx context.Context, token string) (Snapshot, error) {
	raw, err := l.src.CartView(ctx, token)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load cart: %w", err)
	}
	return NewSnapshot(raw), nil
}
