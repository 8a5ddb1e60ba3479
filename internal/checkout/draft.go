// Package checkout ties the cart snapshot, the address cascade and the
// payment method together and drives the payment gateways.
package checkout

import (
	"strings"

	"github.com/example/storefront/internal/geo"
)

// Draft is the checkout form as the visitor has filled it so far.
type Draft struct {
	Name      string        `json:"name,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Method    string        `json:"method,omitempty"`
	Address   geo.Selection `json:"address"`
	PayPalID  string        `json:"paypalOrderId,omitempty"`
	Reference string        `json:"reference,omitempty"`
}

// Normalize trims the free-text fields.
func (d *Draft) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
}

// Reset clears everything but the contact details, after a placed order.
func (d *Draft) Reset() {
	*d = Draft{Name: d.Name, Phone: d.Phone, Method: d.Method}
}
