package api

import (
	"encoding/json"
	"time"
)

// Roles assigned by the backend.
const (
	RoleAdmin   = "ADMIN"
	RoleGeneral = "GENERAL"
)

// Envelope is the common backend response wrapper.
type Envelope struct {
	Success bool   `json:"success"`
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// Err converts a failed envelope into a BusinessError.
func (e Envelope) Err(status int) error {
	if e.Success {
		return nil
	}
	return &BusinessError{Status: status, Message: e.Message}
}

// User is the account record returned by the backend.
type User struct {
	ID               string    `json:"_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	ProfilePic       string    `json:"profilePic,omitempty"`
	TwoFactorEnabled bool      `json:"isTwoFaEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user may open the admin panel.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Product is a catalog entry. Read-only from the storefront's side.
type Product struct {
	ID           string   `json:"_id"`
	ProductName  string   `json:"productName"`
	BrandName    string   `json:"brandName"`
	Category     string   `json:"category"`
	ProductImage []string `json:"productImage"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	SellingPrice float64  `json:"sellingPrice"`
}

// Image returns the first product image or an empty string.
func (p Product) Image() string {
	if len(p.ProductImage) == 0 {
		return ""
	}
	return p.ProductImage[0]
}

// CartLine is one cart row with its product embedded. Product is nil when
// the backend could not resolve the reference.
type CartLine struct {
	ID       string   `json:"_id"`
	Product  *Product `json:"-"`
	Quantity int      `json:"quantity"`
	UserID   string   `json:"userId"`
}

// UnmarshalJSON tolerates productId being an embedded object, a bare id or null.
func (l *CartLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"_id"`
		ProductID json.RawMessage `json:"productId"`
		Quantity  int             `json:"quantity"`
		UserID    string          `json:"userId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.ID = raw.ID
	l.Quantity = raw.Quantity
	l.UserID = raw.UserID
	l.Product = nil

	if len(raw.ProductID) > 0 && raw.ProductID[0] == '{' {
		var p Product
		if err := json.Unmarshal(raw.ProductID, &p); err != nil {
			return err
		}
		if p.ID != "" {
			l.Product = &p
		}
	}
	return nil
}

// MarshalJSON writes the line back in the backend's shape.
func (l CartLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string   `json:"_id"`
		ProductID *Product `json:"productId"`
		Quantity  int      `json:"quantity"`
		UserID    string   `json:"userId,omitempty"`
	}{l.ID, l.Product, l.Quantity, l.UserID})
}

// OrderItem is a formatted line sent with an order.
type OrderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Order is an order as listed in the admin panel.
type Order struct {
	ID            string      `json:"_id"`
	UserID        string      `json:"userId"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	Items         []OrderItem `json:"items"`
	PaymentMethod string      `json:"paymentMethod"`
	TotalCost     float64     `json:"totalCost"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Order statuses an admin can set.
var OrderStatuses = []string{"pending", "confirmed", "shipping", "delivered", "cancelled"}

// PaymentOrder is the payload of an order placement.
type PaymentOrder struct {
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	Items         []OrderItem `json:"items"`
	UserID        string      `json:"userId"`
	PaymentMethod string      `json:"paymentMethod"`
	TotalCost     float64     `json:"totalCost"`
}

// TwoFactorSetup is what the backend returns when 2FA enrolment starts.
type TwoFactorSetup struct {
	QRCodeImage string `json:"qrCodeImage"`
	Secret      string `json:"secret"`
}
