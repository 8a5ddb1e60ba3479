package api

import (
	"net/http"
	"net/url"
	"strings"
)

// Op names a backend operation.
type Op string

const (
	OpCurrentUser         Op = "current-user"
	OpSignIn              Op = "sign-in"
	OpLogout              Op = "logout"
	OpSendSignupOTP       Op = "send-otp-to-signup"
	OpVerifyOTP           Op = "verify-otp"
	OpSetPassword         Op = "set-password"
	OpAllUsers            Op = "all-users"
	OpUpdateUser          Op = "update-user"
	OpUploadProduct       Op = "upload-product"
	OpAllProducts         Op = "all-products"
	OpUpdateProduct       Op = "update-product"
	OpCategoryProduct     Op = "category-product"
	OpCategoryWiseProduct Op = "category-wise-product"
	OpProductDetails      Op = "product-details"
	OpSearchProduct       Op = "search-product"
	OpFilterProduct       Op = "filter-product"
	OpAddToCart           Op = "add-to-cart"
	OpCartCount           Op = "cart-count"
	OpCartView            Op = "cart-view"
	OpUpdateCart          Op = "update-cart"
	OpDeleteCartLine      Op = "delete-cart-line"
	OpCleanCart           Op = "clean-cart"
	OpProcessPayment      Op = "process-payment"
	OpOrders              Op = "orders"
	OpUserOrders          Op = "user-orders"
	OpPayPalCreateOrder   Op = "paypal-create-order"
	OpPayPalCaptureOrder  Op = "paypal-capture-order"
	OpVNPayCreateURL      Op = "vnpay-create-payment-url"
	OpForgotPassword      Op = "forgot-password"
	OpResetPassword       Op = "reset-password"
	OpChangePassword      Op = "change-password"
	OpVerifyResetOTP      Op = "verify-reset-otp"
	OpTwoFactorSetup      Op = "2fa-setup"
	OpTwoFactorVerify     Op = "2fa-verify"
)

// Endpoint is where and how an operation is sent.
type Endpoint struct {
	URL    string
	Method string
}

// Registry maps operations to backend endpoints. It is read-only after construction.
type Registry struct {
	base  string
	table map[Op]Endpoint
}

var routes = map[Op]Endpoint{
	OpCurrentUser:         {"/api/user-details", http.MethodGet},
	OpSignIn:              {"/api/signin", http.MethodPost},
	OpLogout:              {"/api/userLogout", http.MethodGet},
	OpSendSignupOTP:       {"/api/send-otp-to-signup", http.MethodPost},
	OpVerifyOTP:           {"/api/verify-otp", http.MethodPost},
	OpSetPassword:         {"/api/set-password", http.MethodPost},
	OpAllUsers:            {"/api/all-user", http.MethodGet},
	OpUpdateUser:          {"/api/update-user", http.MethodPost},
	OpUploadProduct:       {"/api/upload-product", http.MethodPost},
	OpAllProducts:         {"/api/get-product", http.MethodGet},
	OpUpdateProduct:       {"/api/update-product", http.MethodPost},
	OpCategoryProduct:     {"/api/get-categoryProduct", http.MethodGet},
	OpCategoryWiseProduct: {"/api/category-product", http.MethodPost},
	OpProductDetails:      {"/api/product-details", http.MethodPost},
	OpSearchProduct:       {"/api/search", http.MethodGet},
	OpFilterProduct:       {"/api/filter-product", http.MethodPost},
	OpAddToCart:           {"/api/addtocart", http.MethodPost},
	OpCartCount:           {"/api/countAddToCartProduct", http.MethodGet},
	OpCartView:            {"/api/view-card-product", http.MethodGet},
	OpUpdateCart:          {"/api/update-cart-product", http.MethodPost},
	OpDeleteCartLine:      {"/api/delete-cart-product", http.MethodPost},
	OpCleanCart:           {"/api/clean-cart", http.MethodDelete},
	OpProcessPayment:      {"/api/payment", http.MethodPost},
	OpOrders:              {"/api/orders", http.MethodGet},
	OpUserOrders:          {"/api/user", http.MethodGet},
	OpPayPalCreateOrder:   {"/api/paypal_create_order", http.MethodPost},
	OpPayPalCaptureOrder:  {"/api/paypal_capture_order", http.MethodPost},
	OpVNPayCreateURL:      {"/api/payment/create_payment_url", http.MethodPost},
	OpForgotPassword:      {"/api/forgot-password", http.MethodPost},
	OpResetPassword:       {"/api/reset-password", http.MethodPost},
	OpChangePassword:      {"/api/change-password", http.MethodPost},
	OpVerifyResetOTP:      {"/api/verify-otp", http.MethodPost},
	OpTwoFactorSetup:      {"/api/2fa/setup", http.MethodGet},
	OpTwoFactorVerify:     {"/api/2fa/verify", http.MethodPost},
}

// NewRegistry resolves every route against the backend origin.
func NewRegistry(baseURL string) *Registry {
	base := strings.TrimRight(baseURL, "/")
	table := make(map[Op]Endpoint, len(routes))
	for op, ep := range routes {
		table[op] = Endpoint{URL: base + ep.URL, Method: ep.Method}
	}
	return &Registry{base: base, table: table}
}

// Lookup returns the endpoint for op.
func (r *Registry) Lookup(op Op) (Endpoint, bool) {
	ep, ok := r.table[op]
	return ep, ok
}

// MustLookup is Lookup for keys known at compile time.
func (r *Registry) MustLookup(op Op) Endpoint {
	ep, ok := r.table[op]
	if !ok {
		panic("api: unknown operation " + string(op))
	}
	return ep
}

// Ops lists every registered operation.
func (r *Registry) Ops() []Op {
	out := make([]Op, 0, len(r.table))
	for op := range r.table {
		out = append(out, op)
	}
	return out
}

// OrderStatus is the per-order status update endpoint.
func (r *Registry) OrderStatus(orderID string) Endpoint {
	return Endpoint{URL: r.base + "/api/orders/" + url.PathEscape(orderID) + "/status", Method: http.MethodPut}
}

// DeleteOrder removes one order.
func (r *Registry) DeleteOrder(orderID string) Endpoint {
	return Endpoint{URL: r.base + "/api/orders/" + url.PathEscape(orderID), Method: http.MethodDelete}
}

// DeleteUser removes one user account.
func (r *Registry) DeleteUser(userID string) Endpoint {
	return Endpoint{URL: r.base + "/api/delete-user/" + url.PathEscape(userID), Method: http.MethodDelete}
}

// DeleteProduct removes one product.
func (r *Registry) DeleteProduct(productID string) Endpoint {
	return Endpoint{URL: r.base + "/api/products/" + url.PathEscape(productID), Method: http.MethodDelete}
}
