package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/geo"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
	"github.com/example/storefront/internal/validation"
)

var (
	// ErrCartNotCleared means the order was recorded but the cart could not
	// be emptied afterwards.
	ErrCartNotCleared = errors.New("order placed but the cart could not be cleared")
	// ErrMethodDisabled rejects a payment method that is not offered.
	ErrMethodDisabled = errors.New("payment method is not available")
	// ErrUnknownPayPalOrder rejects a capture for an order this session did not create.
	ErrUnknownPayPalOrder = errors.New("unknown PayPal order")
)

// Backend is the order and payment surface of the storefront backend.
type Backend interface {
	ProcessPayment(ctx context.Context, token string, order api.PaymentOrder) error
	CleanCart(ctx context.Context, token, userID string) error
	PayPalCreateOrder(ctx context.Context, token string, req api.PayPalOrderRequest) (string, error)
	PayPalCaptureOrder(ctx context.Context, token, orderID string) (string, error)
	VNPayCreatePaymentURL(ctx context.Context, token string, req api.VNPayRequest) (string, error)
}

// Notifier is told about placed orders.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order services.OrderNotification) error
}

// Options parameterise the checkout.
type Options struct {
	Methods        []string
	ExchangeRate   decimal.Decimal
	PayPalCurrency string
	QRBankID       string
	QRAccountNo    string
	QRAccountName  string
}

// OptionsFromConfig reads the checkout settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Methods:        cfg.PaymentMethods,
		ExchangeRate:   cfg.ExchangeRate,
		PayPalCurrency: cfg.PayPalCurrency,
		QRBankID:       cfg.QRBankID,
		QRAccountNo:    cfg.QRAccountNo,
		QRAccountName:  cfg.QRAccountName,
	}
}

// Order is everything one checkout submission works from. Address and
// Snapshot must be taken fresh for the submission.
type Order struct {
	Token    string
	User     *api.User
	Draft    Draft
	Address  geo.View
	Snapshot cart.Snapshot
}

// Service runs checkouts.
type Service struct {
	backend Backend
	opts    Options
	notify  Notifier
	log     zerolog.Logger
}

// NewService wires a Service. notify may be nil.
func NewService(backend Backend, opts Options, notify Notifier, logger zerolog.Logger) *Service {
	if !opts.ExchangeRate.IsPositive() {
		opts.ExchangeRate = decimal.NewFromInt(25000)
	}
	if opts.PayPalCurrency == "" {
		opts.PayPalCurrency = "USD"
	}
	return &Service{backend: backend, opts: opts, notify: notify, log: logger}
}

// Options returns the checkout settings.
func (s *Service) Options() Options { return s.opts }

// Methods lists the enabled payment methods in display order.
func (s *Service) Methods() []string {
	return append([]string(nil), s.opts.Methods...)
}

// MethodEnabled reports whether method is offered.
func (s *Service) MethodEnabled(method string) bool {
	for _, m := range s.opts.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// DefaultMethod is the preselected method.
func (s *Service) DefaultMethod() string {
	if s.MethodEnabled(config.MethodCOD) || len(s.opts.Methods) == 0 {
		return config.MethodCOD
	}
	return s.opts.Methods[0]
}

// Readiness lists what still blocks submission.
type Readiness struct {
	SignedIn        bool
	AddressComplete bool
	PhoneValid      bool
	CartNonEmpty    bool
}

// Ready reports whether every precondition holds.
func (r Readiness) Ready() bool {
	return r.SignedIn && r.AddressComplete && r.PhoneValid && r.CartNonEmpty
}

// Err turns the first unmet precondition into a validation error.
func (r Readiness) Err() error {
	switch {
	case !r.SignedIn:
		return validation.Fail("user", "Please sign in to check out")
	case !r.CartNonEmpty:
		return validation.Fail("cart", "Your cart is empty")
	case !r.AddressComplete:
		return validation.Fail("address", "Please choose province, district and ward")
	case !r.PhoneValid:
		return validation.Fail("phone", "Please enter a valid Vietnamese phone number")
	}
	return nil
}

// Check evaluates the submission preconditions of o.
func Check(o Order) Readiness {
	return Readiness{
		SignedIn:        o.Token != "" && o.User != nil && o.User.ID != "",
		AddressComplete: o.Address.Complete(),
		PhoneValid:      validation.ValidPhone(o.Draft.Phone),
		CartNonEmpty:    !o.Snapshot.Empty(),
	}
}

// GatewayReady reports whether the PayPal button may be enabled: province,
// district, ward and a valid phone are all present.
func GatewayReady(d Draft, addr geo.View) bool {
	return addr.Province.Code != 0 &&
		addr.District.Code != 0 &&
		addr.Ward.Code != 0 &&
		validation.ValidPhone(d.Phone)
}

// Review is the confirmation shown before an irreversible submission.
type Review struct {
	Name          string
	Phone         string
	Address       string
	Method        string
	MethodLabel   string
	Lines         []cart.Line
	TotalQuantity int
	Amount        decimal.Decimal
	AmountText    string
	Foreign       string
	Currency      string
}

// MethodLabels are the display names of payment methods.
var MethodLabels = map[string]string{
	config.MethodCOD:    "Cash on delivery",
	config.MethodPayPal: "PayPal",
	config.MethodVNPay:  "VNPay",
	config.MethodQR:     "Bank transfer (QR)",
}

// Review builds the confirmation for o.
func (s *Service) Review(o Order) (Review, error) {
	if err := Check(o).Err(); err != nil {
		return Review{}, err
	}
	addr, err := fullAddress(o.Address)
	if err != nil {
		return Review{}, err
	}
	foreign, err := o.Snapshot.Foreign(s.opts.ExchangeRate)
	if err != nil {
		return Review{}, err
	}
	return Review{
		Name:          o.Draft.Name,
		Phone:         o.Draft.Phone,
		Address:       addr,
		Method:        o.Draft.Method,
		MethodLabel:   MethodLabels[o.Draft.Method],
		Lines:         o.Snapshot.Lines(),
		TotalQuantity: o.Snapshot.TotalQuantity(),
		Amount:        o.Snapshot.TotalCost(),
		AmountText:    utils.FormatVND(o.Snapshot.TotalCost()),
		Foreign:       foreign,
		Currency:      s.opts.PayPalCurrency,
	}, nil
}

// PlaceCashOrder records a cash-on-delivery order, then empties the cart.
// The cart is only cleared once the order is recorded; any error leaves the
// caller's cart state untouched.
func (s *Service) PlaceCashOrder(ctx context.Context, o Order) error {
	if !s.MethodEnabled(config.MethodCOD) {
		return ErrMethodDisabled
	}
	if err := Check(o).Err(); err != nil {
		return err
	}
	addr, err := fullAddress(o.Address)
	if err != nil {
		return err
	}

	total, _ := o.Snapshot.TotalCost().Float64()
	order := api.PaymentOrder{
		Name:          o.Draft.Name,
		Phone:         o.Draft.Phone,
		Address:       addr,
		Items:         o.Snapshot.Items(),
		UserID:        o.User.ID,
		PaymentMethod: config.MethodCOD,
		TotalCost:     total,
	}
	if err := s.backend.ProcessPayment(ctx, o.Token, order); err != nil {
		return fmt.Errorf("place order: %w", err)
	}

	if err := s.backend.CleanCart(ctx, o.Token, o.User.ID); err != nil {
		s.log.Error().Err(err).Str("user", o.User.ID).Msg("order placed but cart clear failed")
		return fmt.Errorf("%w: %w", ErrCartNotCleared, err)
	}

	s.log.Info().Str("user", o.User.ID).Str("total", o.Snapshot.TotalCost().String()).Msg("cash order placed")
	s.notifyOrder(ctx, o, addr, config.MethodCOD, "", false)
	return nil
}

// CreatePayPalOrder opens a PayPal order for the converted total and returns
// its id.
func (s *Service) CreatePayPalOrder(ctx context.Context, o Order) (string, error) {
	if !s.MethodEnabled(config.MethodPayPal) {
		return "", ErrMethodDisabled
	}
	if err := Check(o).Err(); err != nil {
		return "", err
	}
	addr, err := fullAddress(o.Address)
	if err != nil {
		return "", err
	}
	amount, err := o.Snapshot.Foreign(s.opts.ExchangeRate)
	if err != nil {
		return "", err
	}

	id, err := s.backend.PayPalCreateOrder(ctx, o.Token, api.PayPalOrderRequest{
		TotalCost: amount,
		Currency:  s.opts.PayPalCurrency,
		Items:     o.Snapshot.Items(),
		UserID:    o.User.ID,
		Name:      o.Draft.Name,
		Phone:     o.Draft.Phone,
		Address:   addr,
	})
	if err != nil {
		return "", fmt.Errorf("create paypal order: %w", err)
	}
	s.log.Info().Str("user", o.User.ID).Str("paypal_order", id).Str("amount", amount).Msg("paypal order created")
	return id, nil
}

// CapturePayPalOrder settles orderID, which must be the order this session
// created. On error the caller leaves its cart state alone.
func (s *Service) CapturePayPalOrder(ctx context.Context, o Order, orderID string) (string, error) {
	if !s.MethodEnabled(config.MethodPayPal) {
		return "", ErrMethodDisabled
	}
	if orderID == "" || orderID != o.Draft.PayPalID {
		return "", ErrUnknownPayPalOrder
	}
	if o.Token == "" {
		return "", Readiness{}.Err()
	}

	msg, err := s.backend.PayPalCaptureOrder(ctx, o.Token, orderID)
	if err != nil {
		return "", fmt.Errorf("capture paypal order: %w", err)
	}

	s.log.Info().Str("paypal_order", orderID).Msg("paypal order captured")
	if addr, err := fullAddress(o.Address); err == nil {
		s.notifyOrder(ctx, o, addr, config.MethodPayPal, orderID, true)
	}
	return msg, nil
}

// CreateVNPayURL asks for a hosted VNPay page for the cart total. The caller
// redirects the browser there.
func (s *Service) CreateVNPayURL(ctx context.Context, o Order) (string, error) {
	if !s.MethodEnabled(config.MethodVNPay) {
		return "", ErrMethodDisabled
	}
	if err := Check(o).Err(); err != nil {
		return "", err
	}

	payURL, err := s.backend.VNPayCreatePaymentURL(ctx, o.Token, api.VNPayRequest{
		Amount:    o.Snapshot.TotalCost().IntPart(),
		OrderInfo: fmt.Sprintf("Thanh toan don hang cua %s", o.User.ID),
	})
	if err != nil {
		return "", fmt.Errorf("create vnpay url: %w", err)
	}
	return payURL, nil
}

// QRTransfer is what the bank transfer page shows.
type QRTransfer struct {
	Reference   string
	Name        string
	Phone       string
	Address     string
	Products    string
	Amount      decimal.Decimal
	AmountText  string
	BankID      string
	AccountNo   string
	AccountName string
	ImageURL    string
}

// PrepareQR builds transfer instructions. The draft's reference is kept
// when set, otherwise a fresh one is drawn.
func (s *Service) PrepareQR(o Order) (QRTransfer, error) {
	if !s.MethodEnabled(config.MethodQR) {
		return QRTransfer{}, ErrMethodDisabled
	}
	if err := Check(o).Err(); err != nil {
		return QRTransfer{}, err
	}
	addr, err := fullAddress(o.Address)
	if err != nil {
		return QRTransfer{}, err
	}
	ref := o.Draft.Reference
	if ref == "" {
		if ref, err = newReference(); err != nil {
			return QRTransfer{}, err
		}
	}

	var products []string
	for _, l := range o.Snapshot.Lines() {
		products = append(products, l.Product.ProductName)
	}

	q := QRTransfer{
		Reference:   ref,
		Name:        o.Draft.Name,
		Phone:       o.Draft.Phone,
		Address:     addr,
		Products:    strings.Join(products, ", "),
		Amount:      o.Snapshot.TotalCost(),
		AmountText:  utils.FormatVND(o.Snapshot.TotalCost()),
		BankID:      s.opts.QRBankID,
		AccountNo:   s.opts.QRAccountNo,
		AccountName: s.opts.QRAccountName,
	}
	q.ImageURL = VietQRImageURL(q.BankID, q.AccountNo, q.AccountName, q.Amount, "DH"+ref)
	return q, nil
}

// VietQRImageURL is the img.vietqr.io quick link for a transfer. It is empty
// when no receiving account is configured.
func VietQRImageURL(bankID, accountNo, accountName string, amount decimal.Decimal, info string) string {
	if bankID == "" || accountNo == "" {
		return ""
	}
	q := url.Values{}
	q.Set("amount", amount.Round(0).StringFixed(0))
	q.Set("addInfo", info)
	if accountName != "" {
		q.Set("accountName", accountName)
	}
	return fmt.Sprintf("https://img.vietqr.io/image/%s-%s-compact2.png?%s",
		url.PathEscape(bankID), url.PathEscape(accountNo), q.Encode())
}

func (s *Service) notifyOrder(ctx context.Context, o Order, addr, method, ref string, paid bool) {
	if s.notify == nil {
		return
	}
	items := make([]services.OrderItemNotification, 0, o.Snapshot.Len())
	for _, it := range o.Snapshot.Items() {
		items = append(items, services.OrderItemNotification{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	if ref == "" {
		ref = o.User.ID
	}
	err := s.notify.NotifyNewOrder(ctx, services.OrderNotification{
		Reference:     ref,
		Items:         items,
		Total:         o.Snapshot.TotalCost(),
		UserName:      o.Draft.Name,
		UserPhone:     o.Draft.Phone,
		Address:       addr,
		PaymentMethod: method,
		Paid:          paid,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("order notification failed")
	}
}

func fullAddress(v geo.View) (string, error) {
	if !v.Complete() {
		return "", geo.ErrIncomplete
	}
	return v.Ward.Name + ", " + v.District.Name + ", " + v.Province.Name, nil
}

func newReference() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate order reference: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
