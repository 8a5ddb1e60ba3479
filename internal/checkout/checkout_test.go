package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/geo"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/validation"
)

type fakeBackend struct {
	calls      []string
	order      api.PaymentOrder
	paypalReq  api.PayPalOrderRequest
	vnpayReq   api.VNPayRequest
	processErr error
	cleanErr   error
	captureErr error
}

func (b *fakeBackend) ProcessPayment(ctx context.Context, token string, order api.PaymentOrder) error {
	b.calls = append(b.calls, "process-payment")
	b.order = order
	return b.processErr
}

func (b *fakeBackend) CleanCart(ctx context.Context, token, userID string) error {
	b.calls = append(b.calls, "clean-cart")
	return b.cleanErr
}

func (b *fakeBackend) PayPalCreateOrder(ctx context.Context, token string, req api.PayPalOrderRequest) (string, error) {
	b.calls = append(b.calls, "paypal-create")
	b.paypalReq = req
	return "PP-1", nil
}

func (b *fakeBackend) PayPalCaptureOrder(ctx context.Context, token, orderID string) (string, error) {
	b.calls = append(b.calls, "paypal-capture")
	return "Payment captured", b.captureErr
}

func (b *fakeBackend) VNPayCreatePaymentURL(ctx context.Context, token string, req api.VNPayRequest) (string, error) {
	b.calls = append(b.calls, "vnpay")
	b.vnpayReq = req
	return "https://sandbox.vnpayment.vn/pay?x=1", nil
}

type fakeNotifier struct {
	got []services.OrderNotification
}

func (n *fakeNotifier) NotifyNewOrder(ctx context.Context, order services.OrderNotification) error {
	n.got = append(n.got, order)
	return nil
}

var allMethods = []string{config.MethodCOD, config.MethodPayPal, config.MethodVNPay, config.MethodQR}

func newService(b Backend, n Notifier) *Service {
	return NewService(b, Options{
		Methods:        allMethods,
		ExchangeRate:   decimal.NewFromInt(25000),
		PayPalCurrency: "USD",
		QRBankID:       "970436",
		QRAccountNo:    "0011001234567",
		QRAccountName:  "CUA HANG",
	}, n, zerolog.Nop())
}

func completeAddress() geo.View {
	return geo.View{
		Province: geo.Division{Code: 1, Name: "Hà Nội"},
		District: geo.Division{Code: 2, Name: "Hoàn Kiếm"},
		Ward:     geo.Division{Code: 37, Name: "Hàng Bạc"},
	}
}

func readyOrder() Order {
	return Order{
		Token:   "tok",
		User:    &api.User{ID: "u1", Name: "An"},
		Draft:   Draft{Name: "An", Phone: "0901234567", Method: config.MethodCOD},
		Address: completeAddress(),
		Snapshot: cart.NewSnapshot([]api.CartLine{
			{ID: "l1", Product: &api.Product{ID: "p1", ProductName: "Trà", SellingPrice: 125000}, Quantity: 2},
			{ID: "l2", Quantity: 1},
		}),
	}
}

func TestCashOrderPlacesThenClears(t *testing.T) {
	b := &fakeBackend{}
	n := &fakeNotifier{}
	s := newService(b, n)

	require.NoError(t, s.PlaceCashOrder(context.Background(), readyOrder()))

	assert.Equal(t, []string{"process-payment", "clean-cart"}, b.calls)
	assert.Equal(t, "Hàng Bạc, Hoàn Kiếm, Hà Nội", b.order.Address)
	assert.Equal(t, float64(250000), b.order.TotalCost)
	assert.Equal(t, config.MethodCOD, b.order.PaymentMethod)
	assert.Equal(t, []api.OrderItem{{ID: "p1", Name: "Trà", Price: 125000, Quantity: 2}}, b.order.Items)
	require.Len(t, n.got, 1)
	assert.False(t, n.got[0].Paid)
}

func TestCashOrderFailureNeverClears(t *testing.T) {
	b := &fakeBackend{processErr: &api.BusinessError{Message: "Lỗi khi lưu đơn hàng"}}
	n := &fakeNotifier{}
	s := newService(b, n)

	err := s.PlaceCashOrder(context.Background(), readyOrder())
	var be *api.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []string{"process-payment"}, b.calls)
	assert.Empty(t, n.got)
}

func TestCashOrderClearFailureReported(t *testing.T) {
	b := &fakeBackend{cleanErr: &api.TransportError{Op: "DELETE", Cause: errors.New("timeout")}}
	s := newService(b, nil)

	err := s.PlaceCashOrder(context.Background(), readyOrder())
	assert.ErrorIs(t, err, ErrCartNotCleared)
	assert.ErrorIs(t, err, api.ErrUnreachable)
}

func TestCashOrderPreconditionsBlockNetwork(t *testing.T) {
	cases := map[string]func(o *Order){
		"signed out":    func(o *Order) { o.Token = ""; o.User = nil },
		"no ward":       func(o *Order) { o.Address.Ward = geo.Division{} },
		"bad phone":     func(o *Order) { o.Draft.Phone = "0112345678" },
		"empty cart":    func(o *Order) { o.Snapshot = cart.NewSnapshot(nil) },
		"only orphaned": func(o *Order) { o.Snapshot = cart.NewSnapshot([]api.CartLine{{ID: "x", Quantity: 2}}) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := &fakeBackend{}
			o := readyOrder()
			mutate(&o)

			err := newService(b, nil).PlaceCashOrder(context.Background(), o)
			assert.True(t, validation.IsValidation(err), err)
			assert.Empty(t, b.calls)
		})
	}
}

func TestGatewayReady(t *testing.T) {
	d := Draft{Phone: "0901234567"}
	assert.True(t, GatewayReady(d, completeAddress()))

	for _, mutate := range []func(v *geo.View, d *Draft){
		func(v *geo.View, d *Draft) { v.Province = geo.Division{} },
		func(v *geo.View, d *Draft) { v.District = geo.Division{} },
		func(v *geo.View, d *Draft) { v.Ward = geo.Division{} },
		func(v *geo.View, d *Draft) { d.Phone = "" },
	} {
		v, dd := completeAddress(), d
		mutate(&v, &dd)
		assert.False(t, GatewayReady(dd, v))
	}
}

func TestPayPalRoundTrip(t *testing.T) {
	b := &fakeBackend{}
	n := &fakeNotifier{}
	s := newService(b, n)
	o := readyOrder()

	id, err := s.CreatePayPalOrder(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, "PP-1", id)
	assert.Equal(t, "10.00", b.paypalReq.TotalCost)
	assert.Equal(t, "USD", b.paypalReq.Currency)

	_, err = s.CapturePayPalOrder(context.Background(), o, id)
	assert.ErrorIs(t, err, ErrUnknownPayPalOrder)

	o.Draft.PayPalID = id
	msg, err := s.CapturePayPalOrder(context.Background(), o, id)
	require.NoError(t, err)
	assert.Equal(t, "Payment captured", msg)
	assert.Equal(t, []string{"paypal-create", "paypal-capture"}, b.calls)
	require.Len(t, n.got, 1)
	assert.True(t, n.got[0].Paid)
}

func TestPayPalCaptureFailure(t *testing.T) {
	b := &fakeBackend{captureErr: &api.BusinessError{Message: "INSTRUMENT_DECLINED"}}
	n := &fakeNotifier{}
	o := readyOrder()
	o.Draft.PayPalID = "PP-1"

	_, err := newService(b, n).CapturePayPalOrder(context.Background(), o, "PP-1")
	var be *api.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "INSTRUMENT_DECLINED", be.Message)
	assert.Empty(t, n.got)
}

func TestVNPayURL(t *testing.T) {
	b := &fakeBackend{}
	u, err := newService(b, nil).CreateVNPayURL(context.Background(), readyOrder())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "https://"))
	assert.Equal(t, int64(250000), b.vnpayReq.Amount)
}

func TestDisabledMethod(t *testing.T) {
	b := &fakeBackend{}
	s := NewService(b, Options{Methods: []string{config.MethodPayPal}}, nil, zerolog.Nop())

	assert.ErrorIs(t, s.PlaceCashOrder(context.Background(), readyOrder()), ErrMethodDisabled)
	assert.Equal(t, config.MethodPayPal, s.DefaultMethod())
	assert.Empty(t, b.calls)
}

func TestPayPalCaptureDisabled(t *testing.T) {
	b := &fakeBackend{}
	s := NewService(b, Options{Methods: []string{config.MethodCOD}}, nil, zerolog.Nop())
	o := readyOrder()
	o.Draft.PayPalID = "PP-1"

	_, err := s.CapturePayPalOrder(context.Background(), o, "PP-1")
	assert.ErrorIs(t, err, ErrMethodDisabled)
	assert.Empty(t, b.calls)
}

func TestReview(t *testing.T) {
	r, err := newService(&fakeBackend{}, nil).Review(readyOrder())
	require.NoError(t, err)
	assert.Equal(t, "250.000 ₫", r.AmountText)
	assert.Equal(t, "10.00", r.Foreign)
	assert.Equal(t, "Cash on delivery", r.MethodLabel)
	assert.Equal(t, 2, r.TotalQuantity)
	assert.Len(t, r.Lines, 1)
}

func TestPrepareQR(t *testing.T) {
	q, err := newService(&fakeBackend{}, nil).PrepareQR(readyOrder())
	require.NoError(t, err)

	assert.Len(t, q.Reference, 6)
	assert.Equal(t, "Trà", q.Products)

	u, err := url.Parse(q.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, "img.vietqr.io", u.Host)
	assert.Equal(t, "/image/970436-0011001234567-compact2.png", u.Path)
	assert.Equal(t, "250000", u.Query().Get("amount"))
	assert.Equal(t, "DH"+q.Reference, u.Query().Get("addInfo"))
}

func TestPrepareQRKeepsDraftReference(t *testing.T) {
	o := readyOrder()
	o.Draft.Reference = "004217"

	q, err := newService(&fakeBackend{}, nil).PrepareQR(o)
	require.NoError(t, err)
	assert.Equal(t, "004217", q.Reference)
	assert.Contains(t, q.ImageURL, "addInfo=DH004217")
}

func TestVietQRWithoutAccount(t *testing.T) {
	assert.Empty(t, VietQRImageURL("", "", "", decimal.NewFromInt(1), "x"))
}

func TestDraftReset(t *testing.T) {
	d := Draft{Name: "An", Phone: "0901234567", Method: "paypal", PayPalID: "PP", Address: geo.Selection{Province: 1}}
	d.Reset()
	assert.Equal(t, Draft{Name: "An", Phone: "0901234567", Method: "paypal"}, d)
}
