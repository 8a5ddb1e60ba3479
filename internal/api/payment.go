package api

import (
	"context"
	"strings"
)

// ProcessPayment records a cash-on-delivery order.
func (c *Client) ProcessPayment(ctx context.Context, token string, order PaymentOrder) error {
	var resp Envelope
	_, err := c.call(ctx, OpProcessPayment, token, order, &resp)
	return err
}

// PayPalOrderRequest asks the backend to open a PayPal order.
type PayPalOrderRequest struct {
	TotalCost string      `json:"totalCost"`
	Currency  string      `json:"currency"`
	Items     []OrderItem `json:"items"`
	UserID    string      `json:"userId"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Address   string      `json:"address"`
}

type paypalCreateResponse struct {
	Envelope
	OrderID string `json:"orderID"`
}

// PayPalCreateOrder returns the PayPal order id the button widget approves.
func (c *Client) PayPalCreateOrder(ctx context.Context, token string, req PayPalOrderRequest) (string, error) {
	var resp paypalCreateResponse
	res, err := c.call(ctx, OpPayPalCreateOrder, token, req, &resp)
	if err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", &BusinessError{Status: res.Status, Message: "payment provider did not return an order id"}
	}
	return resp.OrderID, nil
}

// PayPalCaptureOrder settles an approved PayPal order.
func (c *Client) PayPalCaptureOrder(ctx context.Context, token, orderID string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpPayPalCaptureOrder, token, map[string]string{"orderID": orderID}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// VNPayRequest asks the backend for a hosted VNPay payment page.
type VNPayRequest struct {
	Amount    int64  `json:"amount"`
	OrderInfo string `json:"orderInfo"`
	BankCode  string `json:"bankCode"`
}

type vnpayResponse struct {
	PaymentURL string `json:"paymentUrl"`
	Message    string `json:"message"`
}

// VNPayCreatePaymentURL returns the URL the browser is sent to. This endpoint
// has no success flag: a missing URL is the failure signal.
func (c *Client) VNPayCreatePaymentURL(ctx context.Context, token string, req VNPayRequest) (string, error) {
	var resp vnpayResponse
	res, err := c.Call(ctx, c.reg.MustLookup(OpVNPayCreateURL), token, req, &resp)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(resp.PaymentURL, "http") {
		msg := resp.Message
		if msg == "" {
			msg = "could not create payment link"
		}
		return "", &BusinessError{Status: res.Status, Message: msg}
	}
	return resp.PaymentURL, nil
}

// UserOrders lists the signed-in user's own orders.
func (c *Client) UserOrders(ctx context.Context, token string) ([]Order, error) {
	var resp dataResponse[[]Order]
	if _, err := c.call(ctx, OpUserOrders, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
