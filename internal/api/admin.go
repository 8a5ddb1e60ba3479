package api

import "context"

// AllUsers lists every account. Admin only.
func (c *Client) AllUsers(ctx context.Context, token string) ([]User, error) {
	var resp dataResponse[[]User]
	if _, err := c.call(ctx, OpAllUsers, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UserUpdate changes an account's profile or role.
type UserUpdate struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// UpdateUser applies an admin edit.
func (c *Client) UpdateUser(ctx context.Context, token string, upd UserUpdate) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpUpdateUser, token, upd, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, token, userID string) error {
	var resp Envelope
	_, err := c.callEndpoint(ctx, c.reg.DeleteUser(userID), token, nil, &resp)
	return err
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	ID           string   `json:"_id,omitempty"`
	ProductName  string   `json:"productName"`
	BrandName    string   `json:"brandName"`
	Category     string   `json:"category"`
	ProductImage []string `json:"productImage"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	SellingPrice float64  `json:"sellingPrice"`
}

// UploadProduct creates a product.
func (c *Client) UploadProduct(ctx context.Context, token string, in ProductInput) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpUploadProduct, token, in, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// UpdateProduct edits a product; in.ID must be set.
func (c *Client) UpdateProduct(ctx context.Context, token string, in ProductInput) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpUpdateProduct, token, in, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, token, productID string) error {
	var resp Envelope
	_, err := c.callEndpoint(ctx, c.reg.DeleteProduct(productID), token, nil, &resp)
	return err
}

// Orders lists all orders. Admin only.
func (c *Client) Orders(ctx context.Context, token string) ([]Order, error) {
	var resp dataResponse[[]Order]
	if _, err := c.call(ctx, OpOrders, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateOrderStatus moves an order to status.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID, status string) error {
	var resp Envelope
	_, err := c.callEndpoint(ctx, c.reg.OrderStatus(orderID), token, map[string]string{"status": status}, &resp)
	return err
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, token, orderID string) error {
	var resp Envelope
	_, err := c.callEndpoint(ctx, c.reg.DeleteOrder(orderID), token, nil, &resp)
	return err
}
