package api

import "context"

// AddToCart puts one unit of a product into the cart.
func (c *Client) AddToCart(ctx context.Context, token, productID string) (string, error) {
	var resp Envelope
	if _, err := c.call(ctx, OpAddToCart, token, map[string]string{"productId": productID}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CartCount returns the number of lines in the cart.
func (c *Client) CartCount(ctx context.Context, token string) (int, error) {
	var resp dataResponse[struct {
		Count int `json:"count"`
	}]
	if _, err := c.call(ctx, OpCartCount, token, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Data.Count, nil
}

// CartView returns the cart lines with products embedded.
func (c *Client) CartView(ctx context.Context, token string) ([]CartLine, error) {
	var resp dataResponse[[]CartLine]
	if _, err := c.call(ctx, OpCartView, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// UpdateCartLine sets the quantity of one cart line.
func (c *Client) UpdateCartLine(ctx context.Context, token, lineID string, quantity int) error {
	var resp Envelope
	_, err := c.call(ctx, OpUpdateCart, token, map[string]any{"_id": lineID, "quantity": quantity}, &resp)
	return err
}

// DeleteCartLine removes one cart line.
func (c *Client) DeleteCartLine(ctx context.Context, token, lineID string) error {
	var resp Envelope
	_, err := c.call(ctx, OpDeleteCartLine, token, map[string]string{"_id": lineID}, &resp)
	return err
}

// CleanCart empties the cart of userID.
func (c *Client) CleanCart(ctx context.Context, token, userID string) error {
	var resp Envelope
	_, err := c.call(ctx, OpCleanCart, token, map[string]string{"userId": userID}, &resp)
	return err
}
