package api

import (
	"context"
	"net/url"
)

// AllProducts lists the whole catalog.
func (c *Client) AllProducts(ctx context.Context) ([]Product, error) {
	var resp dataResponse[[]Product]
	if _, err := c.call(ctx, OpAllProducts, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CategoryShowcase returns one representative product per category.
func (c *Client) CategoryShowcase(ctx context.Context) ([]Product, error) {
	var resp dataResponse[[]Product]
	if _, err := c.call(ctx, OpCategoryProduct, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CategoryProducts lists the products of one category.
func (c *Client) CategoryProducts(ctx context.Context, category string) ([]Product, error) {
	var resp dataResponse[[]Product]
	if _, err := c.call(ctx, OpCategoryWiseProduct, "", map[string]string{"category": category}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ProductDetails fetches one product.
func (c *Client) ProductDetails(ctx context.Context, productID string) (*Product, error) {
	var resp dataResponse[*Product]
	if _, err := c.call(ctx, OpProductDetails, "", map[string]string{"productId": productID}, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &BusinessError{Message: "product not found"}
	}
	return resp.Data, nil
}

// SearchProducts runs a free-text catalog search.
func (c *Client) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	var resp dataResponse[[]Product]
	ep := withQuery(c.reg.MustLookup(OpSearchProduct), url.Values{"q": {query}})
	if _, err := c.callEndpoint(ctx, ep, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// FilterProducts returns the products in any of the given categories.
func (c *Client) FilterProducts(ctx context.Context, categories []string) ([]Product, error) {
	if categories == nil {
		categories = []string{}
	}
	var resp dataResponse[[]Product]
	if _, err := c.call(ctx, OpFilterProduct, "", map[string][]string{"category": categories}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
