// Package geo resolves the province / district / ward address chain against
// the public administrative-division API.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Division is one administrative unit.
type Division struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Provider lists divisions level by level.
type Provider interface {
	Provinces(ctx context.Context) ([]Division, error)
	Districts(ctx context.Context, province int) ([]Division, error)
	Wards(ctx context.Context, district int) ([]Division, error)
}

// HTTPProvider reads provinces.open-api.vn style endpoints.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider builds a provider rooted at baseURL (e.g. https://provinces.open-api.vn/api).
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Provinces returns every province.
func (p *HTTPProvider) Provinces(ctx context.Context) ([]Division, error) {
	var out []Division
	if err := p.get(ctx, "/p/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Districts returns the districts of a province.
func (p *HTTPProvider) Districts(ctx context.Context, province int) ([]Division, error) {
	var out struct {
		Districts []Division `json:"districts"`
	}
	if err := p.get(ctx, "/p/"+strconv.Itoa(province)+"?depth=2", &out); err != nil {
		return nil, err
	}
	return out.Districts, nil
}

// Wards returns the wards of a district.
func (p *HTTPProvider) Wards(ctx context.Context, district int) ([]Division, error) {
	var out struct {
		Wards []Division `json:"wards"`
	}
	if err := p.get(ctx, "/d/"+strconv.Itoa(district)+"?depth=2", &out); err != nil {
		return nil, err
	}
	return out.Wards, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build geo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("geo request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read geo response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("geo request %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode geo response: %w", err)
	}
	return nil
}
