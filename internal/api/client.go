package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnreachable marks failures to talk to the backend at all.
var ErrUnreachable = errors.New("backend unreachable")

// TransportError wraps a network or decoding failure.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrUnreachable, e.Cause}
}

// BusinessError is a `success:false` answer. Message is shown to the user verbatim.
type BusinessError struct {
	Status  int
	Message string
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected request (status %d)", e.Status)
	}
	return e.Message
}

// Result carries response metadata the caller may need beyond the body.
type Result struct {
	Status  int
	Cookies []*http.Cookie
}

// Cookie returns the named response cookie value.
func (r *Result) Cookie(name string) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// Client talks JSON to the storefront backend.
type Client struct {
	reg        *Registry
	http       *http.Client
	cookieName string
	log        zerolog.Logger
}

// NewClient builds a Client. timeout <= 0 means the 15s default.
func NewClient(reg *Registry, cookieName string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		reg:        reg,
		http:       &http.Client{Timeout: timeout},
		cookieName: cookieName,
		log:        logger,
	}
}

// Registry exposes the endpoint table the client resolves against.
func (c *Client) Registry() *Registry {
	return c.reg
}

// Call sends in as JSON (nil for no body) and decodes the response into out.
// Non-2xx answers are still decoded: the backend reports business failures
// with 4xx codes and a message body.
func (c *Client) Call(ctx context.Context, ep Endpoint, token string, in, out any) (*Result, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", ep.URL, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, ep.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", ep.URL, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: token})
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", ep.Method).Str("url", ep.URL).Msg("backend request failed")
		return nil, &TransportError{Op: ep.Method + " " + ep.URL, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: ep.Method + " " + ep.URL, Cause: err}
	}

	result := &Result{Status: resp.StatusCode, Cookies: resp.Cookies()}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.log.Error().Err(err).Int("status", resp.StatusCode).Str("url", ep.URL).Msg("undecodable backend response")
			return result, &TransportError{Op: ep.Method + " " + ep.URL, Cause: fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)}
		}
	}

	c.log.Debug().Str("method", ep.Method).Str("url", ep.URL).Int("status", resp.StatusCode).Msg("backend call")
	return result, nil
}

// call is Call on a registry key, returning the envelope's business error.
func (c *Client) call(ctx context.Context, op Op, token string, in any, out enveloped) (*Result, error) {
	return c.callEndpoint(ctx, c.reg.MustLookup(op), token, in, out)
}

func (c *Client) callEndpoint(ctx context.Context, ep Endpoint, token string, in any, out enveloped) (*Result, error) {
	res, err := c.Call(ctx, ep, token, in, out)
	if err != nil {
		return res, err
	}
	if err := out.envelope().Err(res.Status); err != nil {
		c.log.Debug().Str("url", ep.URL).Str("message", err.Error()).Msg("backend rejected request")
		return res, err
	}
	return res, nil
}

// withQuery appends query parameters to an endpoint URL.
func withQuery(ep Endpoint, params url.Values) Endpoint {
	if len(params) == 0 {
		return ep
	}
	return Endpoint{URL: ep.URL + "?" + params.Encode(), Method: ep.Method}
}

type enveloped interface {
	envelope() Envelope
}

func (e *Envelope) envelope() Envelope { return *e }

// dataResponse is the `{success, message, data}` shape most endpoints use.
type dataResponse[T any] struct {
	Envelope
	Data T `json:"data"`
}
