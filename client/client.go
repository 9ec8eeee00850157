// Package client provides the HTTP client for the address lookup endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prior-it/addressbook/core"
)

const lookupPath = "/api/getAddresses"

var (
	// ErrTransport is returned when no usable response was received at all.
	ErrTransport = errors.New("lookup request failed")
	// ErrMalformedResponse is returned when a successful response does not contain a list of addresses.
	ErrMalformedResponse = errors.New("malformed lookup response")
)

// ResponseError is returned when the server rejected the lookup. Message is the server's own error message.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("lookup rejected (%d): %s", e.StatusCode, e.Message)
}

// Client looks up addresses on a lookup server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Force struct to implement the core interface
var _ core.AddressLookup = &Client{}

// Option allows configuring a Client.
type Option func(*Client)

// WithTimeout sets the total timeout of a single lookup.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets the logger, the default logger is used otherwise.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the lookup server at baseURL, e.g. "http://localhost:3000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements core.AddressLookup.Lookup
//
// Errors are one of *ResponseError (the server answered with an error status), ErrTransport (no response or
// an unreadable one) or ErrMalformedResponse (a successful response without a list of addresses).
func (c *Client) Lookup(
	ctx context.Context,
	postcode string,
	streetNumber string,
) ([]core.RawAddress, error) {
	params := url.Values{}
	params.Set("postcode", postcode)
	params.Set("streetnumber", streetNumber)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, lookupPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("lookup request failed", "error", err)
		return nil, errors.Join(ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.log.Debug("lookup response",
		"status", resp.StatusCode,
		"postcode", postcode,
		"streetnumber", streetNumber,
		"latency", time.Since(start),
	)

	var body struct {
		Status       core.ResponseStatus `json:"status"`
		Details      json.RawMessage     `json:"details"`
		ErrorMessage string              `json:"errormessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Join(ErrTransport, fmt.Errorf("cannot decode lookup response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Message: body.ErrorMessage}
	}

	details := bytes.TrimSpace(body.Details)
	if len(details) == 0 || details[0] != '[' {
		return nil, ErrMalformedResponse
	}
	var addresses []core.RawAddress
	if err := json.Unmarshal(details, &addresses); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	return addresses, nil
}
