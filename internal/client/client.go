// Package client talks to the exchange endpoints and reports failures as transfer errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"stusave.app/internal/transfer"
)

const (
	transferPath    = "/transfer"
	requestIDHeader = "X-Request-ID"
	// redeemed payloads larger than this are refused
	maxResponseBytes = 8 << 20
)

var _ transfer.Exchange = (*Client)(nil)

// requestTagger is a custom http.RoundTripper that stamps each request with a
// user agent and a fresh request id.
type requestTagger struct {
	userAgent string
	next      http.RoundTripper
}

func (t *requestTagger) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	if req.Header.Get(requestIDHeader) == "" {
		req.Header.Set(requestIDHeader, uuid.NewString())
	}
	return t.next.RoundTrip(req)
}

// Client is a stateless HTTP client for the exchange endpoints.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}

	c := &Client{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &requestTagger{
				userAgent: "stusave-client/1",
				next:      http.DefaultTransport,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type registerResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Register posts payload and returns the id that redeems it.
func (c *Client) Register(ctx context.Context, payload json.RawMessage) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transferPath, bytes.NewReader(payload))
	if err != nil {
		return "", transfer.NewError(transfer.KindInternal, fmt.Errorf("create register request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", transfer.NewError(transfer.KindNetwork, fmt.Errorf("register: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// a rejected upload is our bug, not a bad scan
		return "", statusError(resp, transfer.KindInternal)
	}

	var out registerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out); err != nil || out.ID == "" {
		return "", transfer.NewError(transfer.KindNetwork, fmt.Errorf("register: malformed response"))
	}
	return out.ID, nil
}

// Redeem fetches and consumes the payload registered under id.
func (c *Client) Redeem(ctx context.Context, id string) (json.RawMessage, error) {
	target := c.baseURL + transferPath + "?" + url.Values{"id": {id}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, transfer.NewError(transfer.KindInternal, fmt.Errorf("create redeem request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, transfer.NewError(transfer.KindNetwork, fmt.Errorf("redeem: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, transfer.KindInvalidQRPayload)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, transfer.NewError(transfer.KindNetwork, fmt.Errorf("redeem: read body: %w", err))
	}
	if len(body) > maxResponseBytes {
		return nil, transfer.NewError(transfer.KindInvalidDataShape, errors.New("redeemed payload too large"))
	}
	if !json.Valid(body) {
		return nil, transfer.NewError(transfer.KindInvalidDataShape, errors.New("redeemed payload is not JSON"))
	}
	return body, nil
}

// statusError maps a non-200 response onto the transfer error taxonomy.
func statusError(resp *http.Response, badRequest transfer.Kind) error {
	var body errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}
	cause := fmt.Errorf("server responded %d: %s", resp.StatusCode, msg)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return transfer.NewError(transfer.KindNotFound, cause)
	case http.StatusGone:
		return transfer.NewError(transfer.KindExpired, cause)
	case http.StatusBadRequest:
		return transfer.NewError(badRequest, cause)
	case http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return transfer.NewError(transfer.KindInternal, cause)
	default:
		return transfer.NewError(transfer.KindNetwork, cause)
	}
}
