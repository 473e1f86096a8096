package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/sirupsen/logrus"
)

// ErrNoRemoteCart signals that the user has no pending cart on the
// server. Callers decide whether that means "create one" or "nothing to
// adopt".
var ErrNoRemoteCart = errors.New("no remote cart for user")

// TokenSource returns the current bearer token, or "" when no session
// exists. Token lifecycle (refresh, expiry) belongs to the session
// monitor, not this client.
type TokenSource func() string

// APIError carries a non-2xx response. Message is the server's error
// text verbatim, which checkout uses to classify stock failures.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks JSON over HTTP to the authoritative cart API. No retries
// and no timeouts of its own; transport policy lives in the injected
// http.Client.
type Client struct {
	http    *http.Client
	baseURL string
	token   TokenSource
	log     logrus.FieldLogger
}

func NewClient(httpClient *http.Client, baseURL string, token TokenSource, log logrus.FieldLogger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		token:   token,
		log:     log,
	}
}

type cartPayload struct {
	Items []domain.CartLine `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetCart reads the user's pending cart. A 404 or a snapshot without a
// sale id both mean ErrNoRemoteCart.
func (c *Client) GetCart(ctx context.Context) (*domain.RemoteCartSnapshot, error) {
	var snap domain.RemoteCartSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/sales/cart", nil, &snap); err != nil {
		return nil, err
	}
	if snap.SaleID == "" {
		return nil, ErrNoRemoteCart
	}
	return &snap, nil
}

// CreateCart opens a new server-side cart holding the given lines.
func (c *Client) CreateCart(ctx context.Context, items []domain.CartLine) (*domain.RemoteCartSnapshot, error) {
	var snap domain.RemoteCartSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/sales/cart", cartPayload{Items: items}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// UpdateCart overwrites the existing server-side cart wholesale. Updating
// a cart that does not exist is a distinct failure (ErrNoRemoteCart), not
// a silent success.
func (c *Client) UpdateCart(ctx context.Context, items []domain.CartLine) (*domain.RemoteCartSnapshot, error) {
	var snap domain.RemoteCartSnapshot
	if err := c.do(ctx, http.MethodPut, "/api/sales/cart", cartPayload{Items: items}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Confirm submits the pending cart for purchase confirmation. The request
// carries no body beyond authentication.
func (c *Client) Confirm(ctx context.Context) (*domain.ConfirmResult, error) {
	var result domain.ConfirmResult
	if err := c.do(ctx, http.MethodPost, "/api/sales/cart/confirm", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TaxRates fetches the full tax rate table.
func (c *Client) TaxRates(ctx context.Context) ([]domain.TaxRate, error) {
	var rates []domain.TaxRate
	if err := c.do(ctx, http.MethodGet, "/api/config/taxes", nil, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("cart api call")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoRemoteCart
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil {
		return "unreadable error response"
	}
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error != "" {
		return er.Error
	}
	return string(bytes.TrimSpace(data))
}
