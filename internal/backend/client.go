package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotFound = errors.New("resource not found")

// APIError is any non-2xx upstream response that is not a plain 404.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListRequests(ctx context.Context) ([]Request, error) {
	var out []Request
	if err := c.do(ctx, http.MethodGet, "/api/v1/shopforme/requests/", nil, &out); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

func (c *Client) GetRequest(ctx context.Context, id string) (Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodGet, "/api/v1/shopforme/requests/"+id+"/", nil, &out); err != nil {
		return Request{}, fmt.Errorf("get request %s: %w", id, err)
	}
	return out, nil
}

func (c *Client) Wallet(ctx context.Context) (WalletInfo, error) {
	var out WalletInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/payments/wallet/", nil, &out); err != nil {
		return WalletInfo{}, fmt.Errorf("wallet: %w", err)
	}
	return out, nil
}

func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var out []Address
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/address-book/", nil, &out); err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return out, nil
}

// ShippingOptions returns the raw undecoded option objects: the wire shape
// varies, so decoding is left to the shipping package.
func (c *Client) ShippingOptions(ctx context.Context, requestID string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/v1/shopforme/requests/"+requestID+"/shipping-options/", nil, &out); err != nil {
		return nil, fmt.Errorf("shipping options %s: %w", requestID, err)
	}
	return out, nil
}

func (c *Client) CalculateRates(ctx context.Context, p RateCalcParams) ([]CalculatedRate, error) {
	var out []CalculatedRate
	if err := c.do(ctx, http.MethodPost, "/api/v1/shipping/calculate-rates/", p, &out); err != nil {
		return nil, fmt.Errorf("calculate rates: %w", err)
	}
	return out, nil
}

// PreparePayment hits an optional endpoint; callers are expected to fall back
// locally when it fails.
func (c *Client) PreparePayment(ctx context.Context, requestID string, p PrepareParams) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/v1/shopforme/requests/"+requestID+"/prepare-payment/", p, &out); err != nil {
		return nil, fmt.Errorf("prepare payment %s: %w", requestID, err)
	}
	return out, nil
}

func (c *Client) Pay(ctx context.Context, requestID string, p PayParams) (PayResult, error) {
	var out PayResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/shopforme/requests/"+requestID+"/pay/", p, &out); err != nil {
		return PayResult{}, fmt.Errorf("pay %s: %w", requestID, err)
	}
	return out, nil
}

func (c *Client) CancelRequest(ctx context.Context, requestID string) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/shopforme/requests/"+requestID+"/cancel/", nil, nil); err != nil {
		return fmt.Errorf("cancel request %s: %w", requestID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	b, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		apiErr.Message = "unreadable error body"
		return apiErr
	}

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(b, &envelope) == nil {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
		if apiErr.Message == "" {
			apiErr.Message = envelope.Detail
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(b))
	}
	return apiErr
}
