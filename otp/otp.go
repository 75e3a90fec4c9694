// Package otp is the client for the external one-time-passcode provider.
// The contract is deliberately narrow: given an account id, return the
// code that is currently valid. Anything empty or non-numeric counts as a
// failed attempt for the caller.
package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Source yields the currently valid code for an account. The authenticator
// depends on this signature, not on the HTTP client, so tests can script
// code sequences.
type Source interface {
	CurrentCode(ctx context.Context, accountID string) (string, error)
}

// Client calls the provider over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a Client for the provider at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// CurrentCode fetches GET {base}/codes/{accountID} and returns the code.
// Empty or non-numeric responses are errors.
func (c *Client) CurrentCode(ctx context.Context, accountID string) (string, error) {
	u := fmt.Sprintf("%s/codes/%s", c.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("otp: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("otp: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("otp: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("otp: read body: %w", err)
	}

	var out struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("otp: decode: %w", err)
	}
	if !ValidCode(out.Code) {
		return "", fmt.Errorf("otp: provider returned unusable code %q", out.Code)
	}
	return out.Code, nil
}

// ValidCode reports whether s is a plausible passcode: non-empty, digits only.
func ValidCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
