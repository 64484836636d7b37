package pwa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the HTTP Registrar implementation talking to the backend API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a registrar client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// PublicKey fetches the application server public key.
func (c *Client) PublicKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/push-public-key", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch push public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("push public key request returned %s", resp.Status)
	}

	var body struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode push public key response: %w", err)
	}
	return body.PublicKey, nil
}

// Subscribe posts a subscription descriptor plus the detected platform to the
// registrar.
func (c *Client) Subscribe(ctx context.Context, sub PushSubscription, platform string) error {
	payload := struct {
		PushSubscription
		Platform string `json:"platform"`
	}{PushSubscription: sub, Platform: platform}

	return c.post(ctx, "/api/push-subscribe", payload)
}

// Unsubscribe tells the registrar the endpoint is gone.
func (c *Client) Unsubscribe(ctx context.Context, endpoint string) error {
	return c.post(ctx, "/api/push-unsubscribe", map[string]string{"endpoint": endpoint})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request to %s returned %s", path, resp.Status)
	}
	return nil
}
