// Package api is the HTTP client of the buzzer server's device and
// notification endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Buzzer/internal/domain"
)

// Client talks to the server with the device's bearer credential.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Config configures the client.
type Config struct {
	// BaseURL is the http(s) base URL of the server.
	BaseURL string
	Token   string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8000",
		Timeout: 15 * time.Second,
	}
}

func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// APIError is an error response of the server.
type APIError struct {
	Status int    `json:"-"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
}

func (c *Client) RegisterDevice(ctx context.Context, reg domain.DeviceRegistration) (*domain.Device, error) {
	var dev domain.Device
	if err := c.post(ctx, "/api/devices/register", reg, &dev); err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	return &dev, nil
}

func (c *Client) PushPublicKey(ctx context.Context) (string, error) {
	var out struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.get(ctx, "/api/notifications/vapid-public-key", &out); err != nil {
		return "", fmt.Errorf("vapid public key: %w", err)
	}
	return out.PublicKey, nil
}

func (c *Client) SubmitSubscription(ctx context.Context, req domain.SubscriptionRequest) error {
	if err := c.post(ctx, "/api/notifications/subscribe", req, nil); err != nil {
		return fmt.Errorf("submit subscription: %w", err)
	}
	return nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// do executes a request.
func (c *Client) do(req *http.Request, result any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	log.Debug().Str("module", "adapters.api").Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("response")

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
