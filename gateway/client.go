// Package gateway is the REST client for the loyalty backend. It is a thin
// request/response layer; all session and balance semantics live above it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"barpoints/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Client talks to the loyalty backend.
type Client struct {
	baseURL    string
	apiVersion string // version segment for auth/users endpoints ("v1" or "")
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	APIVersion string
	// Transport decorates requests with authentication; nil means the
	// default transport (unauthenticated).
	Transport http.RoundTripper
	Timeout   time.Duration
}

// New creates a new gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
	}, nil
}

// versionedPath prefixes p with the configured version segment. Only the auth
// and users endpoints are versioned; bars and transactions never are.
func (c *Client) versionedPath(p string) string {
	if c.apiVersion == "" {
		return "/api" + p
	}
	return "/api/" + c.apiVersion + p
}

// Login authenticates a user with username and password.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodPost, c.versionedPath("/auth/login"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var resp models.User
	if err := c.do(ctx, http.MethodPost, c.versionedPath("/auth/register"), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile fetches the authoritative profile, including the points balance.
func (c *Client) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	var resp models.User
	path := c.versionedPath(fmt.Sprintf("/users/%d", userID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBars returns all participating venues with their rewards.
func (c *Client) ListBars(ctx context.Context) ([]models.Bar, error) {
	var resp []models.Bar
	if err := c.do(ctx, http.MethodGet, "/api/bars", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateTransaction submits a payment at a venue.
func (c *Client) CreateTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	var resp models.Transaction
	if err := c.do(ctx, http.MethodPost, "/api/transactions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes one request/response cycle. Non-2xx responses decode into an
// *APIError carrying the server's message when one is present.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	log.WithFields(log.Fields{
		"method":    method,
		"path":      path,
		"requestId": requestID,
	}).Debug("Sending gateway request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &payload); err == nil {
			apiErr.Message = payload.Message
		}
		log.WithFields(log.Fields{
			"method":    method,
			"path":      path,
			"status":    resp.StatusCode,
			"requestId": requestID,
		}).Warn("Gateway request failed")
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
