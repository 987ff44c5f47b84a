// Package backend is the HTTP client for the consent and chat endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// Client talks to the collector's consent and chat endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logging.ChanneledLogger
}

// NewClient creates a client. A nil httpClient gets a default with timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration, logger *logging.ChanneledLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

type consentCheckResponse struct {
	HasConsent bool `json:"has_consent"`
}

// CheckConsent reads the consent record for the session.
func (c *Client) CheckConsent(ctx context.Context, tenantID, sessionID string) (bool, error) {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	q.Set("session_id", sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/consent/check?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build consent check: %w", err)
	}

	var out consentCheckResponse
	if err := c.do(req, "consent check", &out); err != nil {
		return false, err
	}
	return out.HasConsent, nil
}

// GrantConsent writes an accepted consent record.
func (c *Client) GrantConsent(ctx context.Context, record consent.Record) error {
	req, err := c.jsonRequest(ctx, c.baseURL+"/api/consent/", record)
	if err != nil {
		return err
	}
	return c.do(req, "consent grant", nil)
}

// Chat sends one message. HTTP 451 is returned as consent.ErrRequired.
func (c *Client) Chat(ctx context.Context, request chat.Request) (chat.Reply, error) {
	req, err := c.jsonRequest(ctx, c.baseURL+"/api/chat", request)
	if err != nil {
		return chat.Reply{}, err
	}

	start := time.Now()
	var reply chat.Reply
	err = c.do(req, "chat", &reply)
	c.logger.Chat().Debug("Chat round trip", "duration", time.Since(start), "success", err == nil)
	return reply, err
}

func (c *Client) jsonRequest(ctx context.Context, target string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnavailableForLegalReasons {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: %w", op, consent.ErrRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: op, Status: resp.StatusCode}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
