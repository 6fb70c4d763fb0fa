// Package trackclient calls the funnel tracking API from Go programs such as
// server-side page renderers.
package trackclient

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

	"quizfunnel/api/models"

	log "github.com/sirupsen/logrus"
)

const defaultTimeout = 10 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracking api returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) TrackEvent(ctx context.Context, req models.TrackEventRequest) (*models.TrackResult, error) {
	var res models.TrackResult
	if err := c.post(ctx, "/api/track/event", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) TrackAbandonment(ctx context.Context, req models.AbandonmentRequest) (*models.AbandonmentResult, error) {
	var res models.AbandonmentResult
	if err := c.post(ctx, "/api/track/abandonment", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LeadReceipt is the lead endpoint's response.
type LeadReceipt struct {
	LeadID       string   `json:"leadId"`
	IsValid      bool     `json:"isValid"`
	UrgencyLevel string   `json:"urgencyLevel"`
	Tags         []string `json:"tags"`
}

func (c *Client) SubmitLead(ctx context.Context, req models.LeadRequest) (*LeadReceipt, error) {
	var res LeadReceipt
	if err := c.post(ctx, "/api/leads", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsClientError reports a 4xx response.
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

func logFailure(err error, fields log.Fields) {
	log.WithError(err).WithFields(fields).Warn("Tracking call failed")
}
