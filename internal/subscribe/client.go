// Package subscribe forwards newsletter sign-ups to the ConvertKit form API.
package subscribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the public ConvertKit API.
const DefaultBaseURL = "https://api.convertkit.com"

var (
	// ErrInvalidEmail is returned for an address without an "@".
	ErrInvalidEmail = errors.New("subscribe: valid email required")
	// ErrNotConfigured is returned when the API key or form id is missing.
	ErrNotConfigured = errors.New("subscribe: api key and form id are required")
	// ErrNetwork wraps transport failures talking to the upstream API.
	ErrNetwork = errors.New("subscribe: network error")
)

// UpstreamError is a non-2xx answer from the form API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("subscribe: upstream status %d", e.Status)
	}
	return fmt.Sprintf("subscribe: upstream status %d: %s", e.Status, e.Message)
}

// Options configures a Client.
type Options struct {
	APIKey     string
	FormID     string
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
}

// Client posts subscriptions to one ConvertKit form.
type Client struct {
	http   *resty.Client
	apiKey string
	formID string
}

type subscribeRequest struct {
	APIKey string `json:"api_key"`
	Email  string `json:"email"`
}

type upstreamBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// New creates a client. A client with no API key or form id is valid but
// every Subscribe call returns ErrNotConfigured.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 200 * time.Millisecond
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Client{
		http:   hc,
		apiKey: opts.APIKey,
		formID: opts.FormID,
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.formID != ""
}

// Subscribe adds email to the form.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if !c.Configured() {
		return ErrNotConfigured
	}

	var failure upstreamBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("form", c.formID).
		SetBody(subscribeRequest{APIKey: c.apiKey, Email: email}).
		SetError(&failure).
		Post("/v3/forms/{form}/subscribe")
	if err != nil {
		slog.Warn("subscribe request failed", "error", err)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.IsError() {
		msg := failure.Message
		if msg == "" {
			msg = failure.Error
		}
		return &UpstreamError{Status: resp.StatusCode(), Message: msg}
	}

	slog.Info("newsletter subscription added")
	return nil
}
