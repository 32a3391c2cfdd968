// Package client talks to the expense record API over HTTP.
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
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
	"expenses/internal/ports"
)

const maxResponseBytes = 4 << 20

// APIError is a non-2xx answer from the API. Issues is set when the
// server rejected the input field by field.
type APIError struct {
	StatusCode int
	Message    string
	Issues     []core.ValidationIssue
}

func (e *APIError) Error() string {
	if len(e.Issues) > 0 {
		return fmt.Sprintf("expenses api: http %d: %s", e.StatusCode, (&core.ValidationError{Issues: e.Issues}).Error())
	}
	return fmt.Sprintf("expenses api: http %d: %s", e.StatusCode, e.Message)
}

// Is makes a 404 match ports.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ports.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Validation returns the issues as a *core.ValidationError, or nil.
func (e *APIError) Validation() *core.ValidationError {
	if len(e.Issues) == 0 {
		return nil
	}
	return &core.ValidationError{Issues: e.Issues}
}

// Client implements ports.RecordStore against a remote server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

var _ ports.RecordStore = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be an absolute http(s) url", baseURL)
	}
	c := &Client{baseURL: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) List(ctx context.Context) ([]core.ExpenseRecord, error) {
	var recs []core.ExpenseRecord
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []core.ExpenseRecord{}
	}
	return recs, nil
}

func (c *Client) Create(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	payload, err := json.Marshal(createBody{Description: e.Description, Amount: e.Amount, Category: e.Category})
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("encode request: %w", err)
	}
	var rec core.ExpenseRecord
	err = c.do(ctx, http.MethodPost, "/expenses", payload, &rec)
	return rec, err
}

func (c *Client) Delete(ctx context.Context, id int64) (core.ExpenseRecord, error) {
	var rec core.ExpenseRecord
	err := c.do(ctx, http.MethodDelete, "/expenses/"+strconv.FormatInt(id, 10), nil, &rec)
	return rec, err
}

type createBody struct {
	Description string        `json:"description"`
	Amount      core.Amount   `json:"amount"`
	Category    core.Category `json:"category"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, env, decodeErr, raw)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(env.Data) == 0 {
		return errors.New("decode response: missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// apiError reads the error member, which is either a message or a list of
// validation issues.
func apiError(status int, env envelope, decodeErr error, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if decodeErr != nil || len(env.Error) == 0 {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	var msg string
	if err := json.Unmarshal(env.Error, &msg); err == nil {
		apiErr.Message = msg
		return apiErr
	}
	var issues []core.ValidationIssue
	if err := json.Unmarshal(env.Error, &issues); err == nil {
		apiErr.Issues = issues
		apiErr.Message = http.StatusText(status)
		return apiErr
	}
	apiErr.Message = string(env.Error)
	return apiErr
}
