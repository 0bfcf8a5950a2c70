// Package collection is the HTTP client for the remote member collection
// endpoint.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/memberdash/internal/listquery"
	"github.com/odyssey-erp/memberdash/internal/shared"
)

// DefaultPath is the collection route on the API host.
const DefaultPath = "/api/users"

const maxErrorBody = 64 << 10

// Fetch outcomes reported to an Observer.
const (
	OutcomeOK      = "ok"
	OutcomeAuth    = "auth"
	OutcomeNetwork = "network"
	OutcomeServer  = "server"
)

// Observer receives one call per FetchPage.
type Observer interface {
	ObserveFetch(outcome string, elapsed time.Duration)
}

// Client issues authenticated page requests. It never retries, caches or
// rate-limits; each FetchPage performs at most one request.
type Client struct {
	baseURL    string
	path       string
	httpClient *http.Client
	observer   Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPath overrides the collection route.
func WithPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.path = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithTimeout sets the transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithObserver attaches fetch instrumentation.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient constructs a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    DefaultPath,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage requests one page of members matching query.
func (c *Client) FetchPage(ctx context.Context, token string, query listquery.Query) (Result, error) {
	start := time.Now()
	result, err := c.fetchPage(ctx, token, query)
	if c.observer != nil {
		c.observer.ObserveFetch(outcome(err), time.Since(start))
	}
	return result, err
}

func (c *Client) fetchPage(ctx context.Context, token string, query listquery.Query) (Result, error) {
	if token == "" {
		return Result{}, &AuthError{Status: http.StatusUnauthorized, Message: "missing bearer token"}
	}
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, c.path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, &NetworkError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, &NetworkError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Result{}, &AuthError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &ServerError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	}

	var payload pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, &ServerError{Status: resp.StatusCode, Err: fmt.Errorf("decode page: %w", err)}
	}
	return toResult(payload, query), nil
}

func toResult(payload pageResponse, query listquery.Query) Result {
	p := payload.Pagination
	if p.Page <= 0 {
		p.Page = query.Page
	}
	if p.Limit <= 0 {
		p.Limit = query.Limit
	}
	if p.TotalPages <= 0 {
		p.TotalPages = shared.TotalPages(p.Total, p.Limit)
	}
	rows := payload.Users
	if rows == nil {
		rows = []Record{}
	}
	return Result{Rows: rows, Counts: payload.Counts, Pagination: p}
}

func readMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload errorResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var (
		authErr *AuthError
		netErr  *NetworkError
	)
	switch {
	case errors.As(err, &authErr):
		return OutcomeAuth
	case errors.As(err, &netErr):
		return OutcomeNetwork
	default:
		return OutcomeServer
	}
}
