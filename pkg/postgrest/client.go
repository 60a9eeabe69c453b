// Package postgrest provides a minimal client for a PostgREST (Supabase-style)
// REST endpoint: paged selects, filtered patches and bulk inserts.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the PostgREST operations used by the record store.
type Client interface {
	// Select returns every row matching query, following Range pagination
	// until the server returns an empty page.
	Select(ctx context.Context, table string, query url.Values) ([]json.RawMessage, error)
	// Patch applies body to the rows matching filter and returns how many
	// rows it changed.
	Patch(ctx context.Context, table string, filter url.Values, body any) (int, error)
	// Insert bulk-inserts rows. Existing keys are skipped when ignoreDuplicates is set.
	Insert(ctx context.Context, table string, rows any, ignoreDuplicates bool) error
}

// APIError is a non-2xx response. PostgREST error bodies are decoded when present.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest: status %d: %s", e.StatusCode, e.Message)
}

// Option configures the PostgREST client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithPageSize sets the number of rows requested per Range page.
func WithPageSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

type httpClient struct {
	baseURL  string
	apiKey   string
	pageSize int
	limiter  *rate.Limiter
	http     *http.Client
}

// NewClient creates a client for the REST root at baseURL (for example
// https://xyz.supabase.co/rest/v1).
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: 1000,
		limiter:  rate.NewLimiter(10, 1),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) newRequest(ctx context.Context, method, table string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + "/" + url.PathEscape(table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, eris.Wrap(err, "postgrest: create request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req after waiting on the rate limiter and returns the body of a
// 2xx response.
func (c *httpClient) do(req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, eris.Wrap(err, "postgrest: rate limit wait")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "postgrest: %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "postgrest: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}
	return body, nil
}

func (c *httpClient) Select(ctx context.Context, table string, query url.Values) ([]json.RawMessage, error) {
	var all []json.RawMessage
	offset := 0
	for {
		req, err := c.newRequest(ctx, http.MethodGet, table, query, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", offset, offset+c.pageSize-1))

		body, err := c.do(req)
		if err != nil {
			var apiErr *APIError
			// 416 means the offset ran past the last row.
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusRequestedRangeNotSatisfiable {
				return all, nil
			}
			return nil, eris.Wrapf(err, "postgrest: select %s", table)
		}

		var page []json.RawMessage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, eris.Wrapf(err, "postgrest: decode %s page", table)
		}
		// A short page is not the end: the server's max-rows may be
		// smaller than pageSize.
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		offset += len(page)
	}
}

// Patch asks for the changed rows back (ids only) so callers can tell a
// filtered-out row from a written one.
func (c *httpClient) Patch(ctx context.Context, table string, filter url.Values, body any) (int, error) {
	if len(filter) == 0 {
		return 0, eris.Errorf("postgrest: refusing unfiltered patch of %s", table)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, eris.Wrap(err, "postgrest: marshal patch")
	}
	query := url.Values{}
	for k, v := range filter {
		query[k] = v
	}
	query.Set("select", "id")
	req, err := c.newRequest(ctx, http.MethodPatch, table, query, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.do(req)
	if err != nil {
		return 0, eris.Wrapf(err, "postgrest: patch %s", table)
	}
	var rows []json.RawMessage
	if len(bytes.TrimSpace(resp)) > 0 {
		if err := json.Unmarshal(resp, &rows); err != nil {
			return 0, eris.Wrapf(err, "postgrest: decode %s patch result", table)
		}
	}
	return len(rows), nil
}

func (c *httpClient) Insert(ctx context.Context, table string, rows any, ignoreDuplicates bool) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "postgrest: marshal rows")
	}
	req, err := c.newRequest(ctx, http.MethodPost, table, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	prefer := "return=minimal"
	if ignoreDuplicates {
		prefer += ",resolution=ignore-duplicates"
	}
	req.Header.Set("Prefer", prefer)

	if _, err := c.do(req); err != nil {
		return eris.Wrapf(err, "postgrest: insert %s", table)
	}
	return nil
}
