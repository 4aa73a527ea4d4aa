// Package backend provides an HTTP client for the managed backend's REST and auth APIs.
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

	"go.uber.org/zap"
)

// Client issues authenticated requests against one backend project.
// The same key is sent as the apikey header and as the bearer token.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The default has no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for baseURL authenticated with key.
func New(baseURL, key string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request describes one backend call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string // overrides the key in the Authorization header
	prefer string
}

// do executes req and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	bearer := req.bearer
	if bearer == "" {
		bearer = c.key
	}
	httpReq.Header.Set("apikey", c.key)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.prefer != "" {
		httpReq.Header.Set("Prefer", req.prefer)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("backend request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("backend request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(resp.StatusCode, resp.Status, resp.Header.Get("Content-Type"), data)
	}
	return data, nil
}

// rows decodes a REST response as an array of rows. Anything that is not a
// JSON array yields an empty slice.
func rows(data []byte) []json.RawMessage {
	var out []json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return []json.RawMessage{}
	}
	return out
}

func restPath(resource string) string {
	return "/rest/v1/" + strings.TrimLeft(resource, "/")
}

// FetchAll reads rows of resource matching query. Filters, ordering and the
// row cap are passed through untouched; there is no pagination.
func (c *Client) FetchAll(ctx context.Context, resource string, query url.Values) ([]json.RawMessage, error) {
	data, err := c.do(ctx, request{method: http.MethodGet, path: restPath(resource), query: query})
	if err != nil {
		return nil, err
	}
	return rows(data), nil
}

// Fetch reads rows of resource and decodes them into T.
func Fetch[T any](ctx context.Context, c *Client, resource string, query url.Values) ([]T, error) {
	raw, err := c.FetchAll(ctx, resource, query)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](raw, resource)
}

func decodeRows[T any](raw []json.RawMessage, resource string) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s row %d: %w", resource, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Insert adds rows to table and returns the stored representation.
func (c *Client) Insert(ctx context.Context, table string, rowsOrRow any) ([]json.RawMessage, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   restPath(table),
		body:   rowsOrRow,
		prefer: "return=representation",
	})
	if err != nil {
		return nil, err
	}
	return rows(data), nil
}

// Upsert inserts rows or merges them into existing rows sharing onConflict
// (the primary key when empty).
func (c *Client) Upsert(ctx context.Context, table string, rowsOrRow any, onConflict string) ([]json.RawMessage, error) {
	var query url.Values
	if onConflict != "" {
		query = url.Values{"on_conflict": {onConflict}}
	}
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   restPath(table),
		query:  query,
		body:   rowsOrRow,
		prefer: "resolution=merge-duplicates,return=representation",
	})
	if err != nil {
		return nil, err
	}
	return rows(data), nil
}

// Patch updates the rows of table selected by filter and returns them.
// An empty result means no row matched.
func (c *Client) Patch(ctx context.Context, table string, filter url.Values, patch any) ([]json.RawMessage, error) {
	if len(filter) == 0 {
		return nil, fmt.Errorf("patch on %s requires a filter", table)
	}
	data, err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   restPath(table),
		query:  filter,
		body:   patch,
		prefer: "return=representation",
	})
	if err != nil {
		return nil, err
	}
	return rows(data), nil
}

// Eq formats a PostgREST equality filter value.
func Eq(v string) string { return "eq." + v }

// In formats a PostgREST membership filter value.
func In(values ...string) string { return "in.(" + strings.Join(values, ",") + ")" }

// IsNull is the PostgREST filter value for a null column.
const IsNull = "is.null"
