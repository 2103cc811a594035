package upstream

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

	"github.com/noah-isme/academic-dashboard-api/pkg/config"
	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
	"github.com/noah-isme/academic-dashboard-api/pkg/middleware/requestid"
)

// DefaultTimeout bounds a single request when the config leaves it unset.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// Record is a JSON object as returned by the academic API.
type Record = map[string]interface{}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the remote academic REST API.
type Client struct {
	baseURL string
	token   string
	paths   map[string]string
	http    Doer
	logger  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a client for the configured academic API.
func New(cfg config.UpstreamConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		paths:   cfg.Paths,
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx. It takes precedence over
// the service token from config.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token attached by WithToken.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// FetchCollection lists every record of a collection.
func (c *Client) FetchCollection(ctx context.Context, collection string) (*Payload, error) {
	resp, err := c.do(ctx, http.MethodGet, c.collectionURL(collection, ""), nil)
	if err != nil {
		return nil, err
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}
	payload, err := DecodeCollection(body, collection)
	if err != nil {
		c.logger.Warn("unexpected collection payload",
			zap.String("collection", collection),
			zap.Int("bytes", len(body)),
		)
		return nil, err
	}
	return payload, nil
}

// Create posts a new record.
func (c *Client) Create(ctx context.Context, collection string, payload Record) (*Result, error) {
	return c.mutate(ctx, http.MethodPost, collection, "", payload)
}

// Update replaces the record with id.
func (c *Client) Update(ctx context.Context, collection, id string, payload Record) (*Result, error) {
	return c.mutate(ctx, http.MethodPut, collection, id, payload)
}

// Delete removes the record with id.
func (c *Client) Delete(ctx context.Context, collection, id string) (*Result, error) {
	return c.mutate(ctx, http.MethodDelete, collection, id, nil)
}

// mutate returns an error only when the request could not be completed. A
// completed request the API refused is reported as a Result of kind err.
func (c *Client) mutate(ctx context.Context, method, collection, id string, payload Record) (*Result, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "payload is not serialisable")
		}
		body = bytes.NewReader(encoded)
	}
	resp, err := c.do(ctx, method, c.collectionURL(collection, id), body)
	if err != nil {
		return nil, err
	}
	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound && id == "":
		// no such collection endpoint
		return nil, statusError(resp.StatusCode, raw)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, statusError(resp.StatusCode, raw)
	}
	return DecodeResult(resp.StatusCode, raw, id), nil
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, appErrors.CloneWrap(appErrors.ErrInternal, err, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, ok := TokenFrom(ctx)
	if !ok {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed", zap.String("method", method), zap.String("url", target), zap.Error(err))
		return nil, appErrors.CloneWrap(appErrors.ErrUpstreamUnavailable, err, "")
	}
	return resp, nil
}

func (c *Client) collectionURL(collection, id string) string {
	path := "/" + collection
	if override, ok := c.paths[collection]; ok && strings.TrimSpace(override) != "" {
		path = "/" + strings.Trim(override, "/")
	}
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return c.baseURL + path
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, appErrors.CloneWrap(appErrors.ErrUpstreamUnavailable, err, "read upstream response")
	}
	return body, nil
}

// statusError maps a non-2xx status onto the typed upstream errors.
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	cause := fmt.Errorf("status %d: %s", status, snippet(body))
	if status == http.StatusNotFound || status == http.StatusNotImplemented {
		return appErrors.CloneWrap(appErrors.ErrNotImplemented, cause, "")
	}
	return appErrors.CloneWrap(appErrors.ErrUpstreamUnavailable, cause, "")
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
