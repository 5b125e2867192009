package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	aurl "github.com/viant/afs/url"
	"github.com/viant/khub/credential"
	"go.uber.org/zap"
)

// Client represents a chat backend client
type Client struct {
	baseURL string
	// http carries the authenticated pipeline
	http *http.Client
	// raw bypasses the pipeline
	raw    *http.Client
	store  credential.Store
	logger *zap.Logger
}

type Option func(c *Client)

// WithHTTPClient sets the authenticated client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithRawHTTPClient sets the client used by unauthenticated and streaming calls
func WithRawHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.raw = client
	}
}

// WithStore sets credential store
func WithStore(store credential.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithLogger sets logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for baseURL
func New(baseURL string, options ...Option) *Client {
	ret := &Client{baseURL: strings.TrimRight(baseURL, "/"), logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.raw == nil {
		ret.raw = http.DefaultClient
	}
	if ret.http == nil {
		ret.http = ret.raw
	}
	if ret.store == nil {
		ret.store = credential.NewMemoryStore()
	}
	return ret
}

// Store returns credential store
func (c *Client) Store() credential.Store {
	return c.store
}

// BaseURL returns backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) url(path string, query url.Values) string {
	return endpoint(c.baseURL, path, query)
}

func endpoint(baseURL, path string, query url.Values) string {
	ret := aurl.Join(baseURL, strings.TrimLeft(path, "/"))
	if len(query) > 0 {
		ret += "?" + query.Encode()
	}
	return ret
}

// call sends a JSON request and decodes the unwrapped envelope data into out.
func call(ctx context.Context, client *http.Client, method, URL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, URL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(unwrap(data), out); err != nil {
		return fmt.Errorf("failed to decode %v %v response: %w", method, req.URL.Path, err)
	}
	return nil
}
