package cachet

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"statuspage-sync/internal/metrics"
	"statuspage-sync/internal/status"
)

const (
	// DefaultPageSize is large enough for the whole component list in one page.
	DefaultPageSize = 1000
	tokenHeader     = "X-Cachet-Token"
)

// Options configures a Client. BaseURL is the API root, e.g.
// https://status.example.com/api/v1.
type Options struct {
	BaseURL            string
	Token              string
	Timeout            time.Duration
	RateLimit          float64
	InsecureSkipVerify bool
	HTTPClient         *http.Client
}

// Client talks to the Cachet v1 API. Writes are never retried here: a retried
// status write can land after a newer one and reorder updates.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a Client with its own transport. A RateLimit of zero
// leaves calls unthrottled.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("cachet base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid cachet base url: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed status page deployments
		}
		client = &http.Client{Timeout: timeout, Transport: transport}
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return &Client{baseURL: base, token: opts.Token, http: client, limiter: limiter}, nil
}

// ListGroups returns every component group with its enabled components.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var out envelope[[]Group]
	path := "/components/groups"
	if err := c.do(ctx, "list_groups", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, missingData(http.MethodGet, path)
	}
	return *out.Data, nil
}

// ListComponents fetches one page of pageSize components, DefaultPageSize
// when pageSize is not positive.
func (c *Client) ListComponents(ctx context.Context, pageSize int) ([]Component, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	var out envelope[[]Component]
	path := "/components?per_page=" + strconv.Itoa(pageSize)
	if err := c.do(ctx, "list_components", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, missingData(http.MethodGet, path)
	}
	return *out.Data, nil
}

// GetComponent reads one component back. A response without a component is
// ErrStoreDecode.
func (c *Client) GetComponent(ctx context.Context, id int) (Component, error) {
	var out envelope[Component]
	path := "/components/" + strconv.Itoa(id)
	if err := c.do(ctx, "get_component", http.MethodGet, path, nil, &out); err != nil {
		return Component{}, err
	}
	if out.Data == nil || out.Data.ID == 0 {
		return Component{}, missingData(http.MethodGet, path)
	}
	return *out.Data, nil
}

func missingData(method, path string) error {
	return fmt.Errorf("%w: %s %s: response has no data", ErrStoreDecode, method, path)
}

func (c *Client) SetStatus(ctx context.Context, id int, s status.Status) error {
	return c.do(ctx, "set_status", http.MethodPut, "/components/"+strconv.Itoa(id), statusUpdate{Status: s}, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, body any, out any) (err error) {
	started := time.Now()
	defer func() { metrics.ObserveStoreCall(operation, started, err) }()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, method, path, err)
		}
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrStoreUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("%w: %s %s returned %d", ErrStoreUnavailable, method, path, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, method, path, err)
		}
		return fmt.Errorf("%w: %s %s: %v", ErrStoreDecode, method, path, err)
	}
	return nil
}
