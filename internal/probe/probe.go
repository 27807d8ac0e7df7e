package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"statuspage-sync/internal/metrics"
)

// Options configures a Prober. BaseURL is the gateway API root the component
// name is appended to.
type Options struct {
	BaseURL            string
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool
	HTTPClient         *http.Client
}

// Result is the outcome of one probe. Err is set when no HTTP response was
// received; Code is meaningful only when Err is nil.
type Result struct {
	Code int
	Err  error
}

// Prober checks a service at {base}/{component}/v1/ with basic auth. Only the
// response status code is used.
type Prober struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// New builds a Prober; BaseURL is required.
func New(opts Options) (*Prober, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("probe base url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // internal gateways with private CAs
		}
		client = &http.Client{Timeout: timeout, Transport: transport}
	}
	return &Prober{baseURL: base, username: opts.Username, password: opts.Password, client: client}, nil
}

// URL is the health endpoint probed for component.
func (p *Prober) URL(component string) string {
	return p.baseURL + "/" + url.PathEscape(component) + "/v1/"
}

func (p *Prober) Probe(ctx context.Context, component string) (res Result) {
	defer func() { metrics.ObserveProbe(res.Code, res.Err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(component), nil)
	if err != nil {
		return Result{Err: fmt.Errorf("build probe request: %w", err)}
	}
	if p.username != "" || p.password != "" {
		req.SetBasicAuth(p.username, p.password)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return Result{Code: resp.StatusCode}
}
