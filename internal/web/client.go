// Package web is the HTTP side of the installer driver: a cookie-keeping
// client that fetches pages and submits forms, plus goquery-backed page
// and form snapshots.
package web

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "pwinstall/1.0"
	maxBodyBytes     = 16 << 20
)

type Client struct {
	http      *http.Client
	log       *zap.Logger
	userAgent string
}

type Option func(*clientOptions)

type clientOptions struct {
	log       *zap.Logger
	timeout   time.Duration
	transport http.RoundTripper
	insecure  bool
	userAgent string
}

func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.log = l }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithTransport replaces the base transport. Decompression still wraps it.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithInsecureTLS skips certificate verification, for local sites served
// with self-signed certificates.
func WithInsecureTLS(skip bool) Option {
	return func(o *clientOptions) { o.insecure = skip }
}

func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

func New(opts ...Option) (*Client, error) {
	o := clientOptions{timeout: defaultTimeout, userAgent: defaultUserAgent}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	base := o.transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if o.insecure {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for local dev certificates
		}
		base = t
	}

	return &Client{
		http: &http.Client{
			Jar:       jar,
			Timeout:   o.timeout,
			Transport: newDecompressTransport(base),
		},
		log:       o.log,
		userAgent: o.userAgent,
	}, nil
}

// Get fetches and parses rawURL. Non-2xx responses are returned as pages;
// only transport and parse failures are errors.
func (c *Client) Get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Probe issues a GET and reports only the status code.
func (c *Client) Probe(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	c.decorate(req)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("probe failed", zap.String("url", rawURL), zap.Error(err))
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	c.log.Debug("probe",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))
	return resp.StatusCode, nil
}

// Submit sends the form with its current values and pressed button.
func (c *Client) Submit(ctx context.Context, f *Form) (*Page, error) {
	action := f.Action()
	values := f.Values()

	var req *http.Request
	var err error
	if f.Method() == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		var u *url.URL
		u, err = url.Parse(action)
		if err == nil {
			u.RawQuery = values.Encode()
			req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("build submission: %w", err)
	}
	if ref := f.page.URL; ref != nil {
		req.Header.Set("Referer", ref.String())
	}
	return c.do(req)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	}
}

func (c *Client) do(req *http.Request) (*Page, error) {
	c.decorate(req)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	c.log.Debug("http",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.URL, err)
	}

	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	page, err := NewPage(final, resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", final, err)
	}
	return page, nil
}
