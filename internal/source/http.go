package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// HTTPProvider streams objects with plain GET requests against BaseURL. It
// fits static file servers, presigned gateways and public buckets. The
// response body is handed to the caller unread.
type HTTPProvider struct {
	// BaseURL is joined with the escaped key: BaseURL + "/" + key.
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	// Header is added to every request, e.g. an Authorization value.
	Header http.Header
	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits open streams per provider. Zero means unlimited.
	// A slot is held until the returned body is closed.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
	clientOnce  sync.Once
	httpc       *http.Client
}

// NewHTTPClient returns a client tuned for many parallel long downloads.
// There is no overall timeout because bodies of large objects are read for a
// long time; callers bound work with a context instead.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// Open issues a GET for key and returns the body.
func (p *HTTPProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	u, err := p.objectURL(key)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return nil, fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	for k, vs := range p.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := p.client().Do(req)
	if err != nil {
		p.release()
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		drain(resp.Body)
		p.release()
		return nil, notFound(key, nil)
	case resp.StatusCode >= 500:
		drain(resp.Body)
		p.release()
		return nil, fmt.Errorf("server error: %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		drain(resp.Body)
		p.release()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return &slotBody{ReadCloser: resp.Body, release: p.release}, nil
}

func (p *HTTPProvider) objectURL(key string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if base == "" {
		return "", errors.New("http source: base URL is required")
	}
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return base + "/" + strings.Join(parts, "/"), nil
}

func (p *HTTPProvider) client() *http.Client {
	p.clientOnce.Do(func() {
		base := p.HTTPClient
		if base == nil {
			base = NewHTTPClient()
		}
		// Clone to attach our redirect policy without mutating caller's client
		c := *base
		c.CheckRedirect = p.checkRedirectFunc()
		p.httpc = &c
	})
	return p.httpc
}

func (p *HTTPProvider) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := p.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func (p *HTTPProvider) acquire(ctx context.Context) error {
	if p.MaxConcurrent <= 0 {
		return nil
	}
	p.limiterOnce.Do(func() { p.limiter = make(chan struct{}, p.MaxConcurrent) })
	select {
	case p.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *HTTPProvider) release() {
	if p.MaxConcurrent <= 0 || p.limiter == nil {
		return
	}
	select {
	case <-p.limiter:
	default:
	}
}

// slotBody releases the concurrency slot exactly once on Close.
type slotBody struct {
	io.ReadCloser
	release func()
	once    sync.Once
}

func (b *slotBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

func drain(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64*1024))
	_ = rc.Close()
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
