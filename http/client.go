package http

import (
	"net"
	"net/http"
	"time"

	"github.com/arloliu/otxhook"
)

type clientConfig struct {
	timeout             time.Duration
	dialTimeout         time.Duration
	maxIdleConnsPerHost int
	idleConnTimeout     time.Duration
	baseTransport       http.RoundTripper
	table               *otxhook.Table
	operation           string
}

// ClientOption configures an HTTP client.
type ClientOption func(*clientConfig)

// WithTimeout sets the overall request timeout of the client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithDialTimeout sets the timeout for dialing TCP connections.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.dialTimeout = d
	}
}

// WithMaxIdleConnsPerHost sets the idle connections kept per host.
func WithMaxIdleConnsPerHost(n int) ClientOption {
	return func(c *clientConfig) {
		c.maxIdleConnsPerHost = n
	}
}

// WithIdleConnTimeout sets how long an idle connection stays open.
func WithIdleConnTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.idleConnTimeout = d
	}
}

// WithTransport sets the base transport. Connection settings only apply
// when it is an *http.Transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) {
		c.baseTransport = rt
	}
}

// WithHooks runs every request of the client as a call of operation in t.
func WithHooks(t *otxhook.Table, operation string) ClientOption {
	return func(c *clientConfig) {
		c.table = t
		c.operation = operation
	}
}

// NewClient returns an http.Client whose requests go through the hooks set
// with [WithHooks], if any:
//
//	client := otxhttp.NewClient(
//	    otxhttp.WithHooks(hooks, "PaymentsAPI::charge"),
//	    otxhttp.WithTimeout(10*time.Second),
//	)
func NewClient(opts ...ClientOption) *http.Client {
	cfg := &clientConfig{baseTransport: http.DefaultTransport}
	for _, opt := range opts {
		opt(cfg)
	}

	rt := buildTransport(cfg)
	if cfg.table != nil {
		rt = HookedTransport(cfg.table, cfg.operation, rt)
	}

	return &http.Client{Transport: rt, Timeout: cfg.timeout}
}

func buildTransport(c *clientConfig) http.RoundTripper {
	base, ok := c.baseTransport.(*http.Transport)
	if !ok {
		return c.baseTransport
	}

	t := base.Clone()
	if c.dialTimeout > 0 {
		t.DialContext = (&net.Dialer{Timeout: c.dialTimeout, KeepAlive: 30 * time.Second}).DialContext
	}
	if c.maxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = c.maxIdleConnsPerHost
	}
	if c.idleConnTimeout > 0 {
		t.IdleConnTimeout = c.idleConnTimeout
	}

	return t
}
