package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnexpectedStatus is returned when the tile server answers with a status
// outside of 2xx. Use errors.As with *StatusError to get the code.
var ErrUnexpectedStatus = errors.New("http: unexpected status code")

// StatusError carries the status of a non-success response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnexpectedStatus, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Proxy types accepted in ProxyOptions.Type.
const (
	ProxyNone   = "none"
	ProxySystem = "system"
	ProxyManual = "manual"
)

// ProxyOptions selects how requests reach the tile server.
type ProxyOptions struct {
	// Type is one of ProxyNone, ProxySystem (environment variables) or
	// ProxyManual (Address and Port).
	Type    string
	Address string
	Port    int
}

// Options configures the HTTP client.
type Options struct {
	// Timeout bounds a single request including reading the body.
	// Zero disables the timeout.
	// Default: 60s
	Timeout time.Duration

	// UserAgent is sent with every request.
	// Default: "osm-tile-downloader"
	UserAgent string

	// MaxIdleConnsPerHost sets the idle connection pool per host.
	// Default: 32
	MaxIdleConnsPerHost int

	// Policy decides whether a URL may be requested. It runs before any
	// network activity and again for every redirect.
	// Default: CheckPrefix
	Policy Policy

	// Proxy configures an outbound proxy.
	Proxy ProxyOptions

	// Transport overrides the round tripper, mainly for tests. Proxy and
	// MaxIdleConnsPerHost are ignored when set.
	Transport http.RoundTripper
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:             60 * time.Second,
		UserAgent:           "osm-tile-downloader",
		MaxIdleConnsPerHost: 32,
		Policy:              CheckPrefix,
		Proxy:               ProxyOptions{Type: ProxySystem},
	}
}

// Client is a shared, reusable handle for fetching tiles from a private tile
// server.
//
// Client provides:
//   - Trust boundary enforcement before every request and redirect
//   - Connection pooling through a single transport
//   - Timeout handling
//   - Status validation
//
// A Client is safe for concurrent use.
//
// Example usage:
//
//	client, err := NewClient(DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	data, err := client.Get(ctx, "http://localhost:8080/18/135470/87999.png")
type Client struct {
	httpClient *http.Client
	userAgent  string
	policy     Policy
}

// NewClient creates a new HTTP client from opts.
//
// Returns an error if the proxy configuration is invalid.
func NewClient(opts Options) (*Client, error) {
	if opts.Policy == nil {
		opts.Policy = CheckPrefix
	}

	transport := opts.Transport
	if transport == nil {
		proxy, err := proxyFunc(opts.Proxy)
		if err != nil {
			return nil, err
		}

		maxIdle := opts.MaxIdleConnsPerHost
		if maxIdle <= 0 {
			maxIdle = DefaultOptions().MaxIdleConnsPerHost
		}

		transport = &http.Transport{
			Proxy: proxy,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConnsPerHost: maxIdle,
			MaxIdleConns:        maxIdle * 2,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	policy := opts.Policy
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("stopped after 10 redirects")
				}
				return policy(req.URL.String())
			},
		},
		userAgent: opts.UserAgent,
		policy:    policy,
	}, nil
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The URL is rejected by the client's Policy (no request is made)
//   - The request fails
//   - The response status is not 2xx
//   - Reading the body fails
//
// Example:
//
//	data, err := client.Get(ctx, "http://127.0.0.1:8080/1/1/0.png")
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.policy(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func proxyFunc(opts ProxyOptions) (func(*http.Request) (*url.URL, error), error) {
	switch opts.Type {
	case "", ProxySystem:
		return http.ProxyFromEnvironment, nil
	case ProxyNone:
		return nil, nil
	case ProxyManual:
		if opts.Address == "" || opts.Port <= 0 || opts.Port > 65535 {
			return nil, fmt.Errorf("invalid manual proxy %q:%d", opts.Address, opts.Port)
		}
		proxyURL, err := url.Parse("http://" + net.JoinHostPort(opts.Address, strconv.Itoa(opts.Port)))
		if err != nil {
			return nil, fmt.Errorf("invalid manual proxy: %w", err)
		}
		return http.ProxyURL(proxyURL), nil
	default:
		return nil, fmt.Errorf("unknown proxy type %q", opts.Type)
	}
}
