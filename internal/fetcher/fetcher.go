// Package fetcher retrieves raw HTML over HTTP with browser-like headers, a
// bounded timeout and a one-shot proxy relay fallback.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// maxBodySize caps how much HTML is read from one response.
const maxBodySize = 5 << 20

// TransportError means the fetch failed before any HTML was obtained, on both
// the direct transport and the proxy relay.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Fetcher struct {
	client    *http.Client
	userAgent string
	proxyURL  string
	logger    *slog.Logger
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// ProxyURL is a relay prefix; the target URL is appended query-escaped.
	// Empty disables the secondary transport.
	ProxyURL string
}

func New(opts Options, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		userAgent: opts.UserAgent,
		proxyURL:  opts.ProxyURL,
		logger:    logger.With("component", "fetcher"),
	}
}

// Client exposes the underlying HTTP client for transport-level test hooks.
func (f *Fetcher) Client() *http.Client { return f.client }

// Fetch retrieves the HTML at rawURL. The direct transport is tried first; on
// any failure (timeout, network error, non-2xx) a single retry goes through
// the proxy relay. Proxy failure is terminal for the attempt; retry and
// backoff beyond these two transports belong to the caller.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	html, directErr := f.get(ctx, rawURL)
	if directErr == nil {
		return html, nil
	}

	if f.proxyURL == "" {
		return "", &TransportError{URL: rawURL, Err: directErr}
	}

	f.logger.Warn("direct fetch failed, retrying via proxy",
		"url", rawURL, "error", directErr)

	html, proxyErr := f.get(ctx, f.proxyURL+url.QueryEscape(rawURL))
	if proxyErr != nil {
		return "", &TransportError{URL: rawURL,
			Err: fmt.Errorf("direct: %v; proxy: %w", directErr, proxyErr)}
	}
	return html, nil
}

func (f *Fetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
