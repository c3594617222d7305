package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"wodcal/internal/capture"
	appLog "wodcal/internal/log"
	"wodcal/internal/metrics"
)

// maxPageBytes caps how much of an agenda page is read into memory.
const maxPageBytes = 8 << 20

// PageSource retrieves the raw HTML of one agenda page.
type PageSource interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream responded %s", e.Status)
}

// HTTPSource fetches pages with a plain GET.
type HTTPSource struct {
	client    *http.Client
	userAgent string
}

// NewHTTPSource creates an HTTPSource whose requests are bounded by timeout.
func NewHTTPSource(timeout time.Duration, userAgent string) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewHTTPSourceWithClient wraps an existing client, e.g. httptest.Server.Client().
func NewHTTPSourceWithClient(client *http.Client, userAgent string) *HTTPSource {
	return &HTTPSource{client: client, userAgent: userAgent}
}

func (s *HTTPSource) FetchPage(ctx context.Context, url string) (body []byte, err error) {
	started := time.Now()
	defer func() { metrics.ObservePageFetch("http", time.Since(started), err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	appLog.Debug("agenda fetch start", "url", url)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxPageBytes {
		return nil, errors.New("agenda page exceeds size limit")
	}

	appLog.Debug("agenda fetch success", "url", url, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// BrowserSource renders pages in headless Chromium for sites that build
// the agenda table client-side.
type BrowserSource struct {
	opts capture.Options
}

func NewBrowserSource(timeout time.Duration, userAgent string) *BrowserSource {
	return &BrowserSource{opts: capture.Options{
		WaitSelector: "body",
		Timeout:      timeout,
		UserAgent:    userAgent,
	}}
}

func (s *BrowserSource) FetchPage(ctx context.Context, url string) (body []byte, err error) {
	started := time.Now()
	defer func() { metrics.ObservePageFetch("browser", time.Since(started), err) }()

	opts := s.opts
	opts.URL = url
	html, err := capture.RenderedHTML(ctx, opts)
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}
