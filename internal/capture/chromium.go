package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const DefaultTimeoutSec = 30

// Options defines one headless Chromium page render.
type Options struct {
	// URL to load, e.g. an agenda page that fills its table via JavaScript.
	URL string

	// WaitSelector must be ready before the DOM is serialized. Defaults to
	// "body".
	WaitSelector string

	// Timeout bounds the entire render. If zero, DefaultTimeoutSec is used.
	Timeout time.Duration

	// UserAgent overrides Chromium's default user agent when non-empty.
	UserAgent string

	// Settle is an extra pause after WaitSelector for late scripts.
	Settle time.Duration
}

// RenderedHTML launches a headless Chromium instance via chromedp,
// navigates to opts.URL, waits for opts.WaitSelector and returns the
// serialized document.
func RenderedHTML(parentCtx context.Context, opts Options) (string, error) {
	if opts.URL == "" {
		return "", fmt.Errorf("capture: URL is required")
	}
	if opts.WaitSelector == "" {
		opts.WaitSelector = "body"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts[:len(allocOpts):len(allocOpts)], chromedp.UserAgent(opts.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Apply timeout to the entire sequence, browser start included.
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var doc string
	tasks := chromedp.Tasks{
		chromedp.Navigate(opts.URL),
		chromedp.WaitReady(opts.WaitSelector, chromedp.ByQuery),
	}
	if opts.Settle > 0 {
		tasks = append(tasks, chromedp.Sleep(opts.Settle))
	}
	tasks = append(tasks, chromedp.OuterHTML("html", &doc, chromedp.ByQuery))

	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return doc, nil
}
