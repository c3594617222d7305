package schedule

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"wodcal/internal/agenda"
	appLog "wodcal/internal/log"
	"wodcal/internal/metrics"
	"wodcal/internal/model"
)

// ErrFetchFailed matches every *FetchFailedError via errors.Is.
var ErrFetchFailed = errors.New("fetch failed")

// FetchFailedError reports the week whose page could not be fetched or
// read. One such failure fails the whole request.
type FetchFailedError struct {
	Week       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("fetch week %s: %v", e.Week, e.Err)
}

func (e *FetchFailedError) Unwrap() error { return e.Err }

func (e *FetchFailedError) Is(target error) bool { return target == ErrFetchFailed }

// Options configures a Fetcher.
type Options struct {
	BaseURL    string
	AgendaPath string
	// Concurrency bounds parallel week fetches; values below one mean one.
	Concurrency int
	// Location overrides any extracted location when non-empty.
	Location string
	// DefaultLocation is used when no week exposes a location.
	DefaultLocation string
}

// WeekResult is one week's contribution to a Result.
type WeekResult struct {
	Window   model.WeekWindow
	URL      string
	Events   []model.Event
	Location *string
	Skipped  int
}

// Result aggregates all requested weeks.
type Result struct {
	// Events is sorted by start; ties keep week then row order.
	Events   []model.Event
	Location *string
	Weeks    []WeekResult
}

// Fetcher retrieves and extracts agenda pages for a set of week windows.
// It is stateless between calls and safe for concurrent use.
type Fetcher struct {
	source    PageSource
	extractor *agenda.Extractor
	opts      Options
}

func NewFetcher(source PageSource, extractor *agenda.Extractor, opts Options) *Fetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Fetcher{source: source, extractor: extractor, opts: opts}
}

// WeekURL builds the agenda page address for the week starting at monday.
func (f *Fetcher) WeekURL(monday time.Time) string {
	q := url.Values{}
	q.Set("day", monday.Format(time.DateOnly))
	q.Set("view", "Agenda")
	return f.opts.BaseURL + f.opts.AgendaPath + "?" + q.Encode()
}

// Fetch retrieves every window. Any failing week fails the call and no
// partial data is returned.
func (f *Fetcher) Fetch(ctx context.Context, windows []model.WeekWindow) (Result, error) {
	weeks := make([]WeekResult, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			wr, err := f.fetchWeek(gctx, w)
			if err != nil {
				return err
			}
			weeks[i] = wr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	loc := f.resolveLocation(weeks)

	var events []model.Event
	for _, wr := range weeks {
		events = append(events, wr.Events...)
	}
	for i := range events {
		events[i].Location = loc
	}
	slices.SortStableFunc(events, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})
	if events == nil {
		events = []model.Event{}
	}

	appLog.Info("agenda fetched", "weeks", len(windows), "events", len(events))
	return Result{Events: events, Location: loc, Weeks: weeks}, nil
}

func (f *Fetcher) fetchWeek(ctx context.Context, w model.WeekWindow) (WeekResult, error) {
	u := f.WeekURL(w.Monday)
	fail := func(err error) (WeekResult, error) {
		ffe := &FetchFailedError{Week: w.String(), URL: u, Err: err}
		var se *StatusError
		if errors.As(err, &se) {
			ffe.StatusCode = se.Code
		}
		appLog.Error("agenda week failed", err, "week", w.String(), "url", u)
		return WeekResult{}, ffe
	}

	body, err := f.source.FetchPage(ctx, u)
	if err != nil {
		return fail(err)
	}

	ex, err := f.extractor.Extract(body, w.Monday)
	if err != nil {
		return fail(err)
	}
	metrics.RecordExtraction(len(ex.Events), ex.Skipped)

	events := make([]model.Event, 0, len(ex.Events))
	for _, p := range ex.Events {
		events = append(events, p.Resolve(w.Monday, u))
	}
	if len(events) == 0 {
		appLog.Info("agenda week has no classes", "week", w.String())
	}

	return WeekResult{
		Window:   w,
		URL:      u,
		Events:   events,
		Location: ex.Location,
		Skipped:  ex.Skipped,
	}, nil
}

// resolveLocation applies override, then the first week exposing a
// location, then the configured default.
func (f *Fetcher) resolveLocation(weeks []WeekResult) *string {
	if f.opts.Location != "" {
		s := f.opts.Location
		return &s
	}
	for _, wr := range weeks {
		if wr.Location != nil && *wr.Location != "" {
			s := *wr.Location
			return &s
		}
	}
	if f.opts.DefaultLocation != "" {
		s := f.opts.DefaultLocation
		return &s
	}
	return nil
}
