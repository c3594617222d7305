package ics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"wodcal/internal/model"
)

const (
	DefaultProductID = "-//wodcal//CrossFit Timetable//EN"

	// fallbackRuleYear picks the tz rules for an empty calendar.
	fallbackRuleYear = 2025

	structuredLocationProperty = ical.ComponentProperty("X-APPLE-STRUCTURED-LOCATION")
)

// Geo pins events to a single facility on the map.
type Geo struct {
	Latitude  float64
	Longitude float64
	Title     string
	Address   string
	// Radius is the proximity radius in meters.
	Radius float64
}

// Options configures an Encoder. Location is required.
type Options struct {
	Location     *time.Location
	EventPrefix  string
	CalendarName string
	ProductID    string
	// LocationOverride replaces every event's own location when non-empty.
	LocationOverride string
	Geo              *Geo
}

// Encoder renders events as an iCalendar document. Output depends only on
// the input events and the options.
type Encoder struct {
	opts Options
}

func NewEncoder(opts Options) (*Encoder, error) {
	if opts.Location == nil {
		return nil, errors.New("ics: encoder needs a timezone")
	}
	if opts.EventPrefix == "" {
		opts.EventPrefix = "CrossFit"
	}
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.CalendarName == "" {
		opts.CalendarName = opts.EventPrefix + " Timetable"
	}
	return &Encoder{opts: opts}, nil
}

// Encode emits one VEVENT per input event, in input order.
func (e *Encoder) Encode(events []model.Event) ([]byte, error) {
	loc := e.opts.Location

	cal := ical.NewCalendarFor("wodcal")
	cal.SetProductId(e.opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(e.opts.CalendarName)
	cal.SetXWRTimezone(loc.String())

	year := fallbackRuleYear
	if len(events) > 0 {
		year = e.local(events[0].Start).Year()
	}
	if err := addTimezone(cal, loc, year); err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(events))
	for _, ev := range events {
		start := e.local(ev.Start)
		dur := ev.DurationMin
		if dur <= 0 {
			dur = model.DefaultDurationMin
		}
		end := start.Add(time.Duration(dur) * time.Minute)

		uid := e.uid(start, ev)
		seen[uid]++
		if n := seen[uid]; n > 1 {
			uid += "-" + strconv.Itoa(n)
		}

		ve := cal.AddEvent(uid)
		ve.SetSummary(e.opts.EventPrefix + ": " + ev.Title)
		ve.SetProperty(ical.ComponentPropertyDtStart, start.Format(localStampLayout), ical.WithTZID(loc.String()))
		ve.SetProperty(ical.ComponentPropertyDtEnd, end.Format(localStampLayout), ical.WithTZID(loc.String()))
		if where := e.location(ev); where != "" {
			ve.SetLocation(where)
		}
		ve.SetDescription(e.description(ev))
		if g := e.opts.Geo; g != nil {
			ve.SetProperty(structuredLocationProperty,
				"geo:"+formatFloat(g.Latitude)+","+formatFloat(g.Longitude),
				ical.WithValue(string(ical.ValueDataTypeUri)),
				&ical.KeyValues{Key: "X-ADDRESS", Value: []string{g.Address}},
				&ical.KeyValues{Key: "X-APPLE-RADIUS", Value: []string{formatFloat(g.Radius)}},
				&ical.KeyValues{Key: "X-TITLE", Value: []string{g.Title}},
			)
		}
	}

	raw := cal.Serialize(ical.WithNewLineWindows, ical.WithLineLength(unfoldedLineLength))
	return e.render(raw), nil
}

// render rewrites the structured location lines and folds every line.
// golang-ical backslash-escapes parameter values, which readers split on
// the escaped commas.
func (e *Encoder) render(raw string) []byte {
	var structured string
	if e.opts.Geo != nil {
		structured = structuredLocationLine(e.opts.Geo)
	}

	var b strings.Builder
	b.Grow(len(raw) + len(raw)/maxLineOctets*len(crlf+" "))
	for _, line := range strings.Split(strings.TrimSuffix(raw, crlf), crlf) {
		if structured != "" && strings.HasPrefix(line, string(structuredLocationProperty)+";") {
			line = structured
		}
		b.WriteString(fold(line))
		b.WriteString(crlf)
	}
	return []byte(b.String())
}

// local re-reads t's wall clock in the facility zone.
func (e *Encoder) local(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, e.opts.Location)
}

func (e *Encoder) uid(start time.Time, ev model.Event) string {
	parts := []string{start.Format(localStampLayout), dashed(ev.Title)}
	if ev.Instructor != nil && *ev.Instructor != "" {
		parts = append(parts, dashed(*ev.Instructor))
	}
	parts = append(parts, dashed(strings.ToLower(e.opts.EventPrefix))+"-timetable")
	return strings.Join(parts, "-")
}

func (e *Encoder) location(ev model.Event) string {
	if e.opts.LocationOverride != "" {
		return e.opts.LocationOverride
	}
	if ev.Location != nil {
		return *ev.Location
	}
	return ""
}

func (e *Encoder) description(ev model.Event) string {
	lines := []string{e.opts.EventPrefix + " Class"}
	if ev.Instructor != nil && *ev.Instructor != "" {
		lines = append(lines, "Coach: "+*ev.Instructor)
	}
	if ev.SourceURL != "" {
		lines = append(lines, "Source: "+ev.SourceURL)
	}
	return strings.Join(lines, "\n")
}

func dashed(s string) string {
	return strings.Join(strings.Fields(s), "-")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
