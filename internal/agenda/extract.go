package agenda

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	appLog "wodcal/internal/log"
	"wodcal/internal/model"
)

const (
	agendaTableClass = "calendar_table_agenda"
	eventNameClass   = "event_name"
	detailLinkClass  = "schedule-agenda-link"
)

// Options tunes extraction for one facility's site.
type Options struct {
	// BaseURL resolves relative class detail links.
	BaseURL string
	// LocationSkip lists address lines that are not part of the address
	// (section headers, the gym's own name). Compared case-insensitively.
	LocationSkip []string
	// Country is appended to the address when it is missing.
	Country string
}

// Extraction is the result of reading one week's agenda page.
type Extraction struct {
	Events   []model.PartialEvent
	Location *string
	// Skipped counts rows dropped for an unknown day or a malformed time.
	Skipped int
}

// Extractor turns agenda HTML into partial events. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	base *url.URL
	opts Options
}

func NewExtractor(opts Options) (*Extractor, error) {
	x := &Extractor{opts: opts}
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("agenda: base url: %w", err)
		}
		x.base = u
	}
	return x, nil
}

// Extract reads the agenda table for the week starting at monday. A page
// without the table, or with an empty one, yields no events and no error.
func (x *Extractor) Extract(body []byte, monday time.Time) (Extraction, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Extraction{}, fmt.Errorf("agenda: parse html: %w", err)
	}

	out := Extraction{
		Events:   []model.PartialEvent{},
		Location: x.location(doc),
	}

	table := findFirst(doc, isElementWithClass(atom.Table, agendaTableClass))
	if table == nil {
		appLog.Debug("agenda table not found", "week", monday.Format(time.DateOnly))
		return out, nil
	}

	// currentDay carries the rowspan day cell over continuation rows.
	currentDay := -1
	for i, tr := range rows(table) {
		tds := cells(tr)
		if len(tds) == 0 {
			continue
		}

		rest := tds
		switch {
		case hasAttr(tds[0], "rowspan"):
			off, ok := dayOffset(textContent(tds[0]), monday)
			if !ok {
				currentDay = -1
				out.Skipped++
				appLog.Debug("agenda row skipped", "row", i, "reason", "unknown day", "text", textContent(tds[0]))
				continue
			}
			currentDay = off
			rest = tds[1:]
		case len(tds) >= 3 && !looksLikeTime(textContent(tds[0])):
			off, ok := dayOffset(textContent(tds[0]), monday)
			if !ok {
				out.Skipped++
				appLog.Debug("agenda row skipped", "row", i, "reason", "unknown day", "text", textContent(tds[0]))
				continue
			}
			currentDay = off
			rest = tds[1:]
		}

		if currentDay < 0 {
			out.Skipped++
			appLog.Debug("agenda row skipped", "row", i, "reason", "no day context")
			continue
		}

		ev, ok, reason := x.row(rest)
		if !ok {
			out.Skipped++
			appLog.Debug("agenda row skipped", "row", i, "reason", reason)
			continue
		}
		ev.DayOffset = currentDay
		out.Events = append(out.Events, ev)
	}

	return out, nil
}

// row reads time, title, instructor and detail link from the cells that
// follow the day cell.
func (x *Extractor) row(tds []*html.Node) (model.PartialEvent, bool, string) {
	if len(tds) < 2 {
		return model.PartialEvent{}, false, "too few cells"
	}

	slot, err := ParseTimeSlot(textContent(tds[0]))
	if err != nil {
		return model.PartialEvent{}, false, err.Error()
	}

	content := tds[1]
	frags := fragments(content)

	var title string
	if p := findFirst(content, isElementWithClass(atom.P, eventNameClass)); p != nil {
		title = textContent(p)
	} else if len(frags) > 0 {
		title = frags[0]
	}
	if title == "" {
		return model.PartialEvent{}, false, "missing title"
	}

	var instructor *string
	if len(tds) >= 3 {
		if s := textContent(tds[2]); s != "" {
			instructor = &s
		}
	}
	if instructor == nil {
		for _, f := range frags {
			if f != title {
				s := f
				instructor = &s
				break
			}
		}
	}

	ev := model.PartialEvent{
		Hour:        slot.Hour,
		Minute:      slot.Minute,
		DurationMin: slot.DurationMin,
		Title:       title,
		Instructor:  instructor,
	}
	if a := findFirst(content, isElementWithClass(atom.A, detailLinkClass)); a != nil {
		if href, ok := attr(a, "href"); ok {
			ev.DetailURL = x.resolve(href)
		}
	}
	return ev, true, ""
}

func (x *Extractor) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if x.base == nil {
		return ref.String()
	}
	return x.base.ResolveReference(ref).String()
}

// location reads the facility address from the page's <address> block.
func (x *Extractor) location(doc *html.Node) *string {
	addr := findFirst(doc, isElement(atom.Address))
	if addr == nil {
		return nil
	}

	var lines []string
	if ps := findAll(addr, isElement(atom.P)); len(ps) > 0 {
		for _, p := range ps {
			lines = append(lines, textContent(p))
		}
	} else {
		lines = fragments(addr)
	}

	kept := lines[:0]
	for _, l := range lines {
		if l == "" || x.skipLocationLine(l) {
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		return nil
	}

	joined := strings.Join(kept, ", ")
	if c := x.opts.Country; c != "" && !strings.Contains(joined, c) {
		joined += ", " + c
	}
	return &joined
}

func (x *Extractor) skipLocationLine(line string) bool {
	if strings.EqualFold(line, "Kontakt") {
		return true
	}
	for _, s := range x.opts.LocationSkip {
		if strings.EqualFold(line, cleanText(s)) {
			return true
		}
	}
	return false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func looksLikeTime(s string) bool {
	_, err := ParseTimeSlot(s)
	return err == nil
}
