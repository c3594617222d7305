package model

import (
	"encoding/json"
	"time"
)

// LocalTimeLayout is the wire layout for event start times: ISO-8601
// local time with no offset. The facility timezone is implied.
const LocalTimeLayout = "2006-01-02T15:04:05"

// DefaultDurationMin applies when the agenda omits a class length.
const DefaultDurationMin = 60

// Event is one scheduled class occurrence.
//
// Start carries the facility's location, but only its wall-clock fields are
// meaningful on the wire.
type Event struct {
	Start       time.Time
	Title       string
	Instructor  *string
	DurationMin int
	SourceURL   string
	Location    *string
}

// End is Start plus the class duration.
func (e Event) End() time.Time {
	return e.Start.Add(time.Duration(e.DurationMin) * time.Minute)
}

type eventJSON struct {
	Date        string  `json:"date"`
	EventName   string  `json:"event_name"`
	Coach       *string `json:"coach"`
	DurationMin int     `json:"duration_min"`
	SourceURL   string  `json:"source_url"`
	Location    *string `json:"location"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		Date:        e.Start.Format(LocalTimeLayout),
		EventName:   e.Title,
		Coach:       e.Instructor,
		DurationMin: e.DurationMin,
		SourceURL:   e.SourceURL,
		Location:    e.Location,
	})
}

// UnmarshalJSON reads the wire form back; Start is placed in UTC since the
// payload carries no zone.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(LocalTimeLayout, raw.Date)
	if err != nil {
		return err
	}
	*e = Event{
		Start:       start,
		Title:       raw.EventName,
		Instructor:  raw.Coach,
		DurationMin: raw.DurationMin,
		SourceURL:   raw.SourceURL,
		Location:    raw.Location,
	}
	return nil
}

// PartialEvent is an extracted agenda row that still lacks its calendar
// date. DayOffset counts days from the week's Monday (0..6).
type PartialEvent struct {
	DayOffset   int
	Hour        int
	Minute      int
	DurationMin int
	Title       string
	Instructor  *string
	// DetailURL is the class detail link when the row carries one.
	DetailURL string
}

// Resolve anchors the row in the week starting at monday. The result keeps
// monday's location.
func (p PartialEvent) Resolve(monday time.Time, sourceURL string) Event {
	y, m, d := monday.Date()
	start := time.Date(y, m, d+p.DayOffset, p.Hour, p.Minute, 0, 0, monday.Location())
	src := sourceURL
	if p.DetailURL != "" {
		src = p.DetailURL
	}
	return Event{
		Start:       start,
		Title:       p.Title,
		Instructor:  p.Instructor,
		DurationMin: p.DurationMin,
		SourceURL:   src,
	}
}

// WeekWindow is one Monday-aligned 7-day span.
type WeekWindow struct {
	Monday time.Time
}

// Contains reports whether t falls on one of the window's seven days.
func (w WeekWindow) Contains(t time.Time) bool {
	y, m, d := w.Monday.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end := time.Date(y, m, d+7, 0, 0, 0, 0, t.Location())
	return !t.Before(start) && t.Before(end)
}

// String renders the Monday as YYYY-MM-DD.
func (w WeekWindow) String() string {
	return w.Monday.Format(time.DateOnly)
}
