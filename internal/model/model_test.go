package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEventJSONWireFormat(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	ev := Event{
		Start:       time.Date(2025, 11, 10, 6, 0, 0, 0, warsaw),
		Title:       "WOD",
		Instructor:  strPtr("Coach Name"),
		DurationMin: 60,
		SourceURL:   "https://gym.example.com/kalendarz-zajec?day=2025-11-10&view=Agenda",
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"date": "2025-11-10T06:00:00",
		"event_name": "WOD",
		"coach": "Coach Name",
		"duration_min": 60,
		"source_url": "https://gym.example.com/kalendarz-zajec?day=2025-11-10&view=Agenda",
		"location": null
	}`, string(data))
}

func TestEventJSONNullCoach(t *testing.T) {
	ev := Event{Start: time.Date(2025, 11, 12, 18, 30, 0, 0, time.UTC), Title: "Open Gym", DurationMin: 90, Location: strPtr("Main St 1")}

	data, err := json.Marshal([]Event{ev})
	require.NoError(t, err)

	var back []Event
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 1)
	assert.Nil(t, back[0].Instructor)
	assert.Equal(t, "Main St 1", *back[0].Location)
	assert.True(t, back[0].Start.Equal(ev.Start))
}

func TestPartialEventResolve(t *testing.T) {
	monday := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	p := PartialEvent{DayOffset: 6, Hour: 9, Minute: 15, DurationMin: 45, Title: "Mobility"}

	ev := p.Resolve(monday, "https://gym.example.com/week")
	assert.Equal(t, time.Date(2025, 11, 16, 9, 15, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, "https://gym.example.com/week", ev.SourceURL)
	assert.Equal(t, time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC), ev.End())

	p.DetailURL = "https://gym.example.com/class/42"
	assert.Equal(t, p.DetailURL, p.Resolve(monday, "ignored").SourceURL)
}

func TestWeekWindowContains(t *testing.T) {
	w := WeekWindow{Monday: time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)}
	assert.True(t, w.Contains(time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2025, 11, 16, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 11, 9, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-11-10", w.String())
}
