package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wodcal/internal/agenda"
	"wodcal/internal/ics"
	"wodcal/internal/schedule"
)

// agendaSite serves one agenda page per ?day= value.
func agendaSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("day")]
		if r.URL.Path != "/kalendarz-zajec" || !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><table class="calendar_table_agenda">`+body+`</table></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func onceDeps(t *testing.T, baseURL string) (*schedule.Fetcher, *ics.Encoder) {
	t.Helper()
	x, err := agenda.NewExtractor(agenda.Options{BaseURL: baseURL})
	require.NoError(t, err)
	f := schedule.NewFetcher(schedule.NewHTTPSource(5*time.Second, "wodcal-test"), x, schedule.Options{
		BaseURL:    baseURL,
		AgendaPath: "/kalendarz-zajec",
	})
	enc, err := ics.NewEncoder(ics.Options{Location: time.UTC})
	require.NoError(t, err)
	return f, enc
}

func TestRunOnceWritesCalendar(t *testing.T) {
	srv := agendaSite(t, map[string]string{
		"2025-11-10": `<tr><td>Mon</td><td>06:00-07:00</td><td>WOD</td><td>Coach Name</td></tr>`,
		"2025-11-17": `<tr><td>Tue</td><td>18:00 (90 min)</td><td>Olympic Lifting</td><td>Anna</td></tr>`,
	})
	f, enc := onceDeps(t, srv.URL)

	var out bytes.Buffer
	today := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	require.NoError(t, runOnce(context.Background(), &out, f, enc, today, 2))

	doc := out.String()
	assert.True(t, strings.HasPrefix(doc, "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(doc, "BEGIN:VEVENT"))
	assert.Contains(t, doc, "SUMMARY:CrossFit: WOD\r\n")
	assert.Contains(t, doc, "DTSTART;TZID=UTC:20251118T180000\r\n")
	assert.Contains(t, doc, "DTEND;TZID=UTC:20251118T193000\r\n")
}

func TestRunOnceRejectsWeekCount(t *testing.T) {
	f, enc := onceDeps(t, "https://gym.example.com")

	var out bytes.Buffer
	err := runOnce(context.Background(), &out, f, enc, time.Now(), 7)
	assert.True(t, errors.Is(err, schedule.ErrInvalidWeekCount))
	assert.Zero(t, out.Len())
}

func TestRunOnceUpstreamFailure(t *testing.T) {
	srv := agendaSite(t, nil)
	f, enc := onceDeps(t, srv.URL)

	var out bytes.Buffer
	err := runOnce(context.Background(), &out, f, enc, time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schedule.ErrFetchFailed))
	assert.Zero(t, out.Len())
}
