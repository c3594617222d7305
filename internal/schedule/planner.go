package schedule

import (
	"errors"
	"fmt"
	"time"

	"wodcal/internal/model"
)

const (
	MinWeeks = 1
	MaxWeeks = 6
	// MaxStartAge is how far back an explicit start date may lie. The
	// upstream site only republishes a rolling two-week history.
	MaxStartAge = 14 * 24 * time.Hour
)

// ErrInvalidRequest is the parent of every caller-input rejection.
var ErrInvalidRequest = errors.New("invalid request")

var (
	ErrInvalidWeekCount = fmt.Errorf("%w: weeks must be between %d and %d", ErrInvalidRequest, MinWeeks, MaxWeeks)
	ErrInvalidStartDate = fmt.Errorf("%w: start date must be a Monday", ErrInvalidRequest)
	ErrStartDateTooOld  = fmt.Errorf("%w: start date is more than 14 days in the past", ErrInvalidRequest)
)

// PlanRequest is the planner input. StartDate, when set, replaces the
// current week as the first window.
type PlanRequest struct {
	Weeks     int
	Today     time.Time
	StartDate *time.Time
}

// MondayOf returns midnight of the Monday on or before t, in t's location.
func MondayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	back := (int(t.Weekday()) + 6) % 7
	return time.Date(y, m, d-back, 0, 0, 0, 0, t.Location())
}

// Plan returns req.Weeks consecutive Monday-aligned windows.
func Plan(req PlanRequest) ([]model.WeekWindow, error) {
	if req.Weeks < MinWeeks || req.Weeks > MaxWeeks {
		return nil, ErrInvalidWeekCount
	}

	loc := req.Today.Location()
	ty, tm, td := req.Today.Date()
	today := time.Date(ty, tm, td, 0, 0, 0, 0, loc)

	first := MondayOf(today)
	if req.StartDate != nil {
		sy, sm, sd := req.StartDate.Date()
		start := time.Date(sy, sm, sd, 0, 0, 0, 0, loc)
		if start.Weekday() != time.Monday {
			return nil, ErrInvalidStartDate
		}
		// Compare calendar days so DST shifts cannot move the boundary.
		if daysBetween(start, today) > int(MaxStartAge/(24*time.Hour)) {
			return nil, ErrStartDateTooOld
		}
		first = start
	}

	windows := make([]model.WeekWindow, req.Weeks)
	fy, fm, fd := first.Date()
	for i := range windows {
		windows[i] = model.WeekWindow{Monday: time.Date(fy, fm, fd+7*i, 0, 0, 0, 0, loc)}
	}
	return windows, nil
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
