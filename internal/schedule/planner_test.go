package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMondayOf(t *testing.T) {
	assert.Equal(t, date(2025, 11, 10), MondayOf(date(2025, 11, 10)))
	assert.Equal(t, date(2025, 11, 10), MondayOf(time.Date(2025, 11, 16, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, date(2025, 11, 10), MondayOf(date(2025, 11, 13)))
	assert.Equal(t, date(2025, 12, 29), MondayOf(date(2026, 1, 1)))
}

func TestPlanWindowsForEveryValidCount(t *testing.T) {
	for _, today := range []time.Time{date(2025, 11, 10), date(2025, 11, 13), date(2025, 11, 16)} {
		for weeks := MinWeeks; weeks <= MaxWeeks; weeks++ {
			got, err := Plan(PlanRequest{Weeks: weeks, Today: today})
			require.NoError(t, err)
			require.Len(t, got, weeks)

			assert.False(t, got[0].Monday.After(today))
			for i, w := range got {
				assert.Equal(t, time.Monday, w.Monday.Weekday())
				if i > 0 {
					assert.Equal(t, 7*24*time.Hour, w.Monday.Sub(got[i-1].Monday))
				}
			}
			assert.Equal(t, date(2025, 11, 10), got[0].Monday)
		}
	}
}

func TestPlanRejectsWeekCount(t *testing.T) {
	for _, weeks := range []int{-1, 0, 7, 52} {
		got, err := Plan(PlanRequest{Weeks: weeks, Today: date(2025, 11, 12)})
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrInvalidWeekCount)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestPlanExplicitStartDate(t *testing.T) {
	tuesday := date(2025, 11, 25)
	_, err := Plan(PlanRequest{Weeks: 1, Today: date(2025, 11, 27), StartDate: &tuesday})
	assert.ErrorIs(t, err, ErrInvalidStartDate)

	// 2025-11-10 is a Monday twenty days before 2025-11-30.
	twentyDaysAgo := date(2025, 11, 10)
	_, err = Plan(PlanRequest{Weeks: 1, Today: date(2025, 11, 30), StartDate: &twentyDaysAgo})
	assert.ErrorIs(t, err, ErrStartDateTooOld)
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	// 2025-11-17 is a Monday ten days before 2025-11-27.
	tenDaysAgo := date(2025, 11, 17)
	got, err := Plan(PlanRequest{Weeks: 2, Today: date(2025, 11, 27), StartDate: &tenDaysAgo})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2025, 11, 17), date(2025, 11, 24)}, []time.Time{got[0].Monday, got[1].Monday})
}

func TestPlanStalenessBoundary(t *testing.T) {
	monday := date(2025, 11, 10)

	_, err := Plan(PlanRequest{Weeks: 1, Today: monday.AddDate(0, 0, 14), StartDate: &monday})
	assert.NoError(t, err, "exactly 14 days back is allowed")

	_, err = Plan(PlanRequest{Weeks: 1, Today: monday.AddDate(0, 0, 15), StartDate: &monday})
	assert.ErrorIs(t, err, ErrStartDateTooOld)

	future := date(2026, 1, 5)
	got, err := Plan(PlanRequest{Weeks: 1, Today: monday, StartDate: &future})
	require.NoError(t, err)
	assert.Equal(t, future, got[0].Monday)
}

func TestPlanAcrossDSTKeepsMidnight(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	today := time.Date(2025, 10, 20, 12, 0, 0, 0, warsaw)
	got, err := Plan(PlanRequest{Weeks: 2, Today: today})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 27, 0, 0, 0, 0, warsaw), got[1].Monday)
	assert.Zero(t, got[1].Monday.Hour())
}
