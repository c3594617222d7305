package agenda

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeSlot(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want TimeSlot
	}{
		{"bare start", "06:00", TimeSlot{Hour: 6, Minute: 0, DurationMin: 60}},
		{"single digit hour", "7:30", TimeSlot{Hour: 7, Minute: 30, DurationMin: 60}},
		{"range", "06:00-07:00", TimeSlot{Hour: 6, Minute: 0, DurationMin: 60}},
		{"spaced range", "17:15 - 18:00", TimeSlot{Hour: 17, Minute: 15, DurationMin: 45}},
		{"en dash", "18:00\u201319:30", TimeSlot{Hour: 18, Minute: 0, DurationMin: 90}},
		{"nbsp padding", "\u00a0 09:00\u00a0-\u00a010:15 \u00a0", TimeSlot{Hour: 9, Minute: 0, DurationMin: 75}},
		{"explicit minutes", "06:00 (45 min)", TimeSlot{Hour: 6, Minute: 0, DurationMin: 45}},
		{"explicit wins over range", "06:00-07:00 (30 min)", TimeSlot{Hour: 6, Minute: 0, DurationMin: 30}},
		{"explicit with nbsp", "12:00\u00a0(90\u00a0min)", TimeSlot{Hour: 12, Minute: 0, DurationMin: 90}},
		{"zero length range clamps", "10:00-10:00", TimeSlot{Hour: 10, Minute: 0, DurationMin: 1}},
		{"reversed range clamps", "23:30-00:30", TimeSlot{Hour: 23, Minute: 30, DurationMin: 1}},
		{"zero explicit clamps", "08:00 (0 min)", TimeSlot{Hour: 8, Minute: 0, DurationMin: 1}},
		{"embedded in text", "Start 05:45", TimeSlot{Hour: 5, Minute: 45, DurationMin: 60}},
		{"range until midnight", "22:30-24:00", TimeSlot{Hour: 22, Minute: 30, DurationMin: 90}},
		{"range with unit suffix", "06:00-07:30h", TimeSlot{Hour: 6, Minute: 0, DurationMin: 90}},
		{"start with unit suffix", "06:15h", TimeSlot{Hour: 6, Minute: 15, DurationMin: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeSlot(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeSlotMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "TBD", "25:00", "12:75", "noon-ish", "\u00a0", "24:00", "23:00-24:30"} {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			_, err := ParseTimeSlot(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTimeSlot))

			var mErr *MalformedTimeSlotError
			require.True(t, errors.As(err, &mErr))
			assert.Equal(t, in, mErr.Text)
		})
	}
}

// Every valid HH:MM-HH:MM pair yields end minus start, floored at one.
func TestParseTimeSlotRangeDurationProperty(t *testing.T) {
	for start := 0; start < 24*60; start += 37 {
		for end := 0; end < 24*60; end += 41 {
			in := fmt.Sprintf("%02d:%02d-%02d:%02d", start/60, start%60, end/60, end%60)
			got, err := ParseTimeSlot(in)
			require.NoError(t, err, in)

			want := end - start
			if want < 1 {
				want = 1
			}
			assert.Equal(t, want, got.DurationMin, in)
			assert.Equal(t, start/60, got.Hour, in)
			assert.Equal(t, start%60, got.Minute, in)
		}
	}
}
