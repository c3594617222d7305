package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

const localStampLayout = "20060102T150405"

// observance is one STANDARD or DAYLIGHT block of a VTIMEZONE.
type observance struct {
	daylight   bool
	name       string
	offsetFrom int
	offsetTo   int
	// onset is the first occurrence in 1970, as local wall time in the
	// offset that was in force before the transition.
	onset time.Time
	rrule string
}

var rruleWeekdays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// observances derives the zone's yearly rules from the transitions Go's tz
// database reports for year. Zones without transitions yield a single
// fixed STANDARD block.
func observances(loc *time.Location, year int) ([]observance, error) {
	jan := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	transitions := transitionsIn(loc, year)

	if len(transitions) == 0 {
		name, off := jan.Zone()
		return []observance{{
			name:       name,
			offsetFrom: off,
			offsetTo:   off,
			onset:      time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
		}}, nil
	}

	out := make([]observance, 0, len(transitions))
	for _, tr := range transitions {
		_, before := tr.Add(-time.Second).In(loc).Zone()
		after := tr.In(loc)
		name, offTo := after.Zone()

		// Wall clock reading at the instant of change, before it changes.
		wall := tr.UTC().Add(time.Duration(before) * time.Second)
		opt := yearlyRule(wall)

		onset, err := firstIn1970(opt, wall)
		if err != nil {
			return nil, fmt.Errorf("ics: timezone %s: %w", loc, err)
		}
		out = append(out, observance{
			daylight:   after.IsDST(),
			name:       name,
			offsetFrom: before,
			offsetTo:   offTo,
			onset:      onset,
			rrule:      opt.RRuleString(),
		})
	}
	return out, nil
}

// transitionsIn finds offset changes during year, to the second.
func transitionsIn(loc *time.Location, year int) []time.Time {
	var out []time.Time
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	prev := start
	_, prevOff := prev.In(loc).Zone()
	for t := start.Add(6 * time.Hour); !t.After(end); t = t.Add(6 * time.Hour) {
		_, off := t.In(loc).Zone()
		if off == prevOff {
			prev = t
			continue
		}
		lo, hi := prev, t
		for hi.Sub(lo) > time.Second {
			mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
			if _, o := mid.In(loc).Zone(); o == prevOff {
				lo = mid
			} else {
				hi = mid
			}
		}
		out = append(out, hi)
		prev, prevOff = t, off
	}
	return out
}

// yearlyRule expresses a transition date as "nth (or last) weekday of
// month", the form tz rules take in practice.
func yearlyRule(wall time.Time) rrule.ROption {
	daysInMonth := time.Date(wall.Year(), wall.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	nth := (wall.Day()-1)/7 + 1
	if wall.Day()+7 > daysInMonth {
		nth = -1
	}
	wd := rruleWeekdays[wall.Weekday()]
	return rrule.ROption{
		Freq:      rrule.YEARLY,
		Bymonth:   []int{int(wall.Month())},
		Byweekday: []rrule.Weekday{wd.Nth(nth)},
	}
}

func firstIn1970(opt rrule.ROption, wall time.Time) (time.Time, error) {
	opt.Dtstart = time.Date(1970, time.January, 1, wall.Hour(), wall.Minute(), wall.Second(), 0, time.UTC)
	opt.Count = 1
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, err
	}
	all := r.All()
	if len(all) == 0 {
		return time.Time{}, fmt.Errorf("no 1970 occurrence for %s", opt.RRuleString())
	}
	return all[0], nil
}

// formatOffset renders seconds east of UTC as +HHMM.
func formatOffset(sec int) string {
	sign := '+'
	if sec < 0 {
		sign = '-'
		sec = -sec
	}
	return fmt.Sprintf("%c%02d%02d", sign, sec/3600, (sec%3600)/60)
}

// addTimezone appends a VTIMEZONE for loc to cal.
func addTimezone(cal *ical.Calendar, loc *time.Location, year int) error {
	obs, err := observances(loc, year)
	if err != nil {
		return err
	}

	tz := cal.AddTimezone(loc.String())
	for _, o := range obs {
		var block *ical.ComponentBase
		if o.daylight {
			d := &ical.Daylight{}
			tz.Components = append(tz.Components, d)
			block = &d.ComponentBase
		} else {
			block = &tz.AddStandard().ComponentBase
		}
		block.SetProperty(ical.ComponentProperty(ical.PropertyTzname), o.name)
		block.SetProperty(ical.ComponentPropertyDtStart, o.onset.Format(localStampLayout))
		if o.rrule != "" {
			block.SetProperty(ical.ComponentPropertyRrule, o.rrule)
		}
		block.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetfrom), formatOffset(o.offsetFrom))
		block.SetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto), formatOffset(o.offsetTo))
	}
	return nil
}
