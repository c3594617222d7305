package agenda

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"wodcal/internal/model"
)

// ErrMalformedTimeSlot matches every *MalformedTimeSlotError via errors.Is.
var ErrMalformedTimeSlot = errors.New("malformed time slot")

// MalformedTimeSlotError reports a time cell with no usable time pattern.
type MalformedTimeSlotError struct {
	Text   string
	Reason string
}

func (e *MalformedTimeSlotError) Error() string {
	return fmt.Sprintf("malformed time slot %q: %s", e.Text, e.Reason)
}

func (e *MalformedTimeSlotError) Is(target error) bool {
	return target == ErrMalformedTimeSlot
}

// TimeSlot is a parsed start time plus class length.
type TimeSlot struct {
	Hour        int
	Minute      int
	DurationMin int
}

var (
	rangeRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})(?:\D|$)`)
	singleRe   = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?:\D|$)`)
	explicitRe = regexp.MustCompile(`(?i)\(\s*(\d{1,4})\s*min[a-z]*\.?\s*\)`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

var dashReplacer = strings.NewReplacer(
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u2212", "-", // minus sign
)

// normalizeSpace folds NBSP variants and runs of whitespace into single
// spaces and trims the result.
func normalizeSpace(s string) string {
	s = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\t", " ").Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// ParseTimeSlot reads "HH:MM", "HH:MM-HH:MM" or "HH:MM (NN min)".
// A bare start defaults to model.DefaultDurationMin; a range yields
// end minus start clamped to at least one minute; an explicit minute
// count wins over range inference.
func ParseTimeSlot(text string) (TimeSlot, error) {
	norm := dashReplacer.Replace(normalizeSpace(text))
	if norm == "" {
		return TimeSlot{}, &MalformedTimeSlotError{Text: text, Reason: "empty"}
	}

	var slot TimeSlot
	inferred := model.DefaultDurationMin

	if m := rangeRe.FindStringSubmatch(norm); m != nil {
		sh, sm, err := clock(m[1], m[2])
		if err != nil {
			return TimeSlot{}, &MalformedTimeSlotError{Text: text, Reason: err.Error()}
		}
		eh, em, err := endClock(m[3], m[4])
		if err != nil {
			return TimeSlot{}, &MalformedTimeSlotError{Text: text, Reason: err.Error()}
		}
		slot.Hour, slot.Minute = sh, sm
		inferred = max((eh*60+em)-(sh*60+sm), 1)
	} else if m := singleRe.FindStringSubmatch(norm); m != nil {
		h, mm, err := clock(m[1], m[2])
		if err != nil {
			return TimeSlot{}, &MalformedTimeSlotError{Text: text, Reason: err.Error()}
		}
		slot.Hour, slot.Minute = h, mm
	} else {
		return TimeSlot{}, &MalformedTimeSlotError{Text: text, Reason: "no HH:MM pattern"}
	}

	slot.DurationMin = inferred
	if m := explicitRe.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		slot.DurationMin = max(n, 1)
	}
	return slot, nil
}

// endClock also accepts 24:00 for classes that run until midnight.
func endClock(hs, ms string) (int, int, error) {
	if h, _ := strconv.Atoi(hs); h == 24 {
		if m, _ := strconv.Atoi(ms); m == 0 {
			return 24, 0, nil
		}
	}
	return clock(hs, ms)
}

func clock(hs, ms string) (int, int, error) {
	h, _ := strconv.Atoi(hs)
	m, _ := strconv.Atoi(ms)
	if h > 23 || m > 59 {
		return 0, 0, fmt.Errorf("%s:%s is not a clock time", hs, ms)
	}
	return h, m, nil
}
