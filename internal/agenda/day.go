package agenda

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

var isoDateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)

// weekdayTokens maps English and Polish day names and abbreviations onto
// offsets from Monday.
var weekdayTokens = map[string]int{
	"mon": 0, "monday": 0,
	"tue": 1, "tues": 1, "tuesday": 1,
	"wed": 2, "wednesday": 2,
	"thu": 3, "thur": 3, "thurs": 3, "thursday": 3,
	"fri": 4, "friday": 4,
	"sat": 5, "saturday": 5,
	"sun": 6, "sunday": 6,

	"pn": 0, "pon": 0, "poniedziałek": 0, "poniedzialek": 0,
	"wt": 1, "wto": 1, "wtorek": 1,
	"śr": 2, "sr": 2, "śro": 2, "środa": 2, "sroda": 2,
	"cz": 3, "czw": 3, "czwartek": 3,
	"pt": 4, "pią": 4, "pia": 4, "piątek": 4, "piatek": 4,
	"sb": 5, "so": 5, "sob": 5, "sobota": 5,
	"nd": 6, "nie": 6, "niedz": 6, "niedziela": 6,
}

// dayOffset resolves a day cell to 0..6 relative to monday. An ISO date in
// the text wins over a weekday name; a date outside the week is rejected.
func dayOffset(text string, monday time.Time) (int, bool) {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		d, err := time.Parse(time.DateOnly, m[1])
		if err != nil {
			return 0, false
		}
		y, mo, da := monday.Date()
		base := time.Date(y, mo, da, 0, 0, 0, 0, time.UTC)
		off := int(d.Sub(base).Hours() / 24)
		if off < 0 || off > 6 {
			return 0, false
		}
		return off, true
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, tok := range tokens {
		if off, ok := weekdayTokens[tok]; ok {
			return off, true
		}
	}
	return 0, false
}
