package game

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// legacyClockRe matches the 12-hour form still present in older records,
// e.g. "7:30 PM".
var legacyClockRe = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)

// ParseDate validates the YYYY-MM-DD schedule date.
func ParseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidSpec, v)
	}
	return t, nil
}

// ParseClock parses either the 24-hour "HH:mm" form or the legacy
// "h:mm AM/PM" form into hour and minute. The third return reports whether
// the input was a valid clock in either form.
func ParseClock(v string) (hour, minute int, ok bool) {
	if m := legacyClockRe.FindStringSubmatch(v); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h < 1 || h > 12 || min > 59 {
			return 0, 0, false
		}
		h = h % 12
		if strings.EqualFold(m[3], "PM") {
			h += 12
		}
		return h, min, true
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}

// SortInstant combines date and time into a single UTC instant for
// chronological ordering. An unparseable time degrades to midnight so a
// malformed record still sorts by its date instead of breaking the listing.
func (g Game) SortInstant() time.Time {
	day, err := ParseDate(g.Date)
	if err != nil {
		return time.Time{}
	}
	hour, minute, ok := ParseClock(g.Time)
	if !ok {
		return day
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// StartsAfter reports whether the game's scheduled instant is strictly in
// the future relative to now.
func (g Game) StartsAfter(now time.Time) bool {
	return g.SortInstant().After(now.UTC())
}
