package pilot

import (
	"time"
)

// started reports whether the direction's start date has been reached.
// Comparison is date-granular in local time; a nil start date means the
// direction has no lower bound.
func started(startDate *time.Time, now time.Time) bool {
	if startDate == nil {
		return true
	}
	return !beforeDay(now, *startDate)
}

// expired reports whether now is past the direction's end date. The end
// date itself is still active; the direction expires the day after.
func expired(endDate *time.Time, now time.Time) bool {
	if endDate == nil {
		return false
	}
	return beforeDay(*endDate, now)
}

// activeHour checks the optional daily hour window, start inclusive and
// end exclusive. The schema guarantees start < end.
func activeHour(start, end *int, now time.Time) bool {
	if start == nil || end == nil {
		return true
	}

	hour := now.Hour()
	return hour >= *start && hour < *end
}

// activeDay checks the active-days mask. Days are numbered Monday = 0
// through Sunday = 6; an empty mask means every day.
func activeDay(days []int64, now time.Time) bool {
	if len(days) == 0 {
		return true
	}

	weekday := (int(now.Weekday()) + 6) % 7
	for _, day := range days {
		if int(day) == weekday {
			return true
		}
	}

	return false
}

func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()

	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
