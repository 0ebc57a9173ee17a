package analytics

import (
	"fmt"
	"strings"
	"time"
)

type TimeRange string

const (
	RangeToday      TimeRange = "today"
	RangeSevenDays  TimeRange = "7d"
	RangeThirtyDays TimeRange = "30d"
	RangeNinetyDays TimeRange = "90d"
)

func ParseTimeRange(value string) (TimeRange, error) {
	switch tr := TimeRange(strings.ToLower(strings.TrimSpace(value))); tr {
	case RangeToday, RangeSevenDays, RangeThirtyDays, RangeNinetyDays:
		return tr, nil
	case "":
		return RangeSevenDays, nil
	default:
		return "", fmt.Errorf("invalid time range %q", value)
	}
}

// Days is the length of the display window in calendar days.
func (tr TimeRange) Days() int {
	switch tr {
	case RangeToday:
		return 1
	case RangeThirtyDays:
		return 30
	case RangeNinetyDays:
		return 90
	default:
		return 7
	}
}

type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Windows returns the display window ending at now and the equal-length
// comparison window immediately before it. Both are aligned to midnight.
func (tr TimeRange) Windows(now time.Time) (display Window, comparison Window) {
	days := tr.Days()
	displayStart := startOfDay(now).AddDate(0, 0, -(days - 1))
	// End is exclusive; keep orders stamped exactly at now.
	display = Window{Start: displayStart, End: now.Add(time.Nanosecond)}
	comparison = Window{Start: displayStart.AddDate(0, 0, -days), End: displayStart}
	return display, comparison
}

// FetchWindowStart is the earliest timestamp a loader must return so that
// the comparison window and the week and month sub-period figures are
// complete.
func FetchWindowStart(tr TimeRange, now time.Time) time.Time {
	_, comparison := tr.Windows(now)
	start := comparison.Start
	weekStart := startOfDay(now).AddDate(0, 0, -6)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, candidate := range []time.Time{weekStart, monthStart} {
		if candidate.Before(start) {
			start = candidate
		}
	}
	return start
}
