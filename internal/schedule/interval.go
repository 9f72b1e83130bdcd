package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical wire format for appointment dates.
const DateLayout = "2006-01-02"

// Interval is a half-open [Start, End) span in minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// ParseClock converts "HH:MM" to minutes from midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid clock value %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes from midnight back to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseInterval converts "HH:MM-HH:MM" to a minute interval.
func ParseInterval(value string) (Interval, error) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("schedule: invalid interval %q, want HH:MM-HH:MM", value)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Interval{}, err
	}
	if end <= start {
		return Interval{}, fmt.Errorf("schedule: interval %q must end after it starts", value)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals intersect.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && i.End > other.Start
}

// Contains reports whether the minute value falls inside the interval.
func (i Interval) Contains(minute int) bool {
	return minute >= i.Start && minute < i.End
}

// WithinAny reports whether the clock value falls inside any of the given
// "HH:MM-HH:MM" open intervals. Malformed intervals are skipped.
func WithinAny(clock string, intervals []string) bool {
	minute, err := ParseClock(clock)
	if err != nil {
		return false
	}
	for _, raw := range intervals {
		interval, err := ParseInterval(raw)
		if err != nil {
			continue
		}
		if interval.Contains(minute) {
			return true
		}
	}
	return false
}
