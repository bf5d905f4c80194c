package scheduling

import (
	"fmt"
	"time"
)

// weekdayIndex maps a timestamp to the 0 (Monday) .. 6 (Sunday) convention
// used by availability windows. Go's time.Weekday starts on Sunday.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// minuteOfDay returns the minutes elapsed since local midnight.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// parseClock converts a zero-padded "HH:MM" string into minutes since
// midnight.
func parseClock(s string) (int, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
