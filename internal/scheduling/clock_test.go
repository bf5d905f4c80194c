package scheduling

import (
	"testing"
	"time"
)

func TestWeekdayIndex(t *testing.T) {
	tests := []struct {
		day  time.Time
		want int
	}{
		{monday(9, 0), 0},
		{monday(9, 0).AddDate(0, 0, 2), 2}, // Wednesday
		{monday(9, 0).AddDate(0, 0, 5), 5}, // Saturday
		{sunday(9, 0), 6},
	}
	for _, tt := range tests {
		if got := weekdayIndex(tt.day); got != tt.want {
			t.Errorf("weekdayIndex(%s %s) = %d, want %d", tt.day.Weekday(), tt.day.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"nine", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseClock(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMinuteOfDay(t *testing.T) {
	if got := minuteOfDay(monday(14, 45)); got != 14*60+45 {
		t.Errorf("minuteOfDay(14:45) = %d, want %d", got, 14*60+45)
	}
}
