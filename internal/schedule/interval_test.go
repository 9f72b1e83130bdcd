package schedule

import "testing"

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{" 10:30 ", 630, false},
		{"9am", 0, true},
		{"25:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(570); got != "09:30" {
		t.Errorf("FormatClock(570) = %q, want 09:30", got)
	}
	if got := FormatClock(0); got != "00:00" {
		t.Errorf("FormatClock(0) = %q, want 00:00", got)
	}
}

func TestParseInterval(t *testing.T) {
	interval, err := ParseInterval("09:00-17:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interval.Start != 540 || interval.End != 1020 {
		t.Fatalf("unexpected interval %+v", interval)
	}

	if _, err := ParseInterval("17:00-09:00"); err == nil {
		t.Error("expected error for inverted interval")
	}
	if _, err := ParseInterval("09:00"); err == nil {
		t.Error("expected error for missing separator")
	}
}

func TestIntervalOverlapsHalfOpen(t *testing.T) {
	existing := Interval{Start: 600, End: 630} // [10:00, 10:30)

	tests := []struct {
		name      string
		candidate Interval
		want      bool
	}{
		{"intersecting", Interval{615, 645}, true},      // [10:15,10:45)
		{"back to back after", Interval{630, 660}, false}, // [10:30,11:00)
		{"back to back before", Interval{570, 600}, false},
		{"containing", Interval{590, 640}, true},
		{"contained", Interval{610, 620}, true},
		{"disjoint", Interval{700, 730}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := existing.Overlaps(tt.candidate); got != tt.want {
				t.Errorf("Overlaps(%+v) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestWithinAny(t *testing.T) {
	hours := []string{"08:00-12:00", "14:00-18:00"}

	if !WithinAny("10:00", hours) {
		t.Error("10:00 should be within morning hours")
	}
	if WithinAny("13:00", hours) {
		t.Error("13:00 falls in the lunch gap")
	}
	if WithinAny("18:00", hours) {
		t.Error("closing time is exclusive")
	}
	if !WithinAny("14:00", hours) {
		t.Error("opening time is inclusive")
	}
	if WithinAny("not a time", hours) {
		t.Error("malformed clock should not match")
	}
	if WithinAny("10:00", nil) {
		t.Error("no hours means nothing is within")
	}
}
