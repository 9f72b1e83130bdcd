package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppointmentSource supplies existing bookings, sorted by start time.
type AppointmentSource interface {
	ListByDate(ctx context.Context, tenantID uuid.UUID, date string) ([]Appointment, error)
}

// Resolver answers the two availability questions the conversation needs:
// does a candidate slot collide, and where is the next usable gap.
type Resolver struct {
	appts         AppointmentSource
	horizonDays   int
	minGapMinutes int
}

// NewResolver builds a resolver over an appointment source. Zero or negative
// bounds fall back to a 30 day horizon and a 30 minute minimum gap.
func NewResolver(appts AppointmentSource, horizonDays, minGapMinutes int) *Resolver {
	if appts == nil {
		panic("schedule: appointment source required")
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}
	if minGapMinutes <= 0 {
		minGapMinutes = 30
	}
	return &Resolver{appts: appts, horizonDays: horizonDays, minGapMinutes: minGapMinutes}
}

// HasConflict reports whether any existing non-cancelled appointment for
// (tenant, date) intersects [startTime, startTime+duration) under half-open
// semantics.
func (r *Resolver) HasConflict(ctx context.Context, tenantID uuid.UUID, date, startTime string, durationMinutes int) (bool, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return false, err
	}
	candidate := Interval{Start: start, End: start + durationMinutes}

	existing, err := r.appts.ListByDate(ctx, tenantID, date)
	if err != nil {
		return false, fmt.Errorf("schedule: conflict check: %w", err)
	}
	for _, appt := range existing {
		interval, err := appt.interval()
		if err != nil {
			return false, err
		}
		if interval.Overlaps(candidate) {
			return true, nil
		}
	}
	return false, nil
}

// NextFreeSlot scans forward from the day after fromDate, bounded by the
// horizon, and returns the first gap of at least the minimum size inside the
// tenant's open intervals. hoursFor maps a calendar day to its
// "HH:MM-HH:MM" open intervals; an empty result means the day is closed.
// A nil slot with nil error means the whole horizon is booked solid — a
// legitimate negative, not a failure.
func (r *Resolver) NextFreeSlot(ctx context.Context, tenantID uuid.UUID, fromDate string, hoursFor func(time.Time) []string) (*Slot, error) {
	base, err := time.Parse(DateLayout, fromDate)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid date %q: %w", fromDate, err)
	}

	for i := 1; i <= r.horizonDays; i++ {
		day := base.AddDate(0, 0, i)
		date := day.Format(DateLayout)

		openIntervals := hoursFor(day)
		if len(openIntervals) == 0 {
			continue
		}

		appts, err := r.appts.ListByDate(ctx, tenantID, date)
		if err != nil {
			return nil, fmt.Errorf("schedule: slot search: %w", err)
		}

		for _, raw := range openIntervals {
			window, err := ParseInterval(raw)
			if err != nil {
				continue
			}
			if minute, ok := r.gapIn(window, appts); ok {
				return &Slot{Date: date, Time: FormatClock(minute)}, nil
			}
		}
	}
	return nil, nil
}

// gapIn walks the sorted appointments with a cursor starting at the window's
// opening time and returns the first position with at least minGapMinutes of
// room before the next appointment or the closing time.
func (r *Resolver) gapIn(window Interval, appts []Appointment) (int, bool) {
	cursor := window.Start

	for _, appt := range appts {
		interval, err := appt.interval()
		if err != nil {
			continue
		}
		if interval.End <= window.Start || interval.Start >= window.End {
			continue
		}
		if interval.Start-cursor >= r.minGapMinutes {
			return cursor, true
		}
		if cursor < interval.End {
			cursor = interval.End
		}
	}

	if window.End-cursor >= r.minGapMinutes {
		return cursor, true
	}
	return 0, false
}

func (a Appointment) interval() (Interval, error) {
	start, err := ParseClock(a.StartTime)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: end}, nil
}
