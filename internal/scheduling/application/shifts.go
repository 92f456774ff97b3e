// Package application hosts the scheduler engine: shift expansion, the
// fair-use and round-robin user pickers, the populate/preview entry
// points, and the periodic cycle that walks every active team.
package application

import (
	"time"

	sharedDomain "github.com/oncall/oncall/internal/shared/domain"

	domain "github.com/oncall/oncall/internal/scheduling/domain"
)

// weekStart returns Monday 00:00 of the week containing t, in loc.
// Schedule event offsets are interpreted against this anchor.
func weekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	daysBack := (int(local.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	monday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return monday.AddDate(0, 0, -daysBack)
}

// ExpandShifts materializes the schedule template's weekly offsets into
// concrete [start,end) intervals whose starts fall in [from, until).
// Week boundaries advance by calendar days so DST transitions keep
// shifts anchored to local wall time.
func ExpandShifts(events []domain.ScheduleEvent, from, until time.Time, loc *time.Location) []sharedDomain.TimeRange {
	if len(events) == 0 || !from.Before(until) {
		return nil
	}
	var shifts []sharedDomain.TimeRange
	week := weekStart(from, loc)
	for week.Before(until) {
		for _, ev := range events {
			start := week.Add(ev.StartOffset)
			if start.Before(from) || !start.Before(until) {
				continue
			}
			r, err := sharedDomain.NewTimeRange(start, start.Add(ev.Duration))
			if err != nil {
				continue
			}
			shifts = append(shifts, r)
		}
		week = week.AddDate(0, 0, 7)
	}
	return shifts
}
