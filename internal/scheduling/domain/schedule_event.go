package domain

import (
	"errors"
	"sort"
	"time"
)

// Week is the cyclic period a ScheduleEvent's start offset is interpreted
// against, in the owning team's scheduling timezone.
const Week = 7 * 24 * time.Hour

var (
	// ErrScheduleEventOffsetOutOfRange is returned when a start offset falls
	// outside [0, Week).
	ErrScheduleEventOffsetOutOfRange = errors.New("schedule event start offset must be within one week")
	// ErrScheduleEventNonPositiveDuration is returned for a zero or negative duration.
	ErrScheduleEventNonPositiveDuration = errors.New("schedule event duration must be positive")
)

// ScheduleEvent is one (start_offset, duration) entry within a schedule's
// weekly template, interpreted in the owning team's scheduling timezone.
type ScheduleEvent struct {
	StartOffset time.Duration
	Duration    time.Duration
}

// NewScheduleEvent validates and constructs a ScheduleEvent.
func NewScheduleEvent(startOffset, duration time.Duration) (ScheduleEvent, error) {
	if startOffset < 0 || startOffset >= Week {
		return ScheduleEvent{}, ErrScheduleEventOffsetOutOfRange
	}
	if duration <= 0 {
		return ScheduleEvent{}, ErrScheduleEventNonPositiveDuration
	}
	return ScheduleEvent{StartOffset: startOffset, Duration: duration}, nil
}

// End returns the offset at which this event ends.
func (e ScheduleEvent) End() time.Duration { return e.StartOffset + e.Duration }

// NormalizeScheduleEvents sorts by start offset ascending and merges
// consecutive events whose boundaries touch (a.End() == b.StartOffset).
// The stored/returned form is always normalized this way; simple-mode
// classification is computed from it.
func NormalizeScheduleEvents(events []ScheduleEvent) []ScheduleEvent {
	if len(events) == 0 {
		return nil
	}
	sorted := make([]ScheduleEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartOffset < sorted[j].StartOffset })

	merged := []ScheduleEvent{sorted[0]}
	for _, e := range sorted[1:] {
		last := &merged[len(merged)-1]
		if last.End() == e.StartOffset {
			last.Duration += e.Duration
			continue
		}
		merged = append(merged, e)
	}
	return merged
}

// IsSimpleMode reports whether the normalized event set matches the
// closed "simple mode" shapes: either one event of duration 1 or 2
// weeks, or 7 or 14 events each of exactly 12 hours.
func IsSimpleMode(events []ScheduleEvent) bool {
	n := len(events)
	if n == 0 {
		return false
	}
	if n == 1 {
		d := events[0].Duration
		return d == Week || d == 2*Week
	}
	if n == 7 || n == 14 {
		for _, e := range events {
			if e.Duration != 12*time.Hour {
				return false
			}
		}
		return true
	}
	return false
}
