package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	start := time.Unix(1000, 0)

	_, err := NewEvent(uuid.New(), uuid.New(), uuid.New(), start, start, nil, nil)
	assert.ErrorIs(t, err, ErrStartNotBeforeEnd)

	event, err := NewEvent(uuid.New(), uuid.New(), uuid.New(), start, start.Add(time.Hour), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, event.LinkID())
	assert.Len(t, event.DomainEvents(), 1)
}

func TestEventOverlaps(t *testing.T) {
	start := time.Unix(1000, 0)
	event, err := NewEvent(uuid.New(), uuid.New(), uuid.New(), start, start.Add(time.Hour), nil, nil)
	require.NoError(t, err)

	assert.True(t, event.Overlaps(start.Add(30*time.Minute), start.Add(2*time.Hour)))
	// Touching boundaries do not overlap: intervals are half-open.
	assert.False(t, event.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
	assert.False(t, event.Overlaps(start.Add(-time.Hour), start))
}

func TestEventEditBreaksLink(t *testing.T) {
	start := time.Unix(1000, 0)
	event, err := NewEvent(uuid.New(), uuid.New(), uuid.New(), start, start.Add(time.Hour), nil, nil)
	require.NoError(t, err)
	event.SetLinkID("deadbeef")

	previousUser := event.UserID()
	newUser := uuid.New()
	gotUser, _ := event.Edit(EditFields{UserID: &newUser})
	assert.Equal(t, previousUser, gotUser)
	assert.Equal(t, newUser, event.UserID())
	assert.Nil(t, event.LinkID())
}

func TestEventTruncate(t *testing.T) {
	start := time.Unix(1000, 0)
	event, err := NewEvent(uuid.New(), uuid.New(), uuid.New(), start, start.Add(time.Hour), nil, nil)
	require.NoError(t, err)

	newEnd := start.Add(30 * time.Minute)
	event.Truncate(nil, &newEnd)
	assert.Equal(t, newEnd, event.End())

	newStart := start.Add(10 * time.Minute)
	event.Truncate(&newStart, nil)
	assert.Equal(t, newStart, event.Start())
}
