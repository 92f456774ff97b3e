package commands

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncall/oncall/internal/core"
)

func TestOverrideEvents(t *testing.T) {
	t.Run("interior override splits the event into three", func(t *testing.T) {
		f := newFixture()
		event := f.seedEvent(f.jdoe, in(1*time.Hour), in(11*time.Hour))
		h := NewOverrideEventsHandler(f.deps)

		result, err := h.Handle(context.Background(), f.principal, OverrideEventsCommand{
			Start:    in(4 * time.Hour),
			End:      in(7 * time.Hour),
			EventIDs: []uuid.UUID{event.ID()},
			User:     "asmith",
		})
		require.NoError(t, err)
		require.Len(t, result, 3)

		assert.Equal(t, in(1*time.Hour), result[0].Start())
		assert.Equal(t, in(4*time.Hour), result[0].End())
		assert.Equal(t, f.jdoe.ID(), result[0].UserID())

		assert.Equal(t, in(4*time.Hour), result[1].Start())
		assert.Equal(t, in(7*time.Hour), result[1].End())
		assert.Equal(t, f.smith.ID(), result[1].UserID())

		assert.Equal(t, in(7*time.Hour), result[2].Start())
		assert.Equal(t, in(11*time.Hour), result[2].End())
		assert.Equal(t, f.jdoe.ID(), result[2].UserID())
	})

	t.Run("full cover deletes the original", func(t *testing.T) {
		f := newFixture()
		event := f.seedEvent(f.jdoe, in(2*time.Hour), in(3*time.Hour))
		h := NewOverrideEventsHandler(f.deps)

		result, err := h.Handle(context.Background(), f.principal, OverrideEventsCommand{
			Start:    in(1 * time.Hour),
			End:      in(4 * time.Hour),
			EventIDs: []uuid.UUID{event.ID()},
			User:     "asmith",
		})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, f.smith.ID(), result[0].UserID())
		// Truncated to the union of the listed events.
		assert.Equal(t, in(2*time.Hour), result[0].Start())
		assert.Equal(t, in(3*time.Hour), result[0].End())

		stored, _ := f.events.FindByID(context.Background(), event.ID())
		assert.Nil(t, stored)
	})

	t.Run("tail and head shortening across a consecutive run", func(t *testing.T) {
		f := newFixture()
		first := f.seedEvent(f.jdoe, in(1*time.Hour), in(2*time.Hour))
		second := f.seedEvent(f.jdoe, in(2*time.Hour), in(3*time.Hour))
		h := NewOverrideEventsHandler(f.deps)

		result, err := h.Handle(context.Background(), f.principal, OverrideEventsCommand{
			Start:    in(90 * time.Minute),
			End:      in(150 * time.Minute),
			EventIDs: []uuid.UUID{first.ID(), second.ID()},
			User:     "asmith",
		})
		require.NoError(t, err)
		require.Len(t, result, 3)
		assert.Equal(t, in(1*time.Hour), result[0].Start())
		assert.Equal(t, in(90*time.Minute), result[0].End())
		assert.Equal(t, f.smith.ID(), result[1].UserID())
		assert.Equal(t, in(150*time.Minute), result[2].Start())
		assert.Equal(t, in(3*time.Hour), result[2].End())
	})

	t.Run("non-consecutive events are rejected", func(t *testing.T) {
		f := newFixture()
		first := f.seedEvent(f.jdoe, in(1*time.Hour), in(2*time.Hour))
		second := f.seedEvent(f.jdoe, in(3*time.Hour), in(4*time.Hour))
		h := NewOverrideEventsHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, OverrideEventsCommand{
			Start:    in(90 * time.Minute),
			End:      in(210 * time.Minute),
			EventIDs: []uuid.UUID{first.ID(), second.ID()},
			User:     "asmith",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
		assert.Contains(t, err.Error(), "consecutive")
	})

	t.Run("mixed users are rejected", func(t *testing.T) {
		f := newFixture()
		first := f.seedEvent(f.jdoe, in(1*time.Hour), in(2*time.Hour))
		second := f.seedEvent(f.smith, in(2*time.Hour), in(3*time.Hour))
		h := NewOverrideEventsHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, OverrideEventsCommand{
			Start:    in(90 * time.Minute),
			End:      in(150 * time.Minute),
			EventIDs: []uuid.UUID{first.ID(), second.ID()},
			User:     "asmith",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})

	t.Run("disjoint interval is rejected", func(t *testing.T) {
		f := newFixture()
		event := f.seedEvent(f.jdoe, in(1*time.Hour), in(2*time.Hour))
		h := NewOverrideEventsHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, OverrideEventsCommand{
			Start:    in(5 * time.Hour),
			End:      in(6 * time.Hour),
			EventIDs: []uuid.UUID{event.ID()},
			User:     "asmith",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})
}
