package commands

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
)

func TestCreateEvent(t *testing.T) {
	t.Run("creates and records audit plus notification", func(t *testing.T) {
		f := newFixture()
		h := NewCreateEventHandler(f.deps)

		id, err := h.Handle(context.Background(), f.principal, CreateEventCommand{
			Start: in(time.Hour),
			End:   in(2 * time.Hour),
			User:  "jdoe",
			Team:  "t",
			Role:  "primary",
		})
		require.NoError(t, err)
		require.NotEqual(t, id.String(), "00000000-0000-0000-0000-000000000000")

		stored, err := f.events.FindByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, f.jdoe.ID(), stored.UserID())

		require.Len(t, f.sink.recorded, 1)
		n := f.sink.recorded[0]
		assert.Equal(t, notificationDomain.ActionEventCreated, n.Action)
		assert.Equal(t, "t", n.TeamName)
		assert.Equal(t, "jdoe", n.Owner)
		assert.Equal(t, []string{f.jdoe.ID().String()}, uuidStrings(n.AffectedUsers))
	})

	t.Run("start equal to end is a bad request", func(t *testing.T) {
		f := newFixture()
		h := NewCreateEventHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, CreateEventCommand{
			Start: in(time.Hour),
			End:   in(time.Hour),
			User:  "jdoe", Team: "t", Role: "primary",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})

	t.Run("past start beyond grace is a bad request", func(t *testing.T) {
		f := newFixture()
		h := NewCreateEventHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, CreateEventCommand{
			Start: in(-core.GracePeriod - time.Hour),
			End:   in(time.Hour),
			User:  "jdoe", Team: "t", Role: "primary",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})

	t.Run("unknown role surfaces as conflict", func(t *testing.T) {
		f := newFixture()
		h := NewCreateEventHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, CreateEventCommand{
			Start: in(time.Hour),
			End:   in(2 * time.Hour),
			User:  "jdoe", Team: "t", Role: "tertiary",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindConflict, core.KindOf(err))
		assert.Contains(t, err.Error(), "role tertiary not found")
	})

	t.Run("user outside the team is rejected", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.members.RemoveUser(context.Background(), f.team.ID(), f.smith.ID()))
		h := NewCreateEventHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, CreateEventCommand{
			Start: in(time.Hour),
			End:   in(2 * time.Hour),
			User:  "asmith", Team: "t", Role: "primary",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})
}

func TestCreateLinkedEvents(t *testing.T) {
	t.Run("shares one link id across the group", func(t *testing.T) {
		f := newFixture()
		h := NewCreateLinkedEventsHandler(f.deps)

		result, err := h.Handle(context.Background(), f.principal, CreateLinkedEventsCommand{
			User: "jdoe", Team: "t", Role: "primary",
			Events: []LinkedEventSpec{
				{Start: in(time.Hour), End: in(2 * time.Hour)},
				{Start: in(2 * time.Hour), End: in(3 * time.Hour)},
			},
		})
		require.NoError(t, err)
		assert.Len(t, result.LinkID, 128)
		require.Len(t, result.EventIDs, 2)

		group, err := f.events.FindByLinkID(context.Background(), result.LinkID)
		require.NoError(t, err)
		require.Len(t, group, 2)
		assert.True(t, group[0].Start().Before(group[1].Start()))
	})

	t.Run("empty list is a bad request", func(t *testing.T) {
		f := newFixture()
		h := NewCreateLinkedEventsHandler(f.deps)

		_, err := h.Handle(context.Background(), f.principal, CreateLinkedEventsCommand{
			User: "jdoe", Team: "t", Role: "primary",
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
