package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncall/oncall/internal/core"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
)

func TestDeleteEvent(t *testing.T) {
	t.Run("member deletes a future event", func(t *testing.T) {
		f := newFixture()
		event := f.seedEvent(f.jdoe, in(time.Hour), in(2*time.Hour))
		h := NewDeleteEventHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, DeleteEventCommand{EventID: event.ID()})
		require.NoError(t, err)

		stored, _ := f.events.FindByID(context.Background(), event.ID())
		assert.Nil(t, stored)
		require.Len(t, f.sink.recorded, 1)
		assert.Equal(t, notificationDomain.ActionEventDeleted, f.sink.recorded[0].Action)
	})

	t.Run("deleting events in the past not allowed", func(t *testing.T) {
		f := newFixture()
		event := f.seedEvent(f.jdoe, in(-2*core.GracePeriod), in(-core.GracePeriod))
		h := NewDeleteEventHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, DeleteEventCommand{EventID: event.ID()})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
		assert.Contains(t, err.Error(), "deleting events in the past not allowed")

		stored, _ := f.events.FindByID(context.Background(), event.ID())
		assert.NotNil(t, stored)
	})

	t.Run("missing event is not found", func(t *testing.T) {
		f := newFixture()
		h := NewDeleteEventHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, DeleteEventCommand{EventID: f.jdoe.ID()})
		require.Error(t, err)
		assert.Equal(t, core.KindNotFound, core.KindOf(err))
	})
}

func TestDeleteLinkedGroup(t *testing.T) {
	t.Run("removes the whole group", func(t *testing.T) {
		f := newFixture()
		group := f.seedLinked(f.jdoe, NewLinkID(),
			[2]time.Time{in(time.Hour), in(2 * time.Hour)},
			[2]time.Time{in(2 * time.Hour), in(3 * time.Hour)})
		h := NewDeleteLinkedGroupHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, DeleteLinkedGroupCommand{LinkID: *group[0].LinkID()})
		require.NoError(t, err)
		assert.Empty(t, f.events.events)
	})

	t.Run("group with past minimum start is protected", func(t *testing.T) {
		f := newFixture()
		linkID := NewLinkID()
		f.seedLinked(f.jdoe, linkID,
			[2]time.Time{in(-2 * core.GracePeriod), in(time.Hour)},
			[2]time.Time{in(time.Hour), in(2 * time.Hour)})
		h := NewDeleteLinkedGroupHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, DeleteLinkedGroupCommand{LinkID: linkID})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
		assert.Len(t, f.events.events, 2)
	})
}
