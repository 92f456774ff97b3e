package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncall/oncall/internal/core"
)

func TestSwapEvents(t *testing.T) {
	t.Run("linked side keeps its link, single side loses it", func(t *testing.T) {
		f := newFixture()
		linkID := NewLinkID()
		group := f.seedLinked(f.jdoe, linkID,
			[2]time.Time{in(time.Hour), in(2 * time.Hour)},
			[2]time.Time{in(2 * time.Hour), in(3 * time.Hour)})
		single := f.seedEvent(f.smith, in(4*time.Hour), in(5*time.Hour))
		single.SetLinkID(NewLinkID())
		h := NewSwapEventsHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, SwapEventsCommand{
			First:  SwapSide{LinkID: linkID, Linked: true},
			Second: SwapSide{EventID: single.ID()},
		})
		require.NoError(t, err)

		for _, ev := range group {
			assert.Equal(t, f.smith.ID(), ev.UserID())
			require.NotNil(t, ev.LinkID())
			assert.Equal(t, linkID, *ev.LinkID())
		}
		assert.Equal(t, f.jdoe.ID(), single.UserID())
		assert.Nil(t, single.LinkID())
	})

	t.Run("swap twice restores the original assignment", func(t *testing.T) {
		f := newFixture()
		first := f.seedEvent(f.jdoe, in(time.Hour), in(2*time.Hour))
		second := f.seedEvent(f.smith, in(3*time.Hour), in(4*time.Hour))
		h := NewSwapEventsHandler(f.deps)

		cmd := SwapEventsCommand{
			First:  SwapSide{EventID: first.ID()},
			Second: SwapSide{EventID: second.ID()},
		}
		require.NoError(t, h.Handle(context.Background(), f.principal, cmd))
		assert.Equal(t, f.smith.ID(), first.UserID())
		assert.Equal(t, f.jdoe.ID(), second.UserID())

		require.NoError(t, h.Handle(context.Background(), f.principal, cmd))
		assert.Equal(t, f.jdoe.ID(), first.UserID())
		assert.Equal(t, f.smith.ID(), second.UserID())
	})

	t.Run("past events cannot be swapped", func(t *testing.T) {
		f := newFixture()
		first := f.seedEvent(f.jdoe, in(-2*core.GracePeriod), in(time.Hour))
		second := f.seedEvent(f.smith, in(3*time.Hour), in(4*time.Hour))
		h := NewSwapEventsHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, SwapEventsCommand{
			First:  SwapSide{EventID: first.ID()},
			Second: SwapSide{EventID: second.ID()},
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})

	t.Run("linked side with mixed users is rejected", func(t *testing.T) {
		f := newFixture()
		linkID := NewLinkID()
		group := f.seedLinked(f.jdoe, linkID,
			[2]time.Time{in(time.Hour), in(2 * time.Hour)},
			[2]time.Time{in(2 * time.Hour), in(3 * time.Hour)})
		group[1].Reassign(f.smith.ID())
		other := f.seedEvent(f.smith, in(4*time.Hour), in(5*time.Hour))
		h := NewSwapEventsHandler(f.deps)

		err := h.Handle(context.Background(), f.principal, SwapEventsCommand{
			First:  SwapSide{LinkID: linkID, Linked: true},
			Second: SwapSide{EventID: other.ID()},
		})
		require.Error(t, err)
		assert.Equal(t, core.KindBadRequest, core.KindOf(err))
	})
}
