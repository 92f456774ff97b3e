package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/oncall/oncall/internal/scheduling/domain"
)

func TestExpandShifts(t *testing.T) {
	weekly := []domain.ScheduleEvent{{StartOffset: 9 * time.Hour, Duration: 8 * time.Hour}}

	t.Run("emits one shift per week inside the window", func(t *testing.T) {
		shifts := ExpandShifts(weekly, monday, monday.AddDate(0, 0, 21), time.UTC)
		require.Len(t, shifts, 3)
		assert.Equal(t, monday.Add(9*time.Hour), shifts[0].Start())
		assert.Equal(t, monday.Add(17*time.Hour), shifts[0].End())
		assert.Equal(t, monday.AddDate(0, 0, 7).Add(9*time.Hour), shifts[1].Start())
	})

	t.Run("shifts before the window start are dropped", func(t *testing.T) {
		shifts := ExpandShifts(weekly, monday.Add(10*time.Hour), monday.AddDate(0, 0, 14), time.UTC)
		require.Len(t, shifts, 1)
		assert.Equal(t, monday.AddDate(0, 0, 7).Add(9*time.Hour), shifts[0].Start())
	})

	t.Run("empty template or inverted window yields nothing", func(t *testing.T) {
		assert.Empty(t, ExpandShifts(nil, monday, monday.AddDate(0, 0, 7), time.UTC))
		assert.Empty(t, ExpandShifts(weekly, monday, monday, time.UTC))
	})

	t.Run("offsets anchor to local wall time across DST", func(t *testing.T) {
		loc, err := time.LoadLocation("America/Los_Angeles")
		require.NoError(t, err)
		// 2023-11-05 ends PDT; the week that follows starts Monday the
		// 6th in PST. The shift still lands at 09:00 local.
		from := time.Date(2023, 11, 1, 0, 0, 0, 0, loc)
		shifts := ExpandShifts(weekly, from, from.AddDate(0, 0, 14), loc)
		require.NotEmpty(t, shifts)
		for _, s := range shifts {
			assert.Equal(t, 9, s.Start().In(loc).Hour())
		}
	})
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, monday, weekStart(monday, time.UTC))
	assert.Equal(t, monday, weekStart(monday.Add(36*time.Hour), time.UTC))
	sunday := monday.AddDate(0, 0, 6)
	assert.Equal(t, monday, weekStart(sunday.Add(23*time.Hour), time.UTC))
}
