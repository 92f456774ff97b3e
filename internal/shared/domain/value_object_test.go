package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeRange(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates a valid range", func(t *testing.T) {
		tr, err := NewTimeRange(now, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, now, tr.Start())
		assert.Equal(t, now.Add(time.Hour), tr.End())
		assert.Equal(t, time.Hour, tr.Duration())
	})

	t.Run("rejects start equal to end", func(t *testing.T) {
		_, err := NewTimeRange(now, now)
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
	})

	t.Run("rejects start after end", func(t *testing.T) {
		_, err := NewTimeRange(now, now.Add(-time.Hour))
		assert.ErrorIs(t, err, ErrInvalidTimeRange)
	})
}

func TestTimeRange_Overlaps(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, _ := NewTimeRange(base, base.Add(2*time.Hour))

	t.Run("returns true for overlapping ranges", func(t *testing.T) {
		b, _ := NewTimeRange(base.Add(time.Hour), base.Add(3*time.Hour))
		assert.True(t, a.Overlaps(b))
		assert.True(t, b.Overlaps(a))
	})

	t.Run("returns false for adjacent ranges", func(t *testing.T) {
		b, _ := NewTimeRange(base.Add(2*time.Hour), base.Add(3*time.Hour))
		assert.False(t, a.Overlaps(b))
		assert.False(t, b.Overlaps(a))
	})

	t.Run("returns false for disjoint ranges", func(t *testing.T) {
		b, _ := NewTimeRange(base.Add(5*time.Hour), base.Add(6*time.Hour))
		assert.False(t, a.Overlaps(b))
	})
}

func TestTimeRange_Contains(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr, _ := NewTimeRange(base, base.Add(time.Hour))

	assert.True(t, tr.Contains(base))
	assert.True(t, tr.Contains(base.Add(30*time.Minute)))
	assert.False(t, tr.Contains(base.Add(time.Hour)))
	assert.False(t, tr.Contains(base.Add(-time.Minute)))
}

func TestTimeRange_Equals(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, _ := NewTimeRange(base, base.Add(time.Hour))

	t.Run("returns true for equal ranges", func(t *testing.T) {
		b, _ := NewTimeRange(base, base.Add(time.Hour))
		assert.True(t, a.Equals(b))
	})

	t.Run("returns false for different ranges", func(t *testing.T) {
		b, _ := NewTimeRange(base, base.Add(2*time.Hour))
		assert.False(t, a.Equals(b))
	})

	t.Run("returns false for different value object types", func(t *testing.T) {
		assert.False(t, a.Equals(mockValueObject{value: "x"}))
	})
}

// mockValueObject is a test double for exercising Equals against a
// foreign ValueObject implementation.
type mockValueObject struct {
	value string
}

func (m mockValueObject) Equals(other ValueObject) bool {
	if otherMock, ok := other.(mockValueObject); ok {
		return m.value == otherMock.value
	}
	return false
}
