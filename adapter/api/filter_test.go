package api

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/oncall/oncall/internal/calendar/domain"
)

func TestParseListQuery(t *testing.T) {
	t.Run("bare field means equality", func(t *testing.T) {
		q, err := parseListQuery(url.Values{"team": {"ops"}})
		require.NoError(t, err)
		require.Len(t, q.Filters, 1)
		assert.Equal(t, domain.Filter{Field: "team", Op: domain.FilterEq, Value: "ops"}, q.Filters[0])
	})

	t.Run("double-underscore selects the operator", func(t *testing.T) {
		q, err := parseListQuery(url.Values{
			"start__ge":        {"1000"},
			"end__lt":          {"2000"},
			"user__startswith": {"j"},
		})
		require.NoError(t, err)
		assert.Len(t, q.Filters, 3)
		ops := map[string]domain.FilterOp{}
		for _, f := range q.Filters {
			ops[f.Field] = f.Op
		}
		assert.Equal(t, domain.FilterGe, ops["start"])
		assert.Equal(t, domain.FilterLt, ops["end"])
		assert.Equal(t, domain.FilterStartswith, ops["user"])
	})

	t.Run("unknown operator is rejected", func(t *testing.T) {
		_, err := parseListQuery(url.Values{"start__between": {"1,2"}})
		assert.Error(t, err)
	})

	t.Run("reserved params are not filters", func(t *testing.T) {
		q, err := parseListQuery(url.Values{
			"include_subscribed": {"1"},
			"limit":              {"10"},
			"offset":             {"5"},
			"fields":             {"id,start"},
		})
		require.NoError(t, err)
		assert.Empty(t, q.Filters)
		assert.True(t, q.IncludeSubscribed)
		assert.Equal(t, 10, q.Limit)
		assert.Equal(t, 5, q.Offset)
		assert.Equal(t, []string{"id", "start"}, q.Fields)
	})

	t.Run("negative limit is rejected", func(t *testing.T) {
		_, err := parseListQuery(url.Values{"limit": {"-1"}})
		assert.Error(t, err)
	})
}
