package api

import (
	"net/url"
	"strconv"
	"strings"

	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
)

// reserved query parameters that are not filter fields.
var reservedParams = map[string]struct{}{
	"include_subscribed": {},
	"fields":             {},
	"limit":              {},
	"offset":             {},
}

var validOps = map[domain.FilterOp]struct{}{
	domain.FilterEq: {}, domain.FilterNe: {},
	domain.FilterLt: {}, domain.FilterLe: {},
	domain.FilterGt: {}, domain.FilterGe: {},
	domain.FilterContains: {}, domain.FilterStartswith: {}, domain.FilterEndswith: {},
}

// parseListQuery translates `field` / `field__op` query parameters into
// the typed ListQuery. Unknown operators are rejected here; unknown
// fields are rejected by the store's static filter table.
func parseListQuery(values url.Values) (domain.ListQuery, error) {
	q := domain.ListQuery{}
	for key, vals := range values {
		if _, ok := reservedParams[key]; ok {
			continue
		}
		if len(vals) == 0 {
			continue
		}
		field := key
		op := domain.FilterEq
		if idx := strings.Index(key, "__"); idx > 0 {
			field = key[:idx]
			op = domain.FilterOp(key[idx+2:])
			if _, ok := validOps[op]; !ok {
				return domain.ListQuery{}, core.BadRequest("unknown filter operator %s", op)
			}
		}
		q.Filters = append(q.Filters, domain.Filter{Field: field, Op: op, Value: vals[0]})
	}

	if v := values.Get("include_subscribed"); v != "" {
		q.IncludeSubscribed = v == "1" || strings.EqualFold(v, "true")
	}
	if v := values.Get("fields"); v != "" {
		q.Fields = strings.Split(v, ",")
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return domain.ListQuery{}, core.BadRequest("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return domain.ListQuery{}, core.BadRequest("offset must be a non-negative integer")
		}
		q.Offset = n
	}
	return q, nil
}
