package persistence

import (
	"fmt"
	"strconv"

	domain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
)

// filterSpec is one row of the static filter table: the column a field
// maps to and whether its raw value parses as an integer. Every field
// accepts the same operators.
// This replaces the original's runtime dictionary inspection.
type filterSpec struct {
	column  string
	numeric bool
}

var eventFilterTable = map[string]filterSpec{
	"id":          {column: "e.id"},
	"start":       {column: "e.start", numeric: true},
	"end":         {column: `e."end"`, numeric: true},
	"user":        {column: "u.name"},
	"full_name":   {column: "u.full_name"},
	"team":        {column: "t.name"},
	"team_id":     {column: "e.team_id"},
	"role":        {column: "ro.name"},
	"link_id":     {column: "e.link_id"},
	"schedule_id": {column: "e.schedule_id"},
	"note":        {column: "e.note"},
}

var filterOps = map[domain.FilterOp]string{
	domain.FilterEq: "=",
	domain.FilterNe: "!=",
	domain.FilterLt: "<",
	domain.FilterLe: "<=",
	domain.FilterGt: ">",
	domain.FilterGe: ">=",
}

// buildEventFilter translates parsed filters into a parameterized WHERE
// clause. Values are always bound, never interpolated.
func buildEventFilter(filters []domain.Filter) (string, []any, error) {
	var clauses []string
	var args []any
	for _, f := range filters {
		spec, ok := eventFilterTable[f.Field]
		if !ok {
			return "", nil, core.BadRequest("unknown filter field %s", f.Field)
		}
		var value any = f.Value
		if spec.numeric {
			n, err := strconv.ParseInt(f.Value, 10, 64)
			if err != nil {
				return "", nil, core.BadRequest("filter field %s requires an integer value", f.Field)
			}
			value = n
		}
		switch f.Op {
		case domain.FilterContains:
			clauses = append(clauses, spec.column+" LIKE ?")
			args = append(args, "%"+f.Value+"%")
		case domain.FilterStartswith:
			clauses = append(clauses, spec.column+" LIKE ?")
			args = append(args, f.Value+"%")
		case domain.FilterEndswith:
			clauses = append(clauses, spec.column+" LIKE ?")
			args = append(args, "%"+f.Value)
		default:
			op, ok := filterOps[f.Op]
			if !ok {
				return "", nil, core.BadRequest("unknown filter operator %s", f.Op)
			}
			clauses = append(clauses, fmt.Sprintf("%s %s ?", spec.column, op))
			args = append(args, value)
		}
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	where := clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args, nil
}
