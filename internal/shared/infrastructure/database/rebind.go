package database

import (
	"strconv"
	"strings"
)

// Rebind rewrites `?` placeholders into the driver's native form:
// unchanged for SQLite, `$1..$n` for PostgreSQL. Repositories write
// queries once with `?` and rebind at execution time.
func Rebind(driver Driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}
