package repo

import (
	"fmt"
	"strings"
)

// FormatLimitOffset returns a LIMIT/OFFSET clause for the given values,
// omitting the parts that are zero. An empty string means no clause.
func FormatLimitOffset(limit, offset int) string {
	if limit > 0 && offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset)
	}
	if limit > 0 {
		return fmt.Sprintf("LIMIT %d", limit)
	}
	if offset > 0 {
		return fmt.Sprintf("OFFSET %d", offset)
	}
	return ""
}

// JoinWhere combines WHERE expressions with AND.
func JoinWhere(exprs ...string) string {
	if len(exprs) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(exprs, " AND ")
}
