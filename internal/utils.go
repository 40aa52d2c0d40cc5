package internal

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// sanitizeIdentifier quotes a possibly schema-qualified table name read from
// configuration. Stray quotes and blank segments are dropped.
func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	var ident pgx.Identifier
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '.' }) {
		if part = strings.Trim(part, ` "`); part != "" {
			ident = append(ident, part)
		}
	}
	if len(ident) == 0 {
		ident = pgx.Identifier{name}
	}
	return ident.Sanitize()
}
