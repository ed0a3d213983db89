package durable

import "strings"

// isUniqueConstraintError reports whether err is a SQLite UNIQUE constraint
// violation. modernc.org/sqlite surfaces this as a message substring rather
// than a typed sentinel, so a string match is the only reliable check.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
