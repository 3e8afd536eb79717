package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. A constraintName narrows the match to that constraint
// on Postgres; the generic markers cover Postgres and sqlite (tests), whose
// messages do not carry index names.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
