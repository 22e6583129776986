package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// PostgreSQL (error code 23505)
	if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsPermissionDeniedErr reports whether the statement was rejected by the
// store's privilege model, as opposed to failing transiently.
func IsPermissionDeniedErr(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	// PostgreSQL (error code 42501)
	if strings.Contains(msg, "permission denied") {
		return true
	}

	// MySQL (error code 1142)
	if strings.Contains(msg, "Error 1142") {
		return true
	}

	// SQLite (error codes 8 and 23)
	if strings.Contains(msg, "attempt to write a readonly database") ||
		strings.Contains(msg, "authorization denied") {
		return true
	}

	return false
}
