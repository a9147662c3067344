package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Driver messages for constraint violations that TranslateError does not
// always catch (wrapped errors, raw Exec).
var (
	uniqueViolations = []string{
		"duplicate key value violates unique constraint", // postgres 23505
		"Error 1062",               // mysql
		"UNIQUE constraint failed", // sqlite
	}
	foreignKeyViolations = []string{
		"violates foreign key constraint", // postgres 23503
		"Error 1452",                      // mysql
		"FOREIGN KEY constraint failed",   // sqlite
	}
)

// IsDuplicateKeyErr reports a unique-constraint violation on any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	return matches(err, gorm.ErrDuplicatedKey, uniqueViolations)
}

// IsForeignKeyErr reports a foreign-key violation on any supported dialect.
func IsForeignKeyErr(err error) bool {
	return matches(err, gorm.ErrForeignKeyViolated, foreignKeyViolations)
}

func matches(err, translated error, messages []string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, translated) {
		return true
	}
	msg := err.Error()
	for _, m := range messages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
