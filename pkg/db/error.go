package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Driver-specific fragments for unique violations. Postgres reports
// code 23505, MySQL 1062, SQLite 2067; gorm only translates some of them.
var duplicateKeyFragments = []string{
	"duplicate key value violates unique constraint",
	"Error 1062",
	"UNIQUE constraint failed",
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, fragment := range duplicateKeyFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
