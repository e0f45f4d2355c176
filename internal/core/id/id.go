// Package id provides UUIDv7 generation for all entities.
// Ids are generated before the first write, so a document number can be derived
// from its id in the same INSERT.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to V4 if the clock source fails
		return uuid.New()
	}
	return id
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

// Short returns the last n hex digits of the id, uppercased.
// The leading digits of a UUIDv7 are the timestamp and repeat for weeks;
// the trailing ones are random.
func Short(id ID, n int) string {
	s := strings.ReplaceAll(id.String(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return strings.ToUpper(s[len(s)-n:])
}
