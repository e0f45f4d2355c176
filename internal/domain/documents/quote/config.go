package quote

import (
	"time"

	"handwerk/internal/core/numerator"
)

const (
	// NumberPrefix of quote numbers (AN-2026-0001).
	NumberPrefix = "AN"

	// DefaultConvertLockTTL bounds how long a crashed conversion blocks the quote.
	DefaultConvertLockTTL = 30 * time.Second
)

// Config controls numbering and conversion locking.
type Config struct {
	Numbering      numerator.Options
	ConvertLockTTL time.Duration
}

// DefaultConfig returns counter numbering and a 30s conversion lock.
func DefaultConfig() Config {
	return Config{
		Numbering:      *numerator.DefaultOptions(),
		ConvertLockTTL: DefaultConvertLockTTL,
	}
}
