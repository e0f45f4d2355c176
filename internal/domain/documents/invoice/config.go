package invoice

import "handwerk/internal/core/numerator"

const (
	// NumberPrefix of invoice numbers (RE-2026-0001).
	NumberPrefix = "RE"

	// DefaultDueDays is the payment term of new invoices.
	DefaultDueDays = 14
)

// Config controls numbering and payment terms.
type Config struct {
	DueDays   int
	Numbering numerator.Options
}

// DefaultConfig returns a 14 day term and counter numbering.
func DefaultConfig() Config {
	return Config{
		DueDays:   DefaultDueDays,
		Numbering: *numerator.DefaultOptions(),
	}
}

func (c Config) dueDays() int {
	if c.DueDays <= 0 {
		return DefaultDueDays
	}
	return c.DueDays
}
