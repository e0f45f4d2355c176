// Package numerator provides domain contracts for document numbering.
package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"handwerk/internal/core/apperror"
)

// Strategy defines how the trailing part of a document number is produced.
type Strategy int

const (
	// StrategyCounter allocates a monotonic per-prefix, per-year counter
	// (UPSERT ... RETURNING inside the creating transaction). Gapless and collision-free.
	StrategyCounter Strategy = iota

	// StrategyShortID uses the first characters of the document id, uppercased.
	// Needs no storage but is not collision-free.
	StrategyShortID
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyShortID:
		return "shortid"
	default:
		return "counter"
	}
}

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "counter":
		return StrategyCounter, nil
	case "shortid", "short_id":
		return StrategyShortID, nil
	default:
		return StrategyCounter, fmt.Errorf("unknown numbering strategy %q", s)
	}
}

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
}

// DefaultOptions returns standard options (Counter).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyCounter}
}

// Config holds numbering configuration per document type.
type Config struct {
	// Prefix added to all numbers ("AN", "RE")
	Prefix string

	// IncludeYear adds the year of the document date
	IncludeYear bool

	// PadWidth is the width of the trailing part (default 4)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns PREFIX-YEAR-XXXX numbering reset every year.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    4,
		ResetPeriod: "year",
	}
}

// Width returns the configured pad width or the default.
func (c Config) Width() int {
	if c.PadWidth <= 0 {
		return 4
	}
	return c.PadWidth
}

// Format assembles a number from its trailing part.
func (c Config) Format(period time.Time, suffix string) string {
	if c.IncludeYear {
		return fmt.Sprintf("%s-%s-%s", c.Prefix, period.Format("2006"), suffix)
	}
	return fmt.Sprintf("%s-%s", c.Prefix, suffix)
}

// FormatCounter assembles a number from a counter value.
func (c Config) FormatCounter(period time.Time, n int64) string {
	return c.Format(period, fmt.Sprintf("%0*d", c.Width(), n))
}

// Parsed is a document number split into its parts.
type Parsed struct {
	Prefix string
	Year   int
	Suffix string
}

// Parse splits PREFIX-YEAR-SUFFIX. It fails on placeholder numbers such as "AN-2026-".
func Parse(number string) (Parsed, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Parsed{}, fmt.Errorf("malformed document number %q", number)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 4 {
		return Parsed{}, fmt.Errorf("malformed year in document number %q", number)
	}
	return Parsed{Prefix: parts[0], Year: year, Suffix: parts[2]}, nil
}

// Counter returns the numeric suffix, or -1 when the suffix is not a counter.
func (p Parsed) Counter() int64 {
	n, err := strconv.ParseInt(p.Suffix, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// ShortIDAttempts bounds how often a document id is re-rolled when its short
// number is already taken.
const ShortIDAttempts = 5

// Rerollable reports whether a failed creation may be retried with a fresh id:
// the short id strategy is active and the number collided.
func Rerollable(opts Options, err error, attempt int) bool {
	if opts.Strategy != StrategyShortID || attempt >= ShortIDAttempts {
		return false
	}
	appErr, ok := apperror.AsAppError(err)
	return ok && appErr.Code == apperror.CodeDuplicate && appErr.Details["field"] == "number"
}
