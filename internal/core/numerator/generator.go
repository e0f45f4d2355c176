package numerator

import (
	"context"
	"time"

	"handwerk/internal/core/id"
)

// Generator produces document numbers.
// Implementations live in the infrastructure layer.
type Generator interface {
	// Next returns the number for a document that is about to be created.
	// Pattern: PREFIX-YEAR-XXXX (e.g., RE-2026-0042 or RE-2026-019A).
	//
	// Counter implementations must use the transaction from ctx when present,
	// so a rolled back creation does not consume a number.
	Next(ctx context.Context, cfg Config, opts *Options, docID id.ID, period time.Time) (string, error)

	// SetNextNumber sets the counter value (for data migration).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
