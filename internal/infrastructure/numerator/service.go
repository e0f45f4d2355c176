// Package numerator provides the PostgreSQL implementation of document numbering.
// It implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"handwerk/internal/core/id"
	corenumerator "handwerk/internal/core/numerator"
	"handwerk/internal/infrastructure/storage/postgres"
)

// Querier is the part of a pool or transaction the numerator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service allocates document numbers from sys_sequences.
// Counters are incremented with UPSERT ... RETURNING on the transaction in
// ctx, so a rolled back creation releases its number.
type Service struct {
	querier func(ctx context.Context) Querier
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator that runs on the transaction in ctx, or the pool.
func New(txm *postgres.TxManager) *Service {
	return &Service{querier: func(ctx context.Context) Querier { return txm.GetQuerier(ctx) }}
}

// NewWithQuerier creates a numerator bound to one querier.
func NewWithQuerier(q Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return q }}
}

const upsertSequenceSQL = `
	INSERT INTO sys_sequences (sequence_type, year, current_val)
	VALUES ($1, $2, 1)
	ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val`

const setSequenceSQL = `
	INSERT INTO sys_sequences (sequence_type, year, current_val)
	VALUES ($1, $2, $3)
	ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = $3
	RETURNING current_val`

// Next returns PREFIX-YEAR-XXXX for a document about to be created.
func (s *Service) Next(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, docID id.ID, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	if opts.Strategy == corenumerator.StrategyShortID {
		if id.IsNil(docID) {
			return "", fmt.Errorf("short id numbering needs a document id")
		}
		return cfg.Format(period, id.Short(docID, cfg.Width())), nil
	}

	seqType, year := sequenceKey(cfg, period)
	var num int64
	if err := s.querier(ctx).QueryRow(ctx, upsertSequenceSQL, seqType, year).Scan(&num); err != nil {
		return "", fmt.Errorf("next %s number: %w", cfg.Prefix, err)
	}
	return cfg.FormatCounter(period, num), nil
}

// SetNextNumber makes value the next counter handed out (data migration).
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next number must be positive, got %d", value)
	}
	seqType, year := sequenceKey(cfg, period)
	var current int64
	if err := s.querier(ctx).QueryRow(ctx, setSequenceSQL, seqType, year, value-1).Scan(&current); err != nil {
		return fmt.Errorf("set %s number: %w", cfg.Prefix, err)
	}
	return nil
}

// sequenceKey maps the reset period to the (sequence_type, year) row.
// Monthly counters append the month to the type; "never" uses year 0.
func sequenceKey(cfg corenumerator.Config, period time.Time) (string, int) {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("01")), period.Year()
	case "never":
		return cfg.Prefix, 0
	default:
		return cfg.Prefix, period.Year()
	}
}
