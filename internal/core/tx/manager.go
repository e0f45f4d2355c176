// Package tx provides transaction management abstractions.
// Domain services depend on Manager; the pgx implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
	"errors"
)

// Manager runs a function inside one database transaction.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopManager runs fn directly. Used by tests and by in-memory stores
// that provide their own atomicity.
type NoopManager struct{}

// RunInTransaction implements Manager.
func (NoopManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ErrCommitFailed wraps errors returned by COMMIT. After such an error the
// caller cannot tell whether the transaction was applied.
var ErrCommitFailed = errors.New("commit failed")
