// Package memory provides an in-process implementation of every repository,
// the transaction manager, numbering, outbox and audit. It backs the tests
// and the server when no database is configured.
//
// Transactions are serialized: RunInTransaction holds the store lock and
// restores a snapshot when fn fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/core/tx"
	"handwerk/internal/domain"
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/domain/finance"
)

// AuditEntry is a recorded audit row.
type AuditEntry struct {
	EntityType string
	EntityID   id.ID
	Action     string
	Changes    map[string]any
	Actor      string
	At         time.Time
}

type state struct {
	quotes       map[id.ID]quote.Quote
	quoteLines   map[id.ID]documents.Lines
	invoices     map[id.ID]invoice.Invoice
	invoiceLines map[id.ID]documents.Lines
	articles     map[id.ID]article.Article
	transactions map[id.ID]finance.Transaction
	counters     map[string]int64
	events       []domain.Event
	audit        []AuditEntry
}

func newState() *state {
	return &state{
		quotes:       make(map[id.ID]quote.Quote),
		quoteLines:   make(map[id.ID]documents.Lines),
		invoices:     make(map[id.ID]invoice.Invoice),
		invoiceLines: make(map[id.ID]documents.Lines),
		articles:     make(map[id.ID]article.Article),
		transactions: make(map[id.ID]finance.Transaction),
		counters:     make(map[string]int64),
	}
}

// clone copies the maps. Stored values are never mutated in place, so a
// shallow copy of each map is a full snapshot.
func (s *state) clone() *state {
	c := &state{
		quotes:       make(map[id.ID]quote.Quote, len(s.quotes)),
		quoteLines:   make(map[id.ID]documents.Lines, len(s.quoteLines)),
		invoices:     make(map[id.ID]invoice.Invoice, len(s.invoices)),
		invoiceLines: make(map[id.ID]documents.Lines, len(s.invoiceLines)),
		articles:     make(map[id.ID]article.Article, len(s.articles)),
		transactions: make(map[id.ID]finance.Transaction, len(s.transactions)),
		counters:     make(map[string]int64, len(s.counters)),
		events:       append([]domain.Event(nil), s.events...),
		audit:        append([]AuditEntry(nil), s.audit...),
	}
	for k, v := range s.quotes {
		c.quotes[k] = v
	}
	for k, v := range s.quoteLines {
		c.quoteLines[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.invoiceLines {
		c.invoiceLines[k] = v
	}
	for k, v := range s.articles {
		c.articles[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	return c
}

// Store is the in-memory database.
type Store struct {
	mu    sync.Mutex
	state *state

	faults     map[string]error
	commitHook func() error
	now        func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		state:  newState(),
		faults: make(map[string]error),
		now:    time.Now,
	}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	if s.commitHook != nil {
		if err := s.commitHook(); err != nil {
			s.state = snapshot
			return fmt.Errorf("%w: %v", tx.ErrCommitFailed, err)
		}
	}
	return nil
}

// view runs fn with the current state, taking the lock outside transactions.
func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// InjectFault makes the named operation (e.g. "quote.update") fail with err.
// A nil err removes the fault.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// OnCommit installs a hook run at commit. A returned error rolls the
// transaction back and is reported as a failed commit.
func (s *Store) OnCommit(hook func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = hook
}

// fault must be called with the state available (lock held or inside a transaction).
func (s *Store) fault(op string) error {
	return s.faults[op]
}

// Events returns the published events in order.
func (s *Store) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.state.events...)
}

// AuditLog returns the recorded audit rows in order.
func (s *Store) AuditLog() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.state.audit...)
}

var _ tx.Manager = (*Store)(nil)

// --- shared list helpers ---

func inDateRange(date time.Time, f domain.ListFilter) bool {
	if f.DateFrom != nil && date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && date.After(*f.DateTo) {
		return false
	}
	return true
}

func inIDs(docID id.ID, ids []id.ID) bool {
	if len(ids) == 0 {
		return true
	}
	for _, v := range ids {
		if v == docID {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// orderKey holds the sortable fields of a listed row.
type orderKey struct {
	number  string
	date    time.Time
	created time.Time
}

func sortRows[T any](rows []T, orderBy string, key func(T) orderKey) error {
	desc := strings.HasPrefix(orderBy, "-")
	field := strings.TrimLeft(strings.TrimSpace(orderBy), "+-")

	var less func(a, b orderKey) bool
	switch field {
	case "", "date":
		if orderBy == "" {
			desc = true
		}
		less = func(a, b orderKey) bool {
			if a.date.Equal(b.date) {
				return a.number < b.number
			}
			return a.date.Before(b.date)
		}
	case "number", "code":
		less = func(a, b orderKey) bool { return a.number < b.number }
	case "created_at":
		less = func(a, b orderKey) bool { return a.created.Before(b.created) }
	default:
		return apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := key(rows[i]), key(rows[j])
		if desc {
			return less(b, a)
		}
		return less(a, b)
	})
	return nil
}

func page[T any](rows []T, f domain.ListFilter) domain.ListResult[T] {
	res := domain.ListResult[T]{
		TotalCount: int64(len(rows)),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
	if f.Offset > 0 {
		if f.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[f.Offset:]
		}
	}
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	res.Items = rows
	if res.Items == nil {
		res.Items = []T{}
	}
	return res
}
