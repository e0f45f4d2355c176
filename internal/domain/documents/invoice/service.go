package invoice

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"handwerk/internal/core/apperror"
	appctx "handwerk/internal/core/context"
	"handwerk/internal/core/id"
	"handwerk/internal/core/numerator"
	"handwerk/internal/core/tx"
	"handwerk/internal/domain"
	"handwerk/internal/domain/audit"
	"handwerk/internal/domain/documents"
	"handwerk/pkg/logger"
)

// AggregateType names invoices in events and audit rows.
const AggregateType = "Invoice"

// Deps are the collaborators of the invoice service.
type Deps struct {
	Repo      Repository
	Numerator numerator.Generator
	TxManager tx.Manager
	Articles  documents.ArticleResolver
	Events    domain.EventPublisher
	Audit     domain.AuditRecorder
	Observer  domain.Observer
	Clock     func() time.Time
}

// Service provides business operations for invoices.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	articles  documents.ArticleResolver
	events    domain.EventPublisher
	audit     domain.AuditRecorder
	observer  domain.Observer
	now       func() time.Time
	hooks     *domain.HookRegistry[*Invoice]

	cfg atomic.Pointer[Config]
}

// NewService creates a new invoice service.
func NewService(deps Deps, cfg Config) *Service {
	s := &Service{
		repo:      deps.Repo,
		numerator: deps.Numerator,
		txManager: deps.TxManager,
		articles:  deps.Articles,
		events:    deps.Events,
		audit:     deps.Audit,
		observer:  deps.Observer,
		now:       deps.Clock,
		hooks:     domain.NewHookRegistry[*Invoice](),
	}
	s.cfg.Store(&cfg)
	if s.txManager == nil {
		s.txManager = tx.NoopManager{}
	}
	if s.events == nil {
		s.events = domain.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = domain.NopAudit{}
	}
	if s.observer == nil {
		s.observer = domain.NopObserver{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	audit.RegisterHooks(s.hooks, func(inv *Invoice) (*string, *string) { return &inv.CreatedBy, &inv.UpdatedBy })
	return s
}

// SetConfig replaces the configuration (hot reload of payment terms).
func (s *Service) SetConfig(cfg Config) {
	s.cfg.Store(&cfg)
}

func (s *Service) config() Config {
	return *s.cfg.Load()
}

// Create stores a standalone invoice and assigns its number.
func (s *Service) Create(ctx context.Context, doc *Invoice) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}
	if doc.Status == "" {
		doc.Status = StatusOpen
	}
	if doc.Status != StatusOpen && doc.Status != StatusDraft {
		return apperror.NewValidation("new invoices start as draft or offen").
			WithDetail("field", "status")
	}
	if doc.DueDate.IsZero() {
		doc.DueDate = doc.Date.AddDate(0, 0, s.config().dueDays())
	}
	if err := doc.Recalculate(); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	var events []domain.Event
	create := func(ctx context.Context) error {
		var err error
		events, err = s.insert(ctx, doc)
		return err
	}
	assigned := doc.HasNumber()
	err := s.txManager.RunInTransaction(ctx, create)
	for attempt := 1; err != nil && !assigned && numerator.Rerollable(s.config().Numbering, err, attempt); attempt++ {
		logger.Debug(ctx, "short invoice number taken, retrying with a new id", "number", doc.Number)
		doc.ID = id.New()
		doc.Number = ""
		err = s.txManager.RunInTransaction(ctx, create)
	}
	if err != nil {
		return apperror.NewCollaborator("create invoice", err)
	}
	s.committed(ctx, events)

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "invoice created", "id", doc.ID, "number", doc.Number)
	return nil
}

// CreateFromQuote creates the invoice of an accepted quote. It joins the
// transaction in ctx, so the caller's quote update commits with it.
func (s *Service) CreateFromQuote(ctx context.Context, src QuoteSource) (*Invoice, []domain.Event, error) {
	doc := NewFromQuote(src, s.now(), s.config().dueDays())
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return nil, nil, err
	}
	if err := doc.Recalculate(); err != nil {
		return nil, nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, nil, err
	}

	var events []domain.Event
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		events, err = s.insert(ctx, doc)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, events, nil
}

// insert numbers and writes a new invoice. Must run inside a transaction.
func (s *Service) insert(ctx context.Context, doc *Invoice) ([]domain.Event, error) {
	if !doc.HasNumber() {
		opts := s.config().Numbering
		number, err := s.numerator.Next(ctx, numerator.DefaultConfig(NumberPrefix), &opts, doc.ID, doc.Date)
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		doc.AssignNumber(number)
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	if err := s.repo.SaveLines(ctx, doc.ID, doc.Items); err != nil {
		return nil, fmt.Errorf("save lines: %w", err)
	}

	ev := s.event(doc, domain.EventInvoiceCreated, nil)
	if err := s.events.Publish(ctx, ev); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}
	if err := s.audit.Record(ctx, AggregateType, doc.ID, "create", map[string]any{
		"number": doc.Number,
		"status": doc.Status,
		"gross":  doc.Gross.StringFixed(2),
	}); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return []domain.Event{ev}, nil
}

// Get returns an invoice with items and freshly computed totals.
func (s *Service) Get(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, notFoundOr(err, docID)
	}
	if err := s.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByNumber returns an invoice by its number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	doc, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, notFoundOr(err, number)
	}
	if err := s.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) loadLines(ctx context.Context, doc *Invoice) error {
	lines, err := s.repo.GetLines(ctx, doc.ID)
	if err != nil {
		return apperror.NewCollaborator("get invoice lines", err)
	}
	doc.Items = lines
	return doc.Recalculate()
}

// List retrieves invoices with filtering. Totals come from the stored columns.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return res, apperror.NewCollaborator("list invoices", err)
	}
	return res, nil
}

// HeaderPatch changes invoice header fields. Nil fields are kept.
type HeaderPatch struct {
	Customer *documents.CustomerRef
	Project  *documents.ProjectRef
	Date     *time.Time
	DueDate  *time.Time
	Comment  *string
}

// UpdateHeader changes customer, project and dates of an editable invoice.
func (s *Service) UpdateHeader(ctx context.Context, docID id.ID, patch HeaderPatch) (*Invoice, error) {
	return s.mutate(ctx, docID, func(doc *Invoice) error {
		if err := doc.EnsureEditable(); err != nil {
			return err
		}
		if patch.Customer != nil {
			doc.CustomerRef = *patch.Customer
		}
		if patch.Project != nil {
			doc.ProjectRef = *patch.Project
		}
		if patch.Date != nil {
			doc.Date = patch.Date.UTC()
		}
		if patch.DueDate != nil {
			doc.DueDate = patch.DueDate.UTC()
		}
		if patch.Comment != nil {
			doc.Comment = *patch.Comment
		}
		return nil
	})
}

// AddItem appends a line item.
func (s *Service) AddItem(ctx context.Context, docID id.ID, item documents.LineItem) (*Invoice, error) {
	return s.mutate(ctx, docID, func(doc *Invoice) error {
		_, err := documents.AddItem(doc, item)
		return err
	})
}

// AddArticle appends the items of a catalog article (group articles expand to a set).
func (s *Service) AddArticle(ctx context.Context, docID, articleID id.ID, quantity documents.Numeric) (*Invoice, error) {
	if s.articles == nil {
		return nil, apperror.NewInternal(fmt.Errorf("article resolver not configured"))
	}
	article, err := s.articles.ResolveArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, docID, func(doc *Invoice) error {
		_, err := documents.AddFromArticle(doc, article, quantity.Decimal())
		return err
	})
}

// RemoveItem removes the item at index.
func (s *Service) RemoveItem(ctx context.Context, docID id.ID, index int) (*Invoice, error) {
	return s.mutate(ctx, docID, func(doc *Invoice) error {
		return documents.RemoveItem(doc, index)
	})
}

// UpdateItem merges patch into the item at index.
func (s *Service) UpdateItem(ctx context.Context, docID id.ID, index int, patch documents.ItemPatch) (*Invoice, error) {
	return s.mutate(ctx, docID, func(doc *Invoice) error {
		return documents.UpdateItem(doc, index, patch)
	})
}

// MoveItem reorders an item.
func (s *Service) MoveItem(ctx context.Context, docID id.ID, from, to int) (*Invoice, error) {
	return s.mutate(ctx, docID, func(doc *Invoice) error {
		return documents.MoveItem(doc, from, to)
	})
}

// Groups returns the grouped item view.
func (s *Service) Groups(ctx context.Context, docID id.ID) ([]documents.ItemGroup, error) {
	doc, err := s.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	return documents.GroupedView(doc), nil
}

// mutate loads the invoice under lock, applies fn and stores document and items.
func (s *Service) mutate(ctx context.Context, docID id.ID, fn func(doc *Invoice) error) (*Invoice, error) {
	var doc *Invoice
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return notFoundOr(err, docID)
		}
		if err := s.loadLines(ctx, doc); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		if err := doc.Recalculate(); err != nil {
			return err
		}
		if err := doc.Validate(ctx); err != nil {
			return err
		}
		doc.Touch(appctx.GetActor(ctx).Name)
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.NewCollaborator("update invoice", err)
	}
	return doc, nil
}

// Delete soft-deletes an invoice that was never sent.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return notFoundOr(err, docID)
	}
	if doc.Status != StatusDraft && doc.Status != StatusOpen {
		return apperror.NewDocumentNotEditable("invoice", docID.String(), string(doc.Status))
	}
	if err := s.hooks.RunBeforeDelete(ctx, doc); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, docID); err != nil {
		return apperror.NewCollaborator("delete invoice", err)
	}
	logger.Info(ctx, "invoice deleted", "id", doc.ID, "number", doc.Number)
	return nil
}

// Issue finalizes a draft invoice.
func (s *Service) Issue(ctx context.Context, docID id.ID) (*Invoice, error) {
	return s.transition(ctx, docID, domain.EventInvoiceIssued, func(doc *Invoice) error {
		return doc.Issue()
	})
}

// MarkSent records that the invoice went out.
func (s *Service) MarkSent(ctx context.Context, docID id.ID) (*Invoice, error) {
	return s.transition(ctx, docID, domain.EventInvoiceSent, func(doc *Invoice) error {
		return doc.MarkSent(s.now())
	})
}

// MarkPaid records payment at paidAt (now when zero).
func (s *Service) MarkPaid(ctx context.Context, docID id.ID, paidAt time.Time) (*Invoice, error) {
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	return s.transition(ctx, docID, domain.EventInvoicePaid, func(doc *Invoice) error {
		return doc.MarkPaid(paidAt)
	})
}

// MarkOverdue flags an invoice as overdue.
func (s *Service) MarkOverdue(ctx context.Context, docID id.ID) (*Invoice, error) {
	return s.transition(ctx, docID, domain.EventInvoiceOverdue, func(doc *Invoice) error {
		return doc.MarkOverdue(s.now())
	})
}

// SweepOverdue marks every offen or sent invoice whose due date has passed.
// It returns the number of invoices marked. One failing invoice does not stop the sweep.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	today := now.UTC().Truncate(24 * time.Hour)
	due, err := s.repo.ListDue(ctx, today, []Status{StatusOpen, StatusSent})
	if err != nil {
		return 0, apperror.NewCollaborator("list due invoices", err)
	}

	marked := 0
	var firstErr error
	for _, doc := range due {
		_, err := s.transition(ctx, doc.ID, domain.EventInvoiceOverdue, func(d *Invoice) error {
			return d.MarkOverdue(now)
		})
		if err != nil {
			if apperror.IsCode(err, apperror.CodeIllegalTransition) {
				continue // paid in the meantime
			}
			logger.Warn(ctx, "overdue sweep failed for invoice", "id", doc.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		marked++
	}

	logger.Info(ctx, "overdue sweep finished", "candidates", len(due), "marked", marked)
	return marked, firstErr
}

// transition applies a status change under row lock and records event and audit.
func (s *Service) transition(ctx context.Context, docID id.ID, eventType string, fn func(doc *Invoice) error) (*Invoice, error) {
	var (
		doc    *Invoice
		events []domain.Event
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return notFoundOr(err, docID)
		}
		from := doc.Status
		if err := fn(doc); err != nil {
			return err
		}
		doc.Touch(appctx.GetActor(ctx).Name)
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		ev := s.event(doc, eventType, map[string]any{"from": from})
		if err := s.events.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		if err := s.audit.Record(ctx, AggregateType, doc.ID, "status", map[string]any{
			"status": map[string]any{"old": from, "new": doc.Status},
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		events = append(events, ev)
		return nil
	})
	if err != nil {
		s.observer.Failed(ctx, eventType, err)
		return nil, apperror.NewCollaborator("invoice "+eventType, err)
	}
	s.committed(ctx, events)

	if err := s.hooks.RunAfterUpdate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}
	logger.Info(ctx, "invoice status changed", "id", doc.ID, "number", doc.Number, "status", doc.Status)

	if err := s.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) event(doc *Invoice, eventType string, extra map[string]any) domain.Event {
	payload := map[string]any{
		"number": doc.Number,
		"status": doc.Status,
		"gross":  doc.Gross.StringFixed(2),
	}
	if doc.QuoteID != nil {
		payload["quoteId"] = doc.QuoteID.String()
	}
	for k, v := range extra {
		payload[k] = v
	}
	return domain.Event{
		AggregateType: AggregateType,
		AggregateID:   doc.ID,
		EventType:     eventType,
		Payload:       payload,
	}
}

// Committed forwards events of a committed transaction to the observer.
// Used by the quote service after a conversion.
func (s *Service) Committed(ctx context.Context, events []domain.Event) {
	s.committed(ctx, events)
}

func (s *Service) committed(ctx context.Context, events []domain.Event) {
	for _, ev := range events {
		s.observer.Committed(ctx, ev)
	}
}

func notFoundOr(err error, key any) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound("invoice", key)
	}
	return apperror.NewCollaborator("get invoice", err)
}
