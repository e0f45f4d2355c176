package quote

import (
	"context"
	"errors"
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
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/domain/files"
	"handwerk/pkg/logger"
)

// AggregateType names quotes in events and audit rows.
const AggregateType = "Quote"

// InvoiceCreator creates the invoice of a converted quote inside the
// caller's transaction. *invoice.Service implements it.
type InvoiceCreator interface {
	CreateFromQuote(ctx context.Context, src invoice.QuoteSource) (*invoice.Invoice, []domain.Event, error)
	Committed(ctx context.Context, events []domain.Event)
}

// Deps are the collaborators of the quote service.
type Deps struct {
	Repo      Repository
	Invoices  InvoiceCreator
	Numerator numerator.Generator
	TxManager tx.Manager
	Files     files.Storage
	Locker    domain.Locker
	Articles  documents.ArticleResolver
	Events    domain.EventPublisher
	Audit     domain.AuditRecorder
	Observer  domain.Observer
	Clock     func() time.Time
}

// Service provides business operations for quotes.
type Service struct {
	repo      Repository
	invoices  InvoiceCreator
	numerator numerator.Generator
	txManager tx.Manager
	files     files.Storage
	locker    domain.Locker
	articles  documents.ArticleResolver
	events    domain.EventPublisher
	audit     domain.AuditRecorder
	observer  domain.Observer
	now       func() time.Time
	hooks     *domain.HookRegistry[*Quote]

	cfg atomic.Pointer[Config]
}

// NewService creates a new quote service.
func NewService(deps Deps, cfg Config) *Service {
	s := &Service{
		repo:      deps.Repo,
		invoices:  deps.Invoices,
		numerator: deps.Numerator,
		txManager: deps.TxManager,
		files:     deps.Files,
		locker:    deps.Locker,
		articles:  deps.Articles,
		events:    deps.Events,
		audit:     deps.Audit,
		observer:  deps.Observer,
		now:       deps.Clock,
		hooks:     domain.NewHookRegistry[*Quote](),
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
	audit.RegisterHooks(s.hooks, func(q *Quote) (*string, *string) { return &q.CreatedBy, &q.UpdatedBy })
	return s
}

// SetConfig replaces the configuration.
func (s *Service) SetConfig(cfg Config) {
	s.cfg.Store(&cfg)
}

func (s *Service) config() Config {
	return *s.cfg.Load()
}

// Create stores a new draft quote and assigns its number in the same write.
func (s *Service) Create(ctx context.Context, doc *Quote) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}
	doc.Status = StatusDraft
	if err := doc.Recalculate(); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	var ev domain.Event
	opts := s.config().Numbering
	assigned := doc.HasNumber()
	create := func(ctx context.Context) error {
		if !doc.HasNumber() {
			number, err := s.numerator.Next(ctx, numerator.DefaultConfig(NumberPrefix), &opts, doc.ID, doc.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.AssignNumber(number)
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		ev = s.event(doc, domain.EventQuoteCreated, nil)
		if err := s.events.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return s.audit.Record(ctx, AggregateType, doc.ID, "create", map[string]any{
			"number": doc.Number,
			"gross":  doc.Gross.StringFixed(2),
		})
	}
	err := s.txManager.RunInTransaction(ctx, create)
	for attempt := 1; err != nil && !assigned && numerator.Rerollable(opts, err, attempt); attempt++ {
		logger.Debug(ctx, "short quote number taken, retrying with a new id", "number", doc.Number)
		doc.ID = id.New()
		doc.Number = ""
		err = s.txManager.RunInTransaction(ctx, create)
	}
	if err != nil {
		return apperror.NewCollaborator("create quote", err)
	}
	s.observer.Committed(ctx, ev)

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "quote created", "id", doc.ID, "number", doc.Number)
	return nil
}

// Get returns a quote with items and freshly computed totals.
func (s *Service) Get(ctx context.Context, docID id.ID) (*Quote, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, notFoundOr(err, docID)
	}
	if err := s.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByNumber returns a quote by its number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Quote, error) {
	doc, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, notFoundOr(err, number)
	}
	if err := s.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) loadLines(ctx context.Context, doc *Quote) error {
	lines, err := s.repo.GetLines(ctx, doc.ID)
	if err != nil {
		return apperror.NewCollaborator("get quote lines", err)
	}
	doc.Items = lines
	return doc.Recalculate()
}

// List retrieves quotes with filtering. Totals come from the stored columns.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Quote], error) {
	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return res, apperror.NewCollaborator("list quotes", err)
	}
	return res, nil
}

// FindOpenAcceptedForProject returns the newest accepted, not yet invoiced
// quote of a project.
func (s *Service) FindOpenAcceptedForProject(ctx context.Context, projectID string) (*Quote, error) {
	filter := ListFilter{
		ListFilter: domain.ListFilter{OrderBy: "-date", Limit: 1},
		Statuses:   []Status{StatusAccepted},
		ProjectID:  projectID,
	}
	res, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, apperror.NewNotFound("accepted quote", projectID).WithDetail("projectId", projectID)
	}
	return s.Get(ctx, res.Items[0].ID)
}

// HeaderPatch changes quote header fields. Nil fields are kept.
type HeaderPatch struct {
	Customer *documents.CustomerRef
	Project  *documents.ProjectRef
	Date     *time.Time
	Comment  *string
}

// UpdateHeader changes customer, project and date of an editable quote.
func (s *Service) UpdateHeader(ctx context.Context, docID id.ID, patch HeaderPatch) (*Quote, error) {
	return s.mutate(ctx, docID, func(doc *Quote) error {
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
		if patch.Comment != nil {
			doc.Comment = *patch.Comment
		}
		return nil
	})
}

// AddItem appends a line item.
func (s *Service) AddItem(ctx context.Context, docID id.ID, item documents.LineItem) (*Quote, error) {
	return s.mutate(ctx, docID, func(doc *Quote) error {
		_, err := documents.AddItem(doc, item)
		return err
	})
}

// AddArticle appends the items of a catalog article (group articles expand to a set).
func (s *Service) AddArticle(ctx context.Context, docID, articleID id.ID, quantity documents.Numeric) (*Quote, error) {
	if s.articles == nil {
		return nil, apperror.NewInternal(fmt.Errorf("article resolver not configured"))
	}
	article, err := s.articles.ResolveArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, docID, func(doc *Quote) error {
		_, err := documents.AddFromArticle(doc, article, quantity.Decimal())
		return err
	})
}

// RemoveItem removes the item at index.
func (s *Service) RemoveItem(ctx context.Context, docID id.ID, index int) (*Quote, error) {
	return s.mutate(ctx, docID, func(doc *Quote) error {
		return documents.RemoveItem(doc, index)
	})
}

// UpdateItem merges patch into the item at index.
func (s *Service) UpdateItem(ctx context.Context, docID id.ID, index int, patch documents.ItemPatch) (*Quote, error) {
	return s.mutate(ctx, docID, func(doc *Quote) error {
		return documents.UpdateItem(doc, index, patch)
	})
}

// MoveItem reorders an item.
func (s *Service) MoveItem(ctx context.Context, docID id.ID, from, to int) (*Quote, error) {
	return s.mutate(ctx, docID, func(doc *Quote) error {
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

// mutate loads the quote under lock, applies fn and stores document and items.
func (s *Service) mutate(ctx context.Context, docID id.ID, fn func(doc *Quote) error) (*Quote, error) {
	var doc *Quote
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
			return fmt.Errorf("update quote: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Items); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.NewCollaborator("update quote", err)
	}
	return doc, nil
}

// Delete soft-deletes a draft quote.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return notFoundOr(err, docID)
	}
	if doc.Status != StatusDraft {
		return apperror.NewDocumentNotEditable("quote", docID.String(), string(doc.Status))
	}
	if err := s.hooks.RunBeforeDelete(ctx, doc); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, docID); err != nil {
		return apperror.NewCollaborator("delete quote", err)
	}
	logger.Info(ctx, "quote deleted", "id", doc.ID, "number", doc.Number)
	return nil
}

// MarkSent moves a draft quote to sent.
func (s *Service) MarkSent(ctx context.Context, docID id.ID) (*Quote, error) {
	return s.transition(ctx, docID, domain.EventQuoteSent, func(doc *Quote) error {
		return doc.MarkSent(s.now())
	})
}

// MarkDeclined moves a sent quote to declined.
func (s *Service) MarkDeclined(ctx context.Context, docID id.ID) (*Quote, error) {
	return s.transition(ctx, docID, domain.EventQuoteDeclined, func(doc *Quote) error {
		return doc.MarkDeclined(s.now())
	})
}

// Signature is the customer's acceptance: either a reference to an image
// that was stored elsewhere, or the PNG itself which is then uploaded.
type Signature struct {
	Ref string
	PNG []byte
}

// MarkAccepted moves a sent quote to accepted and records the signature URL.
// An uploaded signature is removed again when the transition does not commit.
func (s *Service) MarkAccepted(ctx context.Context, docID id.ID, sig Signature) (*Quote, error) {
	current, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, notFoundOr(err, docID)
	}
	if !CanTransition(current.Status, StatusAccepted) {
		return nil, apperror.NewIllegalTransition("quote", string(current.Status), string(StatusAccepted))
	}

	url := sig.Ref
	uploaded := ""
	if len(sig.PNG) > 0 {
		if s.files == nil {
			return nil, apperror.NewInternal(fmt.Errorf("file storage not configured"))
		}
		path := files.SignaturePath(docID)
		if err := s.files.Put(ctx, path, sig.PNG, "image/png"); err != nil {
			return nil, apperror.NewCollaborator("store signature", err)
		}
		uploaded = path
		url, err = s.files.URL(ctx, path)
		if err != nil {
			s.discardSignature(ctx, uploaded)
			return nil, apperror.NewCollaborator("signature url", err)
		}
	}

	actor := appctx.GetActor(ctx).Name
	doc, err := s.transition(ctx, docID, domain.EventQuoteAccepted, func(doc *Quote) error {
		return doc.MarkAccepted(url, actor, s.now())
	})
	if err != nil && uploaded != "" {
		s.discardSignature(ctx, uploaded)
	}
	return doc, err
}

func (s *Service) discardSignature(ctx context.Context, path string) {
	if err := s.files.Delete(ctx, path); err != nil {
		logger.Warn(ctx, "failed to remove orphaned signature", "path", path, "error", err)
	}
}

// transition applies a status change under row lock and records event and audit.
func (s *Service) transition(ctx context.Context, docID id.ID, eventType string, fn func(doc *Quote) error) (*Quote, error) {
	var (
		doc *Quote
		ev  domain.Event
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
			return fmt.Errorf("update quote: %w", err)
		}

		ev = s.event(doc, eventType, map[string]any{"from": from})
		if err := s.events.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return s.audit.Record(ctx, AggregateType, doc.ID, "status", map[string]any{
			"status": map[string]any{"old": from, "new": doc.Status},
		})
	})
	if err != nil {
		s.observer.Failed(ctx, eventType, err)
		return nil, apperror.NewCollaborator("quote "+eventType, err)
	}
	s.observer.Committed(ctx, ev)

	if err := s.hooks.RunAfterUpdate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}
	logger.Info(ctx, "quote status changed", "id", doc.ID, "number", doc.Number, "status", doc.Status)

	if err := s.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ConvertToInvoice turns an accepted quote into an invoice in status offen.
// Quote update and invoice creation commit in one transaction; at most one
// conversion per quote runs at a time.
func (s *Service) ConvertToInvoice(ctx context.Context, quoteID id.ID) (*invoice.Invoice, error) {
	if s.invoices == nil {
		return nil, apperror.NewInternal(fmt.Errorf("invoice service not configured"))
	}

	if s.locker != nil {
		key := "quote:convert:" + quoteID.String()
		ttl := s.config().ConvertLockTTL
		if ttl <= 0 {
			ttl = DefaultConvertLockTTL
		}
		token, ok, err := s.locker.TryLock(ctx, key, ttl)
		if err != nil {
			return nil, apperror.NewCollaborator("acquire conversion lock", err)
		}
		if !ok {
			return nil, apperror.NewConflict("quote is being converted").WithDetail("quote_id", quoteID.String())
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				logger.Warn(ctx, "release conversion lock", "quote_id", quoteID, "error", err)
			}
		}()
	}

	var (
		inv       *invoice.Invoice
		q         *Quote
		quoteEv   domain.Event
		invEvents []domain.Event
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		q, err = s.repo.GetForUpdate(ctx, quoteID)
		if err != nil {
			return notFoundOr(err, quoteID)
		}
		if q.Status != StatusAccepted {
			return apperror.NewIllegalTransition("quote", string(q.Status), string(StatusInvoiced))
		}
		if err := s.loadLines(ctx, q); err != nil {
			return err
		}

		inv, invEvents, err = s.invoices.CreateFromQuote(ctx, invoice.QuoteSource{
			QuoteID:     q.ID,
			QuoteNumber: q.Number,
			Customer:    q.CustomerRef,
			Project:     q.ProjectRef,
			Body:        q.Body,
		})
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		if err := q.MarkInvoiced(inv.ID); err != nil {
			return err
		}
		q.Touch(appctx.GetActor(ctx).Name)
		if err := s.repo.Update(ctx, q); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}

		quoteEv = s.event(q, domain.EventQuoteInvoiced, map[string]any{
			"invoiceId":     inv.ID.String(),
			"invoiceNumber": inv.Number,
		})
		if err := s.events.Publish(ctx, quoteEv); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return s.audit.Record(ctx, AggregateType, q.ID, "convert", map[string]any{
			"status":    map[string]any{"old": StatusAccepted, "new": StatusInvoiced},
			"invoiceId": inv.ID.String(),
		})
	})
	if err != nil {
		s.observer.Failed(ctx, domain.EventQuoteInvoiced, err)
		if errors.Is(err, tx.ErrCommitFailed) {
			return nil, apperror.NewPartialConversion(quoteID.String(), err)
		}
		return nil, apperror.NewCollaborator("convert quote", err)
	}

	s.observer.Committed(ctx, quoteEv)
	s.invoices.Committed(ctx, invEvents)

	logger.Info(ctx, "quote converted",
		"id", q.ID,
		"number", q.Number,
		"invoice_id", inv.ID,
		"invoice_number", inv.Number)
	return inv, nil
}

func (s *Service) event(doc *Quote, eventType string, extra map[string]any) domain.Event {
	payload := map[string]any{
		"number": doc.Number,
		"status": doc.Status,
		"gross":  doc.Gross.StringFixed(2),
	}
	if doc.ProjectID != "" {
		payload["projectId"] = doc.ProjectID
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

func notFoundOr(err error, key any) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound("quote", key)
	}
	return apperror.NewCollaborator("get quote", err)
}
