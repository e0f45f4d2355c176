package finance

import (
	"context"
	"fmt"
	"time"

	"handwerk/internal/core/apperror"
	appctx "handwerk/internal/core/context"
	"handwerk/internal/core/id"
	"handwerk/internal/core/tx"
	"handwerk/internal/domain"
	"handwerk/internal/domain/audit"
	"handwerk/internal/domain/files"
	"handwerk/pkg/logger"
)

const aggregateType = "Transaction"

// Service provides business logic for finance transactions.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     domain.AuditRecorder
	files     files.Storage
}

// NewService creates a new finance service. storage may be nil when receipt
// uploads are not needed.
func NewService(repo Repository, txm tx.Manager, recorder domain.AuditRecorder, storage files.Storage) *Service {
	if txm == nil {
		txm = tx.NoopManager{}
	}
	if recorder == nil {
		recorder = domain.NopAudit{}
	}
	return &Service{repo: repo, txManager: txm, audit: recorder, files: storage}
}

// Create derives net and VAT and stores the transaction.
func (s *Service) Create(ctx context.Context, t *Transaction) error {
	if err := t.Validate(ctx); err != nil {
		return err
	}
	if err := t.Derive(); err != nil {
		return err
	}
	audit.EnrichCreatedByDirect(ctx, &t.CreatedBy, &t.UpdatedBy)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return s.audit.Record(ctx, aggregateType, t.ID, "create", map[string]any{
			"type":   t.Type,
			"amount": t.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return apperror.NewCollaborator("create transaction", err)
	}
	logger.Info(ctx, "transaction created", "id", t.ID, "type", t.Type, "amount", t.Amount.StringFixed(2))
	return nil
}

// Get returns a transaction.
func (s *Service) Get(ctx context.Context, txID id.ID) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, txID)
	if err != nil {
		return nil, notFoundOr(err, txID)
	}
	return t, nil
}

// Update re-derives net and VAT and stores the transaction.
func (s *Service) Update(ctx context.Context, t *Transaction) error {
	if err := t.Validate(ctx); err != nil {
		return err
	}
	if err := t.Derive(); err != nil {
		return err
	}
	t.Touch(appctx.GetActor(ctx).Name)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, t); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return s.audit.Record(ctx, aggregateType, t.ID, "update", map[string]any{
			"amount":  t.Amount.StringFixed(2),
			"taxRate": int(t.TaxRate),
		})
	})
	if err != nil {
		return apperror.NewCollaborator("update transaction", err)
	}
	return nil
}

// Delete soft-deletes a transaction.
func (s *Service) Delete(ctx context.Context, txID id.ID) error {
	if _, err := s.Get(ctx, txID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, txID); err != nil {
		return apperror.NewCollaborator("delete transaction", err)
	}
	logger.Info(ctx, "transaction deleted", "id", txID)
	return nil
}

// Receipt is an uploaded voucher for a transaction.
type Receipt struct {
	Filename    string
	Content     []byte
	ContentType string
}

// AttachReceipt stores a receipt file and links it from the transaction.
// The stored file is removed again when the transaction cannot be updated.
func (s *Service) AttachReceipt(ctx context.Context, txID id.ID, r Receipt) (*Transaction, error) {
	if len(r.Content) == 0 {
		return nil, apperror.NewValidation("receipt is empty").WithDetail("field", "file")
	}
	if s.files == nil {
		return nil, apperror.NewInternal(fmt.Errorf("file storage not configured"))
	}
	t, err := s.Get(ctx, txID)
	if err != nil {
		return nil, err
	}

	path := files.AttachmentPath("receipts", txID, r.Filename)
	if err := s.files.Put(ctx, path, r.Content, r.ContentType); err != nil {
		return nil, apperror.NewCollaborator("store receipt", err)
	}
	url, err := s.files.URL(ctx, path)
	if err != nil {
		s.discardReceipt(ctx, path)
		return nil, apperror.NewCollaborator("receipt url", err)
	}

	t.ReceiptURL = &url
	t.Touch(appctx.GetActor(ctx).Name)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, t); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return s.audit.Record(ctx, aggregateType, t.ID, "receipt", map[string]any{"path": path})
	})
	if err != nil {
		s.discardReceipt(ctx, path)
		if apperror.IsConcurrentModification(err) {
			return nil, err
		}
		return nil, apperror.NewCollaborator("attach receipt", err)
	}
	logger.Info(ctx, "receipt attached", "id", t.ID, "path", path)
	return t, nil
}

func (s *Service) discardReceipt(ctx context.Context, path string) {
	if err := s.files.Delete(ctx, path); err != nil {
		logger.Warn(ctx, "failed to remove orphaned receipt", "path", path, "error", err)
	}
}

// List retrieves transactions with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error) {
	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return res, apperror.NewCollaborator("list transactions", err)
	}
	return res, nil
}

// VATReport builds the VAT figures for [from, to].
func (s *Service) VATReport(ctx context.Context, from, to time.Time) (VATReport, error) {
	if to.Before(from) {
		return VATReport{}, apperror.NewValidation("report end is before its start").
			WithDetail("field", "to")
	}
	txs, err := s.repo.ListBetween(ctx, from, to)
	if err != nil {
		return VATReport{}, apperror.NewCollaborator("list transactions", err)
	}
	return BuildVATReport(txs, from, to)
}

func notFoundOr(err error, key any) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound("transaction", key)
	}
	return apperror.NewCollaborator("get transaction", err)
}
