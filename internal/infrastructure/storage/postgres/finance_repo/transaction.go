// Package finance_repo provides the PostgreSQL repository for booked
// income and expenses.
package finance_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"handwerk/internal/core/apperror"
	"handwerk/internal/core/id"
	"handwerk/internal/domain"
	"handwerk/internal/domain/finance"
	"handwerk/internal/infrastructure/storage/postgres"
)

const tableName = "fin_transactions"

// TransactionRepo implements finance.Repository.
type TransactionRepo struct {
	txm        *postgres.TxManager
	selectCols []string
	columns    postgres.Columns
}

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	cols := postgres.ExtractDBColumns[finance.Transaction]()
	return &TransactionRepo{
		txm:        txm,
		selectCols: cols,
		columns:    postgres.NewColumns(cols...),
	}
}

func (r *TransactionRepo) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().Select(r.selectCols...).From(tableName)
}

// Create inserts a transaction.
func (r *TransactionRepo) Create(ctx context.Context, t *finance.Transaction) error {
	sql, args, err := postgres.Builder().
		Insert(tableName).
		SetMap(postgres.Pick(postgres.StructToMap(t), r.selectCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", tableName, err)
	}
	return nil
}

// GetByID retrieves a transaction.
func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*finance.Transaction, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"id": txID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var t finance.Transaction
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(tableName, txID.String())
		}
		return nil, fmt.Errorf("get %s: %w", tableName, err)
	}
	return &t, nil
}

// Update writes a transaction with optimistic locking.
func (r *TransactionRepo) Update(ctx context.Context, t *finance.Transaction) error {
	sql, args, err := postgres.Builder().
		Update(tableName).
		SetMap(postgres.Pick(postgres.StructToMap(t), r.selectCols, "id", "created_at", "created_by", "version", "updated_at")).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": t.ID, "version": t.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&t.Version, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewConcurrentModification(tableName, t.ID)
		}
		return fmt.Errorf("update %s: %w", tableName, err)
	}
	return nil
}

// Delete sets the deletion mark.
func (r *TransactionRepo) Delete(ctx context.Context, txID id.ID) error {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx,
		`UPDATE fin_transactions SET deletion_mark = true, version = version + 1, updated_at = NOW() WHERE id = $1`,
		txID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(tableName, txID.String())
	}
	return nil
}

func (r *TransactionRepo) listQuery(f finance.ListFilter) (squirrel.SelectBuilder, squirrel.SelectBuilder, error) {
	q := postgres.ApplyCommon(r.baseSelect(), f.ListFilter, "description", "category")
	if len(f.Types) > 0 {
		q = q.Where(squirrel.Eq{"type": f.Types})
	}
	if f.Category != "" {
		q = q.Where(squirrel.Eq{"category": f.Category})
	}
	if f.ProjectID != "" {
		q = q.Where(squirrel.Eq{"project_id": f.ProjectID})
	}

	q, err := postgres.ApplyFilters(q, f.AdvancedFilters, r.columns)
	if err != nil {
		return q, q, err
	}
	count := postgres.Builder().Select("COUNT(*)").FromSelect(q, "sub")

	order, err := postgres.OrderBy(f.OrderBy, "date DESC", r.columns)
	if err != nil {
		return q, count, err
	}
	return postgres.Page(q.OrderBy(order, "id"), f.ListFilter), count, nil
}

// List retrieves transactions with filtering.
func (r *TransactionRepo) List(ctx context.Context, f finance.ListFilter) (domain.ListResult[*finance.Transaction], error) {
	result := domain.ListResult[*finance.Transaction]{Limit: f.Limit, Offset: f.Offset}

	q, countQ, err := r.listQuery(f)
	if err != nil {
		return result, err
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", tableName, err)
	}
	return result, nil
}

// ListBetween returns the live transactions dated within [from, to].
func (r *TransactionRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*finance.Transaction, error) {
	q, _, err := r.listQuery(finance.ListFilter{ListFilter: domain.ListFilter{
		DateFrom: &from,
		DateTo:   &to,
		OrderBy:  "date",
	}})
	if err != nil {
		return nil, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*finance.Transaction
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s between: %w", tableName, err)
	}
	return out, nil
}

var _ finance.Repository = (*TransactionRepo)(nil)
