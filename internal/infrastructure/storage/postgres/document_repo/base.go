// Package document_repo provides PostgreSQL repositories for quotes and invoices.
package document_repo

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
	"handwerk/internal/domain/documents"
	"handwerk/internal/infrastructure/storage/postgres"
)

// Entity is implemented by the pointer types of stored documents.
type Entity interface {
	GetID() id.ID
	GetVersion() int
	SetVersion(v int)
	SetUpdatedAt(t time.Time)
}

// itemColumns are the stored fields of a line item, in insert order.
var itemColumns = postgres.ExtractDBColumns[documents.LineItem]()

// BaseDocumentRepo provides CRUD, line item storage and list queries for
// one document table and its item table.
type BaseDocumentRepo[T Entity] struct {
	txm        *postgres.TxManager
	tableName  string
	itemsTable string
	selectCols []string
	columns    postgres.Columns
	newFn      func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T Entity](
	txm *postgres.TxManager,
	tableName, itemsTable string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:        txm,
		tableName:  tableName,
		itemsTable: itemsTable,
		selectCols: selectCols,
		columns:    postgres.NewColumns(selectCols...),
		newFn:      newFn,
	}
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// insertQuery builds the INSERT for entity.
func (r *BaseDocumentRepo[T]) insertQuery(entity T) squirrel.InsertBuilder {
	data := postgres.StructToMap(entity)
	return postgres.Builder().
		Insert(r.tableName).
		SetMap(postgres.Pick(data, r.selectCols))
}

// Create inserts a new document. A taken number is reported as Duplicate.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	sql, args, err := r.insertQuery(entity).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			number, _ := postgres.StructToMap(entity)["number"].(string)
			return apperror.NewDuplicate(r.tableName, "number", number)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// updateQuery builds the optimistic-lock UPDATE for entity.
func (r *BaseDocumentRepo[T]) updateQuery(entity T) squirrel.UpdateBuilder {
	data := postgres.StructToMap(entity)
	return postgres.Builder().
		Update(r.tableName).
		SetMap(postgres.Pick(data, r.selectCols, "id", "created_at", "created_by", "version", "updated_at")).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entity.GetID()}).
		Where(squirrel.Eq{"version": entity.GetVersion()}).
		Suffix("RETURNING version, updated_at")
}

// Update writes the header with optimistic locking and syncs the new
// version into entity.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, entity T) error {
	sql, args, err := r.updateQuery(entity).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	var (
		version   int
		updatedAt time.Time
	)
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&version, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewConcurrentModification(r.tableName, entity.GetID())
		}
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}

	entity.SetVersion(version)
	entity.SetUpdatedAt(updatedAt)
	return nil
}

// Delete soft-deletes a document.
func (r *BaseDocumentRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
	sql, args, err := postgres.Builder().
		Update(r.tableName).
		Set("deletion_mark", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tableName, entityID.String())
	}
	return nil
}

func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

func (r *BaseDocumentRepo[T]) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	entity := r.newFn()
	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.tableName, key)
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return entity, nil
}

// GetByID retrieves a document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}), entityID.String())
}

// GetByNumber retrieves a document by number.
func (r *BaseDocumentRepo[T]) GetByNumber(ctx context.Context, number string) (T, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"number": number}), number)
}

// GetForUpdate retrieves a document and locks its row until the
// transaction in ctx ends.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	if r.txm.GetTx(ctx) == nil {
		var zero T
		return zero, fmt.Errorf("get for update on %s requires transaction context", r.tableName)
	}
	return r.getOne(ctx,
		r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"),
		entityID.String())
}

// GetLines loads the line items of a document in order.
func (r *BaseDocumentRepo[T]) GetLines(ctx context.Context, docID id.ID) (documents.Lines, error) {
	sql, args, err := postgres.Builder().
		Select(itemColumns...).
		From(r.itemsTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []documents.LineItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines of %s: %w", r.tableName, err)
	}
	return documents.Lines(lines), nil
}

// insertLinesQuery builds one multi-row INSERT numbering items from 1.
func (r *BaseDocumentRepo[T]) insertLinesQuery(docID id.ID, lines documents.Lines) squirrel.InsertBuilder {
	cols := append([]string{"document_id", "line_no"}, itemColumns...)
	q := postgres.Builder().Insert(r.itemsTable).Columns(cols...)
	for i, item := range lines {
		data := postgres.StructToMap(item)
		values := make([]any, 0, len(cols))
		values = append(values, docID, i+1)
		for _, col := range itemColumns {
			values = append(values, data[col])
		}
		q = q.Values(values...)
	}
	return q
}

// SaveLines replaces all items of a document.
func (r *BaseDocumentRepo[T]) SaveLines(ctx context.Context, docID id.ID, lines documents.Lines) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.querier(ctx)
		if _, err := q.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", r.itemsTable), docID); err != nil {
			return fmt.Errorf("clear lines of %s: %w", r.tableName, err)
		}
		if len(lines) == 0 {
			return nil
		}

		sql, args, err := r.insertLinesQuery(docID, lines).ToSql()
		if err != nil {
			return fmt.Errorf("build lines insert: %w", err)
		}
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert lines of %s: %w", r.tableName, err)
		}
		return nil
	})
}

// listQuery applies the common filter, extra conditions and paging.
// The returned count query ignores paging.
func (r *BaseDocumentRepo[T]) listQuery(f domain.ListFilter, conds ...squirrel.Sqlizer) (squirrel.SelectBuilder, squirrel.SelectBuilder, error) {
	q := postgres.ApplyCommon(r.baseSelect(), f, "number", "customer_name")
	for _, c := range conds {
		q = q.Where(c)
	}

	q, err := postgres.ApplyFilters(q, f.AdvancedFilters, r.columns)
	if err != nil {
		return q, q, err
	}

	count := postgres.Builder().Select("COUNT(*)").FromSelect(q, "sub")

	orderBy, err := postgres.OrderBy(f.OrderBy, "date DESC", r.columns)
	if err != nil {
		return q, count, err
	}
	return postgres.Page(q.OrderBy(orderBy, "id"), f), count, nil
}

// List retrieves documents matching f and the extra conditions.
func (r *BaseDocumentRepo[T]) List(ctx context.Context, f domain.ListFilter, conds ...squirrel.Sqlizer) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: f.Limit, Offset: f.Offset}

	q, countQ, err := r.listQuery(f, conds...)
	if err != nil {
		return result, err
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return result, nil
}
