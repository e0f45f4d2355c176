// Package catalog_repo provides PostgreSQL repositories for reference data.
package catalog_repo

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
	"handwerk/internal/infrastructure/storage/postgres"
)

// Entity is implemented by the pointer types of stored catalog entries.
type Entity interface {
	GetID() id.ID
	GetVersion() int
	SetVersion(v int)
	SetUpdatedAt(t time.Time)
}

// BaseCatalogRepo provides common CRUD operations for catalog entities.
// Codes are unique among live rows.
type BaseCatalogRepo[T Entity] struct {
	txm        *postgres.TxManager
	tableName  string
	selectCols []string
	columns    postgres.Columns
	newFn      func() T
}

// NewBaseCatalogRepo creates a new base catalog repository.
func NewBaseCatalogRepo[T Entity](
	txm *postgres.TxManager,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txm:        txm,
		tableName:  tableName,
		selectCols: selectCols,
		columns:    postgres.NewColumns(selectCols...),
		newFn:      newFn,
	}
}

func (r *BaseCatalogRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// Create inserts a new entity.
func (r *BaseCatalogRepo[T]) Create(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)
	sql, args, err := postgres.Builder().
		Insert(r.tableName).
		SetMap(postgres.Pick(data, r.selectCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			code, _ := data["code"].(string)
			return apperror.NewDuplicate(r.tableName, "code", code)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

func (r *BaseCatalogRepo[T]) updateQuery(entity T) squirrel.UpdateBuilder {
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

// Update modifies an existing entity with optimistic locking.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, entity T) error {
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
		if postgres.IsUniqueViolation(err) {
			code, _ := postgres.StructToMap(entity)["code"].(string)
			return apperror.NewDuplicate(r.tableName, "code", code)
		}
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	entity.SetVersion(version)
	entity.SetUpdatedAt(updatedAt)
	return nil
}

// Delete sets the deletion mark.
func (r *BaseCatalogRepo[T]) Delete(ctx context.Context, entityID id.ID) error {
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

func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// FindOne runs q and scans a single row.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
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

// GetByID retrieves an entity by ID, including marked ones.
func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}), entityID.String())
}

// GetByCode retrieves a live entity by code.
func (r *BaseCatalogRepo[T]) GetByCode(ctx context.Context, code string) (T, error) {
	return r.FindOne(ctx,
		r.baseSelect().Where(squirrel.Eq{"code": code, "deletion_mark": false}),
		code)
}

// GetByIDs returns the live entities among ids. Missing ids are skipped.
func (r *BaseCatalogRepo[T]) GetByIDs(ctx context.Context, ids []id.ID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": ids, "deletion_mark": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []T
	if err := pgxscan.Select(ctx, r.querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s by ids: %w", r.tableName, err)
	}
	return out, nil
}

func (r *BaseCatalogRepo[T]) listQuery(f domain.ListFilter) (squirrel.SelectBuilder, squirrel.SelectBuilder, error) {
	q := postgres.ApplyCommon(r.baseSelect(), domain.ListFilter{
		IDs:            f.IDs,
		Search:         f.Search,
		IncludeDeleted: f.IncludeDeleted,
	}, "code", "name")

	q, err := postgres.ApplyFilters(q, f.AdvancedFilters, r.columns)
	if err != nil {
		return q, q, err
	}
	count := postgres.Builder().Select("COUNT(*)").FromSelect(q, "sub")

	orderBy := f.OrderBy
	if orderBy == "-date" {
		orderBy = ""
	}
	order, err := postgres.OrderBy(orderBy, "code ASC", r.columns)
	if err != nil {
		return q, count, err
	}
	return postgres.Page(q.OrderBy(order), f), count, nil
}

// List retrieves entities with filtering and pagination.
func (r *BaseCatalogRepo[T]) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: f.Limit, Offset: f.Offset}

	q, countQ, err := r.listQuery(f)
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
