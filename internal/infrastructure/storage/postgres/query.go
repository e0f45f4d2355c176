package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"handwerk/internal/core/apperror"
	"handwerk/internal/domain"
	"handwerk/internal/domain/filter"
)

// Builder returns a squirrel builder with $n placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Columns whitelists the columns a list query may filter and sort on.
// Aliases map API field names to column names ("group" -> "article_group").
type Columns struct {
	allowed map[string]struct{}
	aliases map[string]string
}

// NewColumns builds a whitelist from column names.
func NewColumns(cols ...string) Columns {
	c := Columns{allowed: make(map[string]struct{}, len(cols)), aliases: map[string]string{}}
	for _, col := range cols {
		c.allowed[col] = struct{}{}
	}
	return c
}

// WithAlias maps field to column.
func (c Columns) WithAlias(field, column string) Columns {
	c.aliases[field] = column
	return c
}

func (c Columns) resolve(field string) (string, bool) {
	field = strings.TrimSpace(field)
	if col, ok := c.aliases[field]; ok {
		field = col
	}
	_, ok := c.allowed[field]
	return field, ok
}

// ApplyCommon adds deletion, id, search and date conditions of f.
func ApplyCommon(q squirrel.SelectBuilder, f domain.ListFilter, searchCols ...string) squirrel.SelectBuilder {
	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": f.IDs})
	}
	if f.Search != "" && len(searchCols) > 0 {
		pattern := "%" + f.Search + "%"
		or := squirrel.Or{}
		for _, col := range searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *f.DateTo})
	}
	return q
}

// ApplyFilters adds advanced filter conditions. Unknown columns are a
// validation error.
func ApplyFilters(q squirrel.SelectBuilder, items []filter.Item, cols Columns) (squirrel.SelectBuilder, error) {
	for _, item := range items {
		col, ok := cols.resolve(item.Field)
		if !ok || !item.Valid() {
			return q, apperror.NewValidation("invalid filter").
				WithDetail("field", item.Field).
				WithDetail("operator", string(item.Operator))
		}

		switch item.Operator {
		case filter.Equal, filter.InList:
			q = q.Where(squirrel.Eq{col: item.Value})
		case filter.NotEqual, filter.NotInList:
			q = q.Where(squirrel.NotEq{col: item.Value})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{col: item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{col: item.Value})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{col: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{col: nil})
		case filter.Contains:
			q = q.Where(squirrel.ILike{col: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.NotContains:
			q = q.Where(squirrel.NotILike{col: fmt.Sprintf("%%%v%%", item.Value)})
		}
	}
	return q, nil
}

// OrderBy turns "-date" into "date DESC". Empty input yields def.
func OrderBy(orderBy, def string, cols Columns) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return def, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	col, ok := cols.resolve(field)
	if !ok || col == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return col + " " + direction, nil
}

// Page applies limit and offset.
func Page(q squirrel.SelectBuilder, f domain.ListFilter) squirrel.SelectBuilder {
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
