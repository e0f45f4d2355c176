// Package audit provides utilities for audit field enrichment in domain entities.
package audit

import (
	"context"

	appctx "handwerk/internal/core/context"
	"handwerk/internal/domain"
)

// EnrichCreatedByDirect sets CreatedBy and UpdatedBy from the actor in context.
func EnrichCreatedByDirect(ctx context.Context, createdBy, updatedBy *string) {
	actor := appctx.GetActor(ctx).Name
	*createdBy = actor
	*updatedBy = actor
}

// EnrichUpdatedByDirect sets UpdatedBy from the actor in context.
func EnrichUpdatedByDirect(ctx context.Context, updatedBy *string) {
	*updatedBy = appctx.GetActor(ctx).Name
}

// RegisterHooks stamps the actor on create and update.
// fields returns pointers to the CreatedBy and UpdatedBy fields of an entity.
func RegisterHooks[T any](hooks *domain.HookRegistry[T], fields func(T) (createdBy, updatedBy *string)) {
	hooks.OnBeforeCreate(func(ctx context.Context, e T) error {
		createdBy, updatedBy := fields(e)
		EnrichCreatedByDirect(ctx, createdBy, updatedBy)
		return nil
	})
	hooks.OnBeforeUpdate(func(ctx context.Context, e T) error {
		_, updatedBy := fields(e)
		EnrichUpdatedByDirect(ctx, updatedBy)
		return nil
	})
}
