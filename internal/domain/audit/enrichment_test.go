package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "handwerk/internal/core/context"
	"handwerk/internal/core/entity"
	"handwerk/internal/domain"
)

type stamped struct {
	entity.BaseDocument
}

func TestRegisterHooks(t *testing.T) {
	hooks := domain.NewHookRegistry[*stamped]()
	RegisterHooks(hooks, func(s *stamped) (*string, *string) { return &s.CreatedBy, &s.UpdatedBy })

	doc := &stamped{}
	ctx := appctx.WithActor(context.Background(), appctx.Actor{Name: "meister"})
	require.NoError(t, hooks.RunBeforeCreate(ctx, doc))
	assert.Equal(t, "meister", doc.CreatedBy)
	assert.Equal(t, "meister", doc.UpdatedBy)

	ctx = appctx.WithActor(context.Background(), appctx.Actor{Name: "buero"})
	require.NoError(t, hooks.RunBeforeUpdate(ctx, doc))
	assert.Equal(t, "meister", doc.CreatedBy)
	assert.Equal(t, "buero", doc.UpdatedBy)
}

func TestEnrichDefaultsToSystem(t *testing.T) {
	var created, updated string
	EnrichCreatedByDirect(context.Background(), &created, &updated)
	assert.Equal(t, "system", created)
	assert.Equal(t, "system", updated)
}
