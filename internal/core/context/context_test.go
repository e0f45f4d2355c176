package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Len(t, GetTraceID(ctx), 26)

	tc := NewTraceContext()
	ctx = WithTrace(ctx, tc)
	assert.Equal(t, tc.RequestID, GetRequestID(ctx))
	assert.Equal(t, tc.TraceID, GetTraceID(ctx))
}

func TestActorDefaultsToSystem(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "system", GetActor(ctx).Name)

	ctx = WithActor(ctx, Actor{Name: "meister", Source: "http"})
	assert.Equal(t, "meister", GetActor(ctx).Name)
	assert.Equal(t, "http", GetActor(ctx).Source)
}
