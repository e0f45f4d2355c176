package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "handwerk/internal/core/context"
)

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	core, logs := observer.New(level)
	l := &Logger{SugaredLogger: zap.New(core).Sugar(), level: level}
	child := l.WithComponent("relay")

	child.Infow("hidden")
	assert.Equal(t, 0, logs.Len())

	l.SetLevel("debug")
	child.Infow("shown")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "debug", child.Level())

	l.SetLevel("nonsense")
	assert.Equal(t, "info", l.Level())
}

func TestWithContextAddsActor(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar(), level: zap.NewAtomicLevel()}

	ctx := appctx.WithActor(context.Background(), appctx.Actor{Name: "meister", Source: "api"})
	l.WithContext(ctx).Infow("quote sent")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "meister", entries[0].ContextMap()["actor"])
	}
}
