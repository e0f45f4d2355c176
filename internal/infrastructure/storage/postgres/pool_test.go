package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolConfigWithLimits(t *testing.T) {
	base := DefaultPoolConfig("postgres://localhost/handwerk")

	cfg := base.WithLimits(0, 0)
	assert.Equal(t, base.MaxConns, cfg.MaxConns)
	assert.Equal(t, base.MinConns, cfg.MinConns)

	cfg = base.WithLimits(4, 8)
	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns, "min is capped at max")

	cfg = base.WithLimits(20, 0)
	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, base.MinConns, cfg.MinConns)
	assert.Equal(t, "handwerk", cfg.AppName)
}
