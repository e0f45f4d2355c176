package numerator

import (
	"context"
	"sync"
	"time"

	"handwerk/internal/core/id"
)

// MockGenerator is a test implementation of Generator.
// Without NextFunc it counts per prefix and year in memory.
type MockGenerator struct {
	NextFunc          func(ctx context.Context, cfg Config, opts *Options, docID id.ID, period time.Time) (string, error)
	SetNextNumberFunc func(ctx context.Context, cfg Config, period time.Time, value int64) error

	mu       sync.Mutex
	counters map[string]int64
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, cfg Config, opts *Options, docID id.ID, period time.Time) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, cfg, opts, docID, period)
	}
	if opts != nil && opts.Strategy == StrategyShortID {
		return cfg.Format(period, id.Short(docID, cfg.Width())), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	key := cfg.Prefix + period.Format("2006")
	m.counters[key]++
	return cfg.FormatCounter(period, m.counters[key]), nil
}

// SetNextNumber implements Generator.
func (m *MockGenerator) SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error {
	if m.SetNextNumberFunc != nil {
		return m.SetNextNumberFunc(ctx, cfg, period, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[cfg.Prefix+period.Format("2006")] = value - 1
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
