package memory

import (
	"context"
	"fmt"
	"time"

	appctx "handwerk/internal/core/context"
	"handwerk/internal/core/id"
	"handwerk/internal/core/numerator"
	"handwerk/internal/domain"
)

// Publisher implements domain.EventPublisher on the store's outbox.
type Publisher struct {
	s *Store
}

// Outbox returns the event publisher of the store.
func (s *Store) Outbox() *Publisher {
	return &Publisher{s: s}
}

// Publish appends the event. It must run inside a transaction of the store.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	if !p.s.inTx(ctx) {
		return fmt.Errorf("outbox publish requires a transaction")
	}
	if err := p.s.fault("outbox.publish"); err != nil {
		return err
	}
	p.s.state.events = append(p.s.state.events, event)
	return nil
}

// Auditor implements domain.AuditRecorder.
type Auditor struct {
	s *Store
}

// Audit returns the audit recorder of the store.
func (s *Store) Audit() *Auditor {
	return &Auditor{s: s}
}

// Record appends an audit row.
func (a *Auditor) Record(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error {
	return a.s.view(ctx, func(st *state) error {
		st.audit = append(st.audit, AuditEntry{
			EntityType: entityType,
			EntityID:   entityID,
			Action:     action,
			Changes:    changes,
			Actor:      appctx.GetActor(ctx).Name,
			At:         a.s.now().UTC(),
		})
		return nil
	})
}

// Numerator implements numerator.Generator with counters that roll back
// with the transaction.
type Numerator struct {
	s *Store
}

// Numbers returns the number generator of the store.
func (s *Store) Numbers() *Numerator {
	return &Numerator{s: s}
}

func counterKey(cfg numerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "never":
		return cfg.Prefix
	case "month":
		return cfg.Prefix + period.Format("200601")
	default:
		return cfg.Prefix + period.Format("2006")
	}
}

// Next implements numerator.Generator.
func (n *Numerator) Next(ctx context.Context, cfg numerator.Config, opts *numerator.Options, docID id.ID, period time.Time) (string, error) {
	if opts != nil && opts.Strategy == numerator.StrategyShortID {
		return cfg.Format(period, id.Short(docID, cfg.Width())), nil
	}
	var number string
	err := n.s.view(ctx, func(st *state) error {
		key := counterKey(cfg, period)
		st.counters[key]++
		number = cfg.FormatCounter(period, st.counters[key])
		return nil
	})
	return number, err
}

// SetNextNumber implements numerator.Generator.
func (n *Numerator) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	return n.s.view(ctx, func(st *state) error {
		st.counters[counterKey(cfg, period)] = value - 1
		return nil
	})
}

var (
	_ domain.EventPublisher = (*Publisher)(nil)
	_ domain.AuditRecorder  = (*Auditor)(nil)
	_ numerator.Generator   = (*Numerator)(nil)
)
