package invoice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/core/apperror"
	appctx "handwerk/internal/core/context"
	"handwerk/internal/core/id"
	"handwerk/internal/core/numerator"
	"handwerk/internal/domain"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/infrastructure/storage/memory"
)

var now = time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

type recordingObserver struct {
	mu        sync.Mutex
	committed []string
	failed    []string
}

func (o *recordingObserver) Committed(_ context.Context, ev domain.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed = append(o.committed, ev.EventType)
}

func (o *recordingObserver) Failed(_ context.Context, op string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, op)
}

func newService(t *testing.T) (*invoice.Service, *memory.Store, *recordingObserver) {
	t.Helper()
	store := memory.New()
	obs := &recordingObserver{}
	svc := invoice.NewService(invoice.Deps{
		Repo:      store.Invoices(),
		Numerator: store.Numbers(),
		TxManager: store,
		Events:    store.Outbox(),
		Audit:     store.Audit(),
		Observer:  obs,
		Clock:     func() time.Time { return now },
	}, invoice.DefaultConfig())
	return svc, store, obs
}

func newInvoice(date time.Time, draft bool) *invoice.Invoice {
	inv := invoice.New(draft, invoice.DefaultDueDays)
	inv.Date = date
	inv.DueDate = time.Time{}
	inv.CustomerRef = documents.CustomerRef{CustomerID: "c-1", CustomerName: "Bäckerei Horn"}
	inv.Items = documents.Lines{{
		Description: "Wartung Heizung",
		Quantity:    decimal.NewFromInt(2),
		Unit:        "Stunden",
		UnitPrice:   decimal.RequireFromString("71.40"),
	}}
	return inv
}

func TestCreateStandalone(t *testing.T) {
	svc, store, obs := newService(t)
	ctx := context.Background()

	inv := newInvoice(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, svc.Create(ctx, inv))

	assert.Equal(t, "RE-2026-0001", inv.Number)
	assert.Equal(t, invoice.StatusOpen, inv.Status)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Equal(t, "142.80", inv.Gross.StringFixed(2))
	assert.Equal(t, "120.00", inv.Net.StringFixed(2))
	assert.Equal(t, "22.80", inv.Tax.StringFixed(2))

	assert.Equal(t, []string{domain.EventInvoiceCreated}, obs.committed)
	require.Len(t, store.Events(), 1)
	assert.Equal(t, inv.ID, store.Events()[0].AggregateID)
}

func TestCreateRejectsLaterStatus(t *testing.T) {
	svc, _, _ := newService(t)
	inv := newInvoice(now, false)
	inv.Status = invoice.StatusPaid
	err := svc.Create(context.Background(), inv)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestShortIDNumbering(t *testing.T) {
	svc, _, _ := newService(t)
	svc.SetConfig(invoice.Config{Numbering: numerator.Options{Strategy: numerator.StrategyShortID}})

	inv := newInvoice(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, svc.Create(context.Background(), inv))
	assert.Equal(t, "RE-2026-"+id.Short(inv.ID, 4), inv.Number)
	assert.Regexp(t, `^RE-2026-[0-9A-F]{4}$`, inv.Number)
	assert.Equal(t, inv.Date.AddDate(0, 0, invoice.DefaultDueDays), inv.DueDate, "zero due days fall back to the default")

	other := newInvoice(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, svc.Create(context.Background(), other))
	assert.NotEqual(t, inv.Number, other.Number)
}

func TestLifecycle(t *testing.T) {
	svc, _, obs := newService(t)
	ctx := context.Background()

	inv := newInvoice(now, true)
	require.NoError(t, svc.Create(ctx, inv))
	assert.Equal(t, invoice.StatusDraft, inv.Status)
	number := inv.Number
	require.NotEmpty(t, number)

	_, err := svc.MarkPaid(ctx, inv.ID, time.Time{})
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition))

	inv, err = svc.Issue(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusOpen, inv.Status)

	assert.Equal(t, number, inv.Number)

	inv, err = svc.MarkSent(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusSent, inv.Status)
	assert.Equal(t, number, inv.Number)

	inv, err = svc.AddItem(ctx, inv.ID, documents.LineItem{Description: "Anfahrt", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("23.80")})
	require.NoError(t, err, "sent invoices stay editable")
	assert.Equal(t, number, inv.Number)

	comment := "Bitte Rechnungsnummer angeben"
	inv, err = svc.UpdateHeader(ctx, inv.ID, invoice.HeaderPatch{Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, number, inv.Number)

	paidAt := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	inv, err = svc.MarkPaid(ctx, inv.ID, paidAt)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, inv.Status)
	assert.Equal(t, number, inv.Number)
	assert.Equal(t, paidAt, *inv.PaidAt)
	assert.Equal(t, "166.60", inv.Gross.StringFixed(2))

	_, err = svc.RemoveItem(ctx, inv.ID, 0)
	assert.True(t, apperror.IsCode(err, apperror.CodeDocumentNotEditable))

	assert.Equal(t, []string{
		domain.EventInvoiceCreated,
		domain.EventInvoiceIssued,
		domain.EventInvoiceSent,
		domain.EventInvoicePaid,
	}, obs.committed)
	assert.Equal(t, []string{domain.EventInvoicePaid}, obs.failed)
}

func TestCreateStampsActor(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := appctx.WithActor(context.Background(), appctx.Actor{Name: "buero", Source: "test"})

	inv := newInvoice(now, false)
	require.NoError(t, svc.Create(ctx, inv))
	assert.Equal(t, "buero", inv.CreatedBy)
	assert.Equal(t, "buero", inv.UpdatedBy)

	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "buero", stored.CreatedBy)
}

func TestOverdueThenPaid(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	inv := newInvoice(now, false)
	require.NoError(t, svc.Create(ctx, inv))

	_, err := svc.MarkOverdue(ctx, inv.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition), "not yet due")
	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusOpen, stored.Status)

	late := newInvoice(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, svc.Create(ctx, late))

	inv, err = svc.MarkOverdue(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusOverdue, inv.Status)

	_, err = svc.MarkSent(ctx, inv.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition))

	inv, err = svc.MarkPaid(ctx, inv.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, now, *inv.PaidAt)
}

func TestSweepOverdue(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	past := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	due := newInvoice(past, false)
	require.NoError(t, svc.Create(ctx, due))

	sent := newInvoice(past, false)
	require.NoError(t, svc.Create(ctx, sent))
	_, err := svc.MarkSent(ctx, sent.ID)
	require.NoError(t, err)

	paid := newInvoice(past, false)
	require.NoError(t, svc.Create(ctx, paid))
	_, err = svc.MarkPaid(ctx, paid.ID, past)
	require.NoError(t, err)

	draft := newInvoice(past, true)
	require.NoError(t, svc.Create(ctx, draft))

	current := newInvoice(now, false)
	require.NoError(t, svc.Create(ctx, current))

	marked, err := svc.SweepOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	for _, tc := range []struct {
		id   id.ID
		want invoice.Status
	}{
		{due.ID, invoice.StatusOverdue},
		{sent.ID, invoice.StatusOverdue},
		{paid.ID, invoice.StatusPaid},
		{draft.ID, invoice.StatusDraft},
		{current.ID, invoice.StatusOpen},
	} {
		got, err := svc.Get(ctx, tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Status, got.Number)
	}

	marked, err = svc.SweepOverdue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, marked, "sweep is idempotent")
}

func TestSweepContinuesAfterFailure(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	past := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Create(ctx, newInvoice(past, false)))
	require.NoError(t, svc.Create(ctx, newInvoice(past, false)))

	store.InjectFault("invoice.update", errors.New("timeout"))
	marked, err := svc.SweepOverdue(ctx, now)
	assert.Error(t, err)
	assert.Zero(t, marked)
}

func TestDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	open := newInvoice(now, false)
	require.NoError(t, svc.Create(ctx, open))
	require.NoError(t, svc.Delete(ctx, open.ID))

	sent := newInvoice(now, false)
	require.NoError(t, svc.Create(ctx, sent))
	_, err := svc.MarkSent(ctx, sent.ID)
	require.NoError(t, err)
	assert.True(t, apperror.IsCode(svc.Delete(ctx, sent.ID), apperror.CodeDocumentNotEditable))

	res, err := svc.List(ctx, invoice.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
}

func TestListFilters(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Create(ctx, newInvoice(now.AddDate(0, 0, -i), false)))
	}
	other := newInvoice(now, false)
	other.CustomerRef = documents.CustomerRef{CustomerID: "c-2", CustomerName: "Stadtwerke"}
	require.NoError(t, svc.Create(ctx, other))
	_, err := svc.MarkSent(ctx, other.ID)
	require.NoError(t, err)

	res, err := svc.List(ctx, invoice.ListFilter{CustomerID: "c-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalCount)

	res, err = svc.List(ctx, invoice.ListFilter{Statuses: []invoice.Status{invoice.StatusSent}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, other.ID, res.Items[0].ID)

	res, err = svc.List(ctx, invoice.ListFilter{ListFilter: domain.ListFilter{Search: "stadt"}})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	res, err = svc.List(ctx, invoice.ListFilter{ListFilter: domain.ListFilter{OrderBy: "number", Limit: 2, Offset: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.TotalCount)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "RE-2026-0002", res.Items[0].Number)

	_, err = svc.List(ctx, invoice.ListFilter{ListFilter: domain.ListFilter{OrderBy: "gross; drop table"}})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
