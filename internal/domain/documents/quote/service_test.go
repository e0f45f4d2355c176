package quote_test

import (
	"context"
	"errors"
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
	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/documents"
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/domain/files"
	"handwerk/internal/infrastructure/lock"
	"handwerk/internal/infrastructure/storage/memory"
)

var (
	quoteDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	now       = time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	png       = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
)

type fixture struct {
	store    *memory.Store
	files    *memory.FileStore
	locker   *lock.LocalLocker
	articles *article.Service
	invoices *invoice.Service
	quotes   *quote.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.New(),
		files:  memory.NewFileStore("http://files.local"),
		locker: lock.NewLocal(),
	}
	clock := func() time.Time { return now }

	f.articles = article.NewService(f.store.Articles(), f.store.Numbers(), f.store)
	f.invoices = invoice.NewService(invoice.Deps{
		Repo:      f.store.Invoices(),
		Numerator: f.store.Numbers(),
		TxManager: f.store,
		Articles:  f.articles,
		Events:    f.store.Outbox(),
		Audit:     f.store.Audit(),
		Clock:     clock,
	}, invoice.DefaultConfig())
	f.quotes = quote.NewService(quote.Deps{
		Repo:      f.store.Quotes(),
		Invoices:  f.invoices,
		Numerator: f.store.Numbers(),
		TxManager: f.store,
		Files:     f.files,
		Locker:    f.locker,
		Articles:  f.articles,
		Events:    f.store.Outbox(),
		Audit:     f.store.Audit(),
		Clock:     clock,
	}, quote.DefaultConfig())
	return f
}

func ctx() context.Context {
	return appctx.WithActor(context.Background(), appctx.Actor{Name: "meister", Source: "test"})
}

func item(desc, qty, price string) documents.LineItem {
	return documents.LineItem{
		Description: desc,
		Quantity:    decimal.RequireFromString(qty),
		Unit:        "Stk",
		UnitPrice:   decimal.RequireFromString(price),
	}
}

// newQuote stores a draft quote with two items worth 119.00 gross.
func (f *fixture) newQuote(t *testing.T) *quote.Quote {
	t.Helper()
	q := quote.New()
	q.Date = quoteDate
	q.CustomerRef = documents.CustomerRef{CustomerID: "c-1", CustomerName: "Familie Weber"}
	q.ProjectRef = documents.ProjectRef{ProjectID: "p-1", ProjectName: "Bad Sanierung"}
	q.Items = documents.Lines{
		item("Waschtisch montieren", "1", "59.50"),
		item("Armatur", "1", "59.50"),
	}
	require.NoError(t, f.quotes.Create(ctx(), q))
	return q
}

func (f *fixture) acceptedQuote(t *testing.T) *quote.Quote {
	t.Helper()
	q := f.newQuote(t)
	_, err := f.quotes.MarkSent(ctx(), q.ID)
	require.NoError(t, err)
	q, err = f.quotes.MarkAccepted(ctx(), q.ID, quote.Signature{PNG: png})
	require.NoError(t, err)
	return q
}

func eventTypes(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func TestCreateAssignsNumbers(t *testing.T) {
	f := newFixture(t)

	first := f.newQuote(t)
	second := f.newQuote(t)

	assert.Equal(t, "AN-2026-0001", first.Number)
	assert.Equal(t, "AN-2026-0002", second.Number)
	assert.Equal(t, quote.StatusDraft, first.Status)
	assert.Equal(t, "meister", first.CreatedBy)

	got, err := f.quotes.Get(ctx(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "119.00", got.Gross.StringFixed(2))
	assert.Equal(t, "100.00", got.Net.StringFixed(2))
	assert.Equal(t, "19.00", got.Tax.StringFixed(2))
	assert.Len(t, got.Items, 2)

	byNumber, err := f.quotes.GetByNumber(ctx(), "AN-2026-0002")
	require.NoError(t, err)
	assert.Equal(t, second.ID, byNumber.ID)
}

func shortIDConfig() quote.Config {
	cfg := quote.DefaultConfig()
	cfg.Numbering = numerator.Options{Strategy: numerator.StrategyShortID}
	return cfg
}

func TestShortIDNumbersAreDistinct(t *testing.T) {
	f := newFixture(t)
	f.quotes.SetConfig(shortIDConfig())

	first := f.newQuote(t)
	second := f.newQuote(t)

	assert.Regexp(t, `^AN-2026-[0-9A-F]{4}$`, first.Number)
	assert.Equal(t, "AN-2026-"+id.Short(first.ID, 4), first.Number)
	assert.Equal(t, "AN-2026-"+id.Short(second.ID, 4), second.Number)
	assert.NotEqual(t, first.Number, second.Number)
}

func TestShortIDCollisionRerollsID(t *testing.T) {
	f := newFixture(t)
	f.quotes.SetConfig(shortIDConfig())

	q := quote.New()
	q.Date = quoteDate
	q.Items = documents.Lines{item("Silikonfuge", "1", "11.90")}
	originalID := q.ID

	taken := quote.New()
	taken.Date = quoteDate
	taken.Number = "AN-2026-" + id.Short(originalID, 4)
	require.NoError(t, f.quotes.Create(ctx(), taken))

	require.NoError(t, f.quotes.Create(ctx(), q))
	assert.NotEqual(t, originalID, q.ID)
	assert.NotEqual(t, taken.Number, q.Number)
	assert.Equal(t, "AN-2026-"+id.Short(q.ID, 4), q.Number)

	got, err := f.quotes.Get(ctx(), q.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestGetUnknownQuote(t *testing.T) {
	f := newFixture(t)
	_, err := f.quotes.Get(ctx(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestEditItems(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)

	q, err := f.quotes.AddItem(ctx(), q.ID, item("Anfahrt", "1", "35.70"))
	require.NoError(t, err)
	assert.Len(t, q.Items, 3)
	assert.Equal(t, documents.SourceManual, q.Items[2].Source)
	assert.Equal(t, "154.70", q.Gross.StringFixed(2))

	qty := documents.Numeric("2")
	q, err = f.quotes.UpdateItem(ctx(), q.ID, 2, documents.ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "190.40", q.Gross.StringFixed(2))

	q, err = f.quotes.RemoveItem(ctx(), q.ID, 0)
	require.NoError(t, err)
	assert.Len(t, q.Items, 2)
	assert.Equal(t, "Armatur", q.Items[0].Description)

	_, err = f.quotes.RemoveItem(ctx(), q.ID, 5)
	assert.True(t, apperror.IsCode(err, apperror.CodeIndexRange))

	_, err = f.quotes.AddItem(ctx(), q.ID, item("Gutschrift", "-1", "10"))
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidAmount))

	stored, err := f.quotes.Get(ctx(), q.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2, "failed edits leave the quote unchanged")
}

func TestSubCentPriceIsRoundedBeforeSaving(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)

	qty := documents.Numeric("3")
	price := documents.Numeric("0.333")
	updated, err := f.quotes.UpdateItem(ctx(), q.ID, 0, documents.ItemPatch{Quantity: &qty, UnitPrice: &price})
	require.NoError(t, err)

	reloaded, err := f.quotes.Get(ctx(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.33", reloaded.Items[0].UnitPrice.String())
	assert.Equal(t, "60.49", updated.Gross.StringFixed(2))
	assert.True(t, updated.Gross.Equal(reloaded.Gross), "write %s, reload %s", updated.Gross, reloaded.Gross)
}

func TestAddGroupArticle(t *testing.T) {
	f := newFixture(t)
	c := ctx()

	pipe := article.New("ROHR-1", "Kupferrohr 15mm")
	pipe.GrossSalesPrice = decimal.RequireFromString("11.90")
	pipe.Unit = article.UnitMeter
	require.NoError(t, f.articles.Create(c, pipe))

	fitting := article.New("FIT-1", "Pressfitting")
	fitting.GrossSalesPrice = decimal.RequireFromString("2.38")
	require.NoError(t, f.articles.Create(c, fitting))

	set := article.New("SET-1", "Heizkörper-Anschluss")
	set.Type = article.TypeGroup
	set.Components = []article.Component{
		{ArticleID: pipe.ID, Quantity: decimal.NewFromInt(1)},
		{ArticleID: fitting.ID, Quantity: decimal.NewFromInt(2)},
	}
	require.NoError(t, f.articles.Create(c, set))

	q := f.newQuote(t)
	q, err := f.quotes.AddArticle(c, q.ID, set.ID, "")
	require.NoError(t, err)
	require.Len(t, q.Items, 4)
	for _, it := range q.Items[2:] {
		assert.True(t, it.Quantity.IsZero())
		assert.Equal(t, "Heizkörper-Anschluss", it.SetName)
		assert.Equal(t, set.ID, *it.GroupID)
	}
	assert.Equal(t, "119.00", q.Gross.StringFixed(2), "zero quantities add nothing")

	groups, err := f.quotes.Groups(c, q.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "", groups[0].SetName)
	assert.Equal(t, "Heizkörper-Anschluss", groups[1].SetName)
	assert.Equal(t, 2, groups[1].StartIndex)

	q, err = f.quotes.AddArticle(c, q.ID, pipe.ID, "2,5")
	require.NoError(t, err)
	last := q.Items[len(q.Items)-1]
	assert.Equal(t, "2.5", last.Quantity.String())
	assert.Equal(t, "148.75", q.Gross.StringFixed(2))
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)
	c := ctx()
	number := q.Number
	require.NotEmpty(t, number)

	q, err := f.quotes.MarkSent(c, q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusSent, q.Status)
	require.NotNil(t, q.SentAt)
	assert.Equal(t, number, q.Number)

	q, err = f.quotes.AddItem(c, q.ID, item("Nachtrag", "1", "10"))
	require.NoError(t, err, "sent quotes stay editable")
	assert.Equal(t, number, q.Number)

	nextYear := time.Date(2027, 1, 4, 0, 0, 0, 0, time.UTC)
	comment := "Termin verschoben"
	q, err = f.quotes.UpdateHeader(c, q.ID, quote.HeaderPatch{Date: &nextYear, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, number, q.Number, "a new date does not renumber")

	q, err = f.quotes.MarkAccepted(c, q.ID, quote.Signature{PNG: png})
	require.NoError(t, err)
	assert.Equal(t, quote.StatusAccepted, q.Status)
	assert.Equal(t, number, q.Number)
	require.NotNil(t, q.SignatureURL)
	assert.Equal(t, "http://files.local/"+files.SignaturePath(q.ID), *q.SignatureURL)
	assert.Equal(t, "meister", q.AcceptedBy)
	assert.True(t, f.files.Exists(files.SignaturePath(q.ID)))

	_, err = f.quotes.AddItem(c, q.ID, item("Nachtrag", "1", "10"))
	assert.True(t, apperror.IsCode(err, apperror.CodeDocumentNotEditable))

	_, err = f.quotes.MarkDeclined(c, q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition))

	inv, err := f.quotes.ConvertToInvoice(c, q.ID)
	require.NoError(t, err)
	assert.Equal(t, number, inv.QuoteNumber)

	stored, err := f.quotes.GetByNumber(c, number)
	require.NoError(t, err)
	assert.Equal(t, q.ID, stored.ID)
	assert.Equal(t, quote.StatusInvoiced, stored.Status)

	assert.Equal(t,
		[]string{domain.EventQuoteCreated, domain.EventQuoteSent, domain.EventQuoteAccepted},
		eventTypes(f.store.Events())[:3])
}

func TestDecline(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)

	_, err := f.quotes.MarkDeclined(ctx(), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition), "draft cannot be declined")

	_, err = f.quotes.MarkSent(ctx(), q.ID)
	require.NoError(t, err)
	q, err = f.quotes.MarkDeclined(ctx(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusDeclined, q.Status)

	_, err = f.quotes.UpdateItem(ctx(), q.ID, 0, documents.ItemPatch{})
	assert.True(t, apperror.IsCode(err, apperror.CodeDocumentNotEditable))
}

func TestAcceptRequiresSentAndSignature(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)

	_, err := f.quotes.MarkAccepted(ctx(), q.ID, quote.Signature{PNG: png})
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition))
	assert.False(t, f.files.Exists(files.SignaturePath(q.ID)), "nothing uploaded for an illegal transition")

	_, err = f.quotes.MarkSent(ctx(), q.ID)
	require.NoError(t, err)

	_, err = f.quotes.MarkAccepted(ctx(), q.ID, quote.Signature{})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	q, err = f.quotes.MarkAccepted(ctx(), q.ID, quote.Signature{Ref: "https://cdn.example/sig.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/sig.png", *q.SignatureURL)
}

func TestAcceptRemovesSignatureWhenWriteFails(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)
	_, err := f.quotes.MarkSent(ctx(), q.ID)
	require.NoError(t, err)

	f.store.InjectFault("quote.update", errors.New("disk full"))
	_, err = f.quotes.MarkAccepted(ctx(), q.ID, quote.Signature{PNG: png})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeCollaborator))
	assert.False(t, f.files.Exists(files.SignaturePath(q.ID)))

	f.store.InjectFault("quote.update", nil)
	got, err := f.quotes.Get(ctx(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusSent, got.Status)
	assert.Nil(t, got.SignatureURL)
}

func TestAcceptUploadFailure(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)
	_, err := f.quotes.MarkSent(ctx(), q.ID)
	require.NoError(t, err)

	f.files.InjectFault("put", errors.New("bucket unavailable"))
	_, err = f.quotes.MarkAccepted(ctx(), q.ID, quote.Signature{PNG: png})
	assert.True(t, apperror.IsCode(err, apperror.CodeCollaborator))

	got, err := f.quotes.Get(ctx(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusSent, got.Status)
}

func TestConvertToInvoice(t *testing.T) {
	f := newFixture(t)
	q := f.acceptedQuote(t)

	inv, err := f.quotes.ConvertToInvoice(ctx(), q.ID)
	require.NoError(t, err)

	assert.Equal(t, "RE-2026-0001", inv.Number)
	assert.Equal(t, invoice.StatusOpen, inv.Status)
	assert.Equal(t, q.ID, *inv.QuoteID)
	assert.Equal(t, q.Number, inv.QuoteNumber)
	assert.Equal(t, "Familie Weber", inv.CustomerName)
	assert.Equal(t, "meister", inv.CreatedBy, "converted invoices carry the actor")
	assert.Equal(t, "p-1", inv.ProjectID)
	assert.Equal(t, time.Date(2026, 3, 26, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Equal(t, q.Gross.StringFixed(2), inv.Gross.StringFixed(2))
	require.Len(t, inv.Items, len(q.Items))
	for i := range inv.Items {
		assert.Equal(t, q.Items[i].Description, inv.Items[i].Description)
		assert.Equal(t, documents.SourceQuote, inv.Items[i].Source)
	}

	stored, err := f.quotes.Get(ctx(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusInvoiced, stored.Status)
	require.NotNil(t, stored.InvoiceID)
	assert.Equal(t, inv.ID, *stored.InvoiceID)
	assert.NotEqual(t, documents.SourceQuote, stored.Items[0].Source, "quote items stay untouched")

	storedInv, err := f.invoices.Get(ctx(), inv.ID)
	require.NoError(t, err)
	assert.Len(t, storedInv.Items, 2)

	types := eventTypes(f.store.Events())
	assert.Contains(t, types, domain.EventInvoiceCreated)
	assert.Equal(t, domain.EventQuoteInvoiced, types[len(types)-1])

	var convertAudit bool
	for _, a := range f.store.AuditLog() {
		if a.Action == "convert" && a.EntityID == q.ID {
			convertAudit = true
			assert.Equal(t, "meister", a.Actor)
		}
	}
	assert.True(t, convertAudit)
}

func TestConvertTwiceIsIllegal(t *testing.T) {
	f := newFixture(t)
	q := f.acceptedQuote(t)

	_, err := f.quotes.ConvertToInvoice(ctx(), q.ID)
	require.NoError(t, err)

	_, err = f.quotes.ConvertToInvoice(ctx(), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition))

	res, err := f.invoices.List(ctx(), invoice.ListFilter{QuoteID: &q.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
}

func TestConvertRequiresAccepted(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)

	_, err := f.quotes.ConvertToInvoice(ctx(), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeIllegalTransition))

	_, err = f.quotes.ConvertToInvoice(ctx(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestConvertRollsBackTogether(t *testing.T) {
	f := newFixture(t)
	q := f.acceptedQuote(t)
	eventsBefore := len(f.store.Events())

	f.store.InjectFault("quote.update", errors.New("connection lost"))
	_, err := f.quotes.ConvertToInvoice(ctx(), q.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeCollaborator))
	f.store.InjectFault("quote.update", nil)

	res, err := f.invoices.List(ctx(), invoice.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount, "no invoice without the quote update")
	assert.Len(t, f.store.Events(), eventsBefore)

	got, err := f.quotes.Get(ctx(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusAccepted, got.Status)
	assert.Nil(t, got.InvoiceID)

	inv, err := f.quotes.ConvertToInvoice(ctx(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, "RE-2026-0001", inv.Number, "rolled back number is reused")
}

func TestConvertCommitFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	q := f.acceptedQuote(t)

	f.store.OnCommit(func() error { return errors.New("connection reset during commit") })
	_, err := f.quotes.ConvertToInvoice(ctx(), q.ID)
	f.store.OnCommit(nil)

	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePartialConversion))
	ae, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, q.ID.String(), ae.Details["quote_id"])
}

func TestConvertLockContention(t *testing.T) {
	f := newFixture(t)
	q := f.acceptedQuote(t)

	token, ok, err := f.locker.TryLock(ctx(), "quote:convert:"+q.ID.String(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.quotes.ConvertToInvoice(ctx(), q.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

	require.NoError(t, f.locker.Release(ctx(), "quote:convert:"+q.ID.String(), token))
	_, err = f.quotes.ConvertToInvoice(ctx(), q.ID)
	assert.NoError(t, err)
}

func TestFindOpenAcceptedForProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.quotes.FindOpenAcceptedForProject(ctx(), "p-1")
	assert.True(t, apperror.IsNotFound(err))

	f.newQuote(t)
	accepted := f.acceptedQuote(t)

	got, err := f.quotes.FindOpenAcceptedForProject(ctx(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, accepted.ID, got.ID)
	assert.Len(t, got.Items, 2)

	_, err = f.quotes.ConvertToInvoice(ctx(), accepted.ID)
	require.NoError(t, err)
	_, err = f.quotes.FindOpenAcceptedForProject(ctx(), "p-1")
	assert.True(t, apperror.IsNotFound(err), "invoiced quotes are no longer open")
}

func TestDeleteOnlyDrafts(t *testing.T) {
	f := newFixture(t)
	draft := f.newQuote(t)
	sent := f.newQuote(t)
	_, err := f.quotes.MarkSent(ctx(), sent.ID)
	require.NoError(t, err)

	require.NoError(t, f.quotes.Delete(ctx(), draft.ID))
	err = f.quotes.Delete(ctx(), sent.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeDocumentNotEditable))

	res, err := f.quotes.List(ctx(), quote.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, sent.ID, res.Items[0].ID)
}

func TestUpdateHeader(t *testing.T) {
	f := newFixture(t)
	q := f.newQuote(t)

	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	comment := "Termin nach Ostern"
	q, err := f.quotes.UpdateHeader(ctx(), q.ID, quote.HeaderPatch{
		Customer: &documents.CustomerRef{CustomerID: "c-2", CustomerName: "Hausverwaltung Kurz"},
		Date:     &date,
		Comment:  &comment,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hausverwaltung Kurz", q.CustomerName)
	assert.Equal(t, "p-1", q.ProjectID, "unset fields are kept")
	assert.Equal(t, date, q.Date)
	assert.Equal(t, "AN-2026-0001", q.Number, "number is fixed at creation")
}
