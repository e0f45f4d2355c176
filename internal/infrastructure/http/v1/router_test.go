package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handwerk/internal/domain/catalogs/article"
	"handwerk/internal/domain/documents/invoice"
	"handwerk/internal/domain/documents/quote"
	"handwerk/internal/domain/finance"
	"handwerk/internal/infrastructure/lock"
	"handwerk/internal/infrastructure/storage/memory"
	"handwerk/pkg/logger"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
	files  *memory.FileStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	fileStore := memory.NewFileStore("http://localhost/files")

	articles := article.NewService(store.Articles(), store.Numbers(), store)
	invoices := invoice.NewService(invoice.Deps{
		Repo:      store.Invoices(),
		Numerator: store.Numbers(),
		TxManager: store,
		Articles:  articles,
		Events:    store.Outbox(),
		Audit:     store.Audit(),
	}, invoice.DefaultConfig())
	quotes := quote.NewService(quote.Deps{
		Repo:      store.Quotes(),
		Invoices:  invoices,
		Numerator: store.Numbers(),
		TxManager: store,
		Files:     fileStore,
		Locker:    lock.NewLocal(),
		Articles:  articles,
		Events:    store.Outbox(),
		Audit:     store.Audit(),
	}, quote.DefaultConfig())

	router := NewRouter(RouterConfig{
		Logger:   logger.NewNop(),
		Quotes:   quotes,
		Invoices: invoices,
		Articles: articles,
		Finance:  finance.NewService(store.Transactions(), store, store.Audit(), fileStore),
		Files:    fileStore,
		Payee: func() invoice.Payee {
			return invoice.Payee{Name: "Malerbetrieb Muster", IBAN: "DE89 3704 0044 0532 0130 00"}
		},
	})
	return &testAPI{t: t, router: router, files: fileStore}
}

func (a *testAPI) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "meister")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func money(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %T", v)
	return decimal.RequireFromString(s)
}

func assertReason(t *testing.T, body map[string]any, reason string) {
	t.Helper()
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "missing details in %v", body)
	assert.Equal(t, reason, details["reason"])
}

func TestQuoteToInvoiceFlow(t *testing.T) {
	api := newTestAPI(t)

	rec, created := api.do(http.MethodPost, "/api/v1/quotes", map[string]any{
		"customer": map[string]any{"customerId": "k-1", "customerName": "Familie Berg"},
		"project":  map[string]any{"projectId": "p-7"},
		"items": []map[string]any{
			{"description": "Wand streichen", "quantity": "2", "unit": "m²", "unitPrice": "59,50"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "draft", created["status"])
	assert.Regexp(t, regexp.MustCompile(`^AN-\d{4}-0001$`), created["number"])
	assert.True(t, money(t, created["grossAmount"]).Equal(decimal.RequireFromString("119")))
	assert.True(t, money(t, created["netAmount"]).Equal(decimal.RequireFromString("100")))

	quoteID := created["id"].(string)
	base := "/api/v1/quotes/" + quoteID

	rec, _ = api.do(http.MethodPost, base+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, accepted := api.do(http.MethodPost, base+"/accept", map[string]any{
		"signaturePng": []byte{0x89, 'P', 'N', 'G'},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "accepted", accepted["status"])
	assert.NotEmpty(t, accepted["signatureUrl"])

	rec, open := api.do(http.MethodGet, "/api/v1/quotes/open?projectId=p-7", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, quoteID, open["id"])

	rec, inv := api.do(http.MethodPost, base+"/convert", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "offen", inv["status"])
	assert.Regexp(t, regexp.MustCompile(`^RE-\d{4}-0001$`), inv["number"])
	assert.True(t, money(t, inv["grossAmount"]).Equal(decimal.RequireFromString("119")))

	_, q := api.do(http.MethodGet, base, nil)
	assert.Equal(t, "invoiced", q["status"])
	assert.Equal(t, inv["id"], q["invoiceId"])

	rec, _ = api.do(http.MethodPost, base+"/convert", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	invBase := "/api/v1/invoices/" + inv["id"].(string)
	rec, giro := api.do(http.MethodGet, invBase+"/girocode", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, giro["payload"], "DE89370400440532013000")

	rec, paid := api.do(http.MethodPost, invBase+"/pay", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", paid["status"])
}

func TestQuoteItemEditing(t *testing.T) {
	api := newTestAPI(t)

	_, created := api.do(http.MethodPost, "/api/v1/quotes", map[string]any{})
	base := "/api/v1/quotes/" + created["id"].(string)

	rec, q := api.do(http.MethodPost, base+"/items", map[string]any{
		"setName": "Bad", "description": "Fliesen", "quantity": 10, "unitPrice": "11.90",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, money(t, q["grossAmount"]).Equal(decimal.RequireFromString("119")))

	rec, q = api.do(http.MethodPatch, base+"/items/0", map[string]any{"quantity": "5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, money(t, q["grossAmount"]).Equal(decimal.RequireFromString("59.5")))

	rec, _ = api.do(http.MethodGet, base+"/groups", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)

	rec, body := api.do(http.MethodDelete, base+"/items/3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertReason(t, body, "INDEX_OUT_OF_RANGE")

	rec, _ = api.do(http.MethodDelete, base+"/items/0", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorResponses(t *testing.T) {
	api := newTestAPI(t)

	rec, body := api.do(http.MethodPost, "/api/v1/quotes", map[string]any{"taxRate": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertReason(t, body, "INVALID_TAX_RATE")

	rec, body = api.do(http.MethodPost, "/api/v1/quotes", map[string]any{
		"items": []map[string]any{{"description": "x", "quantity": "-1", "unitPrice": "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertReason(t, body, "INVALID_AMOUNT")

	rec, body = api.do(http.MethodGet, "/api/v1/quotes/019a2b3c-0000-7000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	rec, _ = api.do(http.MethodGet, "/api/v1/quotes/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, created := api.do(http.MethodPost, "/api/v1/quotes", map[string]any{})
	rec, body = api.do(http.MethodPost, "/api/v1/quotes/"+created["id"].(string)+"/accept", map[string]any{"signatureRef": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", body["code"])

	rec, body = api.do(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestCalculator(t *testing.T) {
	api := newTestAPI(t)

	rec, split := api.do(http.MethodGet, "/api/v1/calc/net?amount=119", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, money(t, split["net"]).Equal(decimal.RequireFromString("100")))
	assert.True(t, money(t, split["tax"]).Equal(decimal.RequireFromString("19")))

	rec, split = api.do(http.MethodGet, "/api/v1/calc/gross?amount=100&rate=7", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, money(t, split["gross"]).Equal(decimal.RequireFromString("107")))

	rec, margin := api.do(http.MethodGet, "/api/v1/calc/margin?sales=100&purchase=60", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "good", margin["calculationState"])

	rec, body := api.do(http.MethodGet, "/api/v1/calc/net?amount=119&rate=16", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertReason(t, body, "INVALID_TAX_RATE")
}

func TestFinanceVATReport(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := api.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"date": "2026-03-02", "type": "income", "amount": "119", "category": "Umsatz", "description": "Rechnung RE-2026-0001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = api.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"date": "2026-03-05", "type": "expense", "amount": "10.70", "taxRate": 7, "category": "Material", "description": "Fachbuch",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, report := api.do(http.MethodGet, "/api/v1/transactions/vat-report?from=2026-03-01&to=2026-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, money(t, report["outputVat"]).Equal(decimal.RequireFromString("19")))
	assert.True(t, money(t, report["inputVat"]).Equal(decimal.RequireFromString("0.7")))
	assert.True(t, money(t, report["payable"]).Equal(decimal.RequireFromString("18.3")))
}

func TestTransactionReceiptUpload(t *testing.T) {
	api := newTestAPI(t)

	rec, created := api.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"date": "2026-03-05", "type": "expense", "amount": "59.50", "category": "Material", "description": "Baumarkt",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	txID := created["id"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "Quittung Baumarkt.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("quittung"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/"+txID+"/receipt", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	path := "receipts/" + txID + "-quittung-baumarkt.jpg"
	assert.Equal(t, "http://localhost/files/"+path, body["receiptUrl"])
	assert.True(t, api.files.Exists(path))

	rec, got := api.do(http.MethodGet, "/api/v1/transactions/"+txID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body["receiptUrl"], got["receiptUrl"])

	rec, _ = api.do(http.MethodGet, "/files/"+path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "quittung", rec.Body.String())

	rec, errBody := api.do(http.MethodPost, "/api/v1/transactions/"+txID+"/receipt", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}

func TestFilesAndHealth(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.files.Put(context.Background(), "receipts/a.txt", []byte("beleg"), "text/plain"))

	rec, _ := api.do(http.MethodGet, "/files/receipts/a.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "beleg", rec.Body.String())

	rec, _ = api.do(http.MethodGet, "/files/receipts/missing.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := api.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])
}
