package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicekit/invoice-studio/internal/service/invoicing"
	"github.com/invoicekit/invoice-studio/internal/service/rendering"
)

type testEnv struct {
	mux      *http.ServeMux
	sessions *invoicing.Service
}

// newTestEnv wires the handler set onto the production route table.
func newTestEnv(t *testing.T, maxLogoBytes int64) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := invoicing.NewService(invoicing.Config{}, logger)
	handler := NewHandler(sessions, rendering.NewPDFRenderer(), logger, maxLogoBytes)

	v1 := http.NewServeMux()
	v1.HandleFunc("POST /sessions", handler.handleCreateSession)
	v1.HandleFunc("GET /sessions/{id}", handler.handleGetInvoice)
	v1.HandleFunc("PATCH /sessions/{id}", handler.handleUpdateInvoice)
	v1.HandleFunc("POST /sessions/{id}/items", handler.handleAddItem)
	v1.HandleFunc("PATCH /sessions/{id}/items/{itemID}", handler.handleUpdateItem)
	v1.HandleFunc("DELETE /sessions/{id}/items/{itemID}", handler.handleRemoveItem)
	v1.HandleFunc("GET /sessions/{id}/totals", handler.handleTotals)
	v1.HandleFunc("GET /sessions/{id}/preview", handler.handlePreview)
	v1.HandleFunc("GET /sessions/{id}/document", handler.handleDocument)
	v1.HandleFunc("POST /sessions/{id}/logo", handler.handleUploadLogo)
	v1.HandleFunc("DELETE /sessions/{id}/logo", handler.handleClearLogo)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))

	return &testEnv{mux: mux, sessions: sessions}
}

func (e *testEnv) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T) (uuid.UUID, SessionResponse) {
	t.Helper()

	rec := e.do(http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.SessionID, resp
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestCreateSession_ReturnsDefaults(t *testing.T) {
	env := newTestEnv(t, 0)

	id, resp := env.createSession(t)

	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, "001", resp.Invoice.InvoiceNumber)
	assert.Equal(t, "USD", resp.Invoice.Currency)
	require.Len(t, resp.Invoice.Items, 1)
	assert.Equal(t, 1, resp.Invoice.Items[0].ID)
}

func TestGetInvoice(t *testing.T) {
	env := newTestEnv(t, 0)
	id, _ := env.createSession(t)

	t.Run("found", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/sessions/"+id.String(), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id, decodeSession(t, rec).SessionID)
	})

	t.Run("unknown session", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_SESSION_ID", errorCode(t, rec))
	})
}

func TestUpdateInvoice(t *testing.T) {
	env := newTestEnv(t, 0)
	id, _ := env.createSession(t)
	path := "/api/v1/sessions/" + id.String()

	t.Run("merge updates named fields only", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, strings.NewReader(`{"taxRate": 8, "clientName": "Globex"}`))
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeSession(t, rec)
		assert.Equal(t, "Globex", resp.Invoice.ClientName)
		assert.Equal(t, "8", resp.Invoice.TaxRate.String())
		assert.Equal(t, "001", resp.Invoice.InvoiceNumber, "unnamed fields keep their values")
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, strings.NewReader(`{"bogus": 1}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UNKNOWN_FIELD", errorCode(t, rec))
	})

	t.Run("items not patchable", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, strings.NewReader(`{"items": []}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ITEMS_NOT_PATCHABLE", errorCode(t, rec))
	})

	t.Run("unsupported currency rejected", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, strings.NewReader(`{"currency": "CHF"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "UNSUPPORTED_CURRENCY", errorCode(t, rec))
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path, strings.NewReader(`{"clientName": `))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestItemEndpoints(t *testing.T) {
	env := newTestEnv(t, 0)
	id, _ := env.createSession(t)
	base := "/api/v1/sessions/" + id.String() + "/items"

	rec := env.do(http.MethodPost, base, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeSession(t, rec)
	require.Len(t, resp.Invoice.Items, 2)
	assert.Equal(t, 2, resp.Invoice.Items[1].ID)

	rec = env.do(http.MethodPatch, base+"/2", strings.NewReader(`{"field": "price", "value": "19.99"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 19.99, decodeSession(t, rec).Invoice.Items[1].Price)

	rec = env.do(http.MethodPatch, base+"/2", strings.NewReader(`{"field": "amount", "value": 1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = env.do(http.MethodPatch, base+"/99", strings.NewReader(`{"field": "price", "value": 1}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPatch, base+"/two", strings.NewReader(`{"field": "price", "value": 1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ITEM_ID", errorCode(t, rec))

	rec = env.do(http.MethodDelete, base+"/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeSession(t, rec)
	require.Len(t, resp.Invoice.Items, 1)
	assert.Equal(t, 2, resp.Invoice.Items[0].ID)

	// Deleting the last item succeeds without changing anything.
	rec = env.do(http.MethodDelete, base+"/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeSession(t, rec).Invoice.Items, 1)
}

func TestTotalsEndpoint(t *testing.T) {
	env := newTestEnv(t, 0)
	id, _ := env.createSession(t)
	base := "/api/v1/sessions/" + id.String()

	env.do(http.MethodPatch, base+"/items/1", strings.NewReader(`{"field": "quantity", "value": 3}`))
	env.do(http.MethodPatch, base+"/items/1", strings.NewReader(`{"field": "price", "value": 10}`))
	env.do(http.MethodPatch, base, strings.NewReader(`{"taxRate": 10, "discountRate": 5}`))

	rec := env.do(http.MethodGet, base+"/totals", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var totals TotalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	assert.Equal(t, 30.0, totals.Subtotal)
	assert.Equal(t, 3.0, totals.TaxAmount)
	assert.Equal(t, 1.5, totals.DiscountAmount)
	assert.Equal(t, 31.5, totals.Total)
}

func TestPreviewEndpoint(t *testing.T) {
	env := newTestEnv(t, 0)
	id, _ := env.createSession(t)

	rec := env.do(http.MethodGet, "/api/v1/sessions/"+id.String()+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap rendering.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "$", snap.CurrencySymbol)
	assert.Equal(t, "Invoice_001.pdf", snap.DocumentName)
	assert.Len(t, snap.Lines, 1)
}

func TestDocumentEndpoint(t *testing.T) {
	env := newTestEnv(t, 0)
	id, _ := env.createSession(t)

	env.do(http.MethodPatch, "/api/v1/sessions/"+id.String(),
		strings.NewReader(`{"invoiceNumber": "INV-7"}`))

	rec := env.do(http.MethodGet, "/api/v1/sessions/"+id.String()+"/document", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Invoice_INV-7.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", rec.Body.String()[:4])
}

func multipartLogo(t *testing.T, fieldName, contentType string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="logo.png"`, fieldName))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func TestLogoEndpoints(t *testing.T) {
	env := newTestEnv(t, 64)
	id, _ := env.createSession(t)
	path := "/api/v1/sessions/" + id.String() + "/logo"

	upload := func(fieldName, contentType string, content []byte) *httptest.ResponseRecorder {
		body, formType := multipartLogo(t, fieldName, contentType, content)
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", formType)
		rec := httptest.NewRecorder()
		env.mux.ServeHTTP(rec, req)
		return rec
	}

	t.Run("upload and clear", func(t *testing.T) {
		rec := upload("logo", "image/png", []byte("tiny-logo"))
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeSession(t, rec)
		require.NotNil(t, resp.Invoice.CompanyLogo)
		assert.Equal(t, "image/png", resp.Invoice.CompanyLogo.MIMEType())

		rec = env.do(http.MethodDelete, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, decodeSession(t, rec).Invoice.CompanyLogo)
	})

	t.Run("rejects non-image uploads", func(t *testing.T) {
		rec := upload("logo", "application/pdf", []byte("pdf-bytes"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_LOGO", errorCode(t, rec))
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		rec := upload("logo", "image/png", bytes.Repeat([]byte{0xAB}, 65))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "LOGO_TOO_LARGE", errorCode(t, rec))
	})

	t.Run("rejects missing field", func(t *testing.T) {
		rec := upload("attachment", "image/png", []byte("tiny-logo"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_UPLOAD", errorCode(t, rec))
	})
}
