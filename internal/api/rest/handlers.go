package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainErrors "github.com/invoicekit/invoice-studio/internal/domain/errors"
	"github.com/invoicekit/invoice-studio/internal/domain/invoice"
	"github.com/invoicekit/invoice-studio/internal/infrastructure/telemetry"
	"github.com/invoicekit/invoice-studio/internal/service/invoicing"
	"github.com/invoicekit/invoice-studio/internal/service/rendering"
)

// Handler carries the dependencies for all REST endpoints.
type Handler struct {
	sessions     *invoicing.Service
	renderer     *rendering.PDFRenderer
	validator    *validator.Validate
	logger       *slog.Logger
	tracer       trace.Tracer
	errorHandler *ErrorHandler
	maxLogoBytes int64
}

// NewHandler creates the REST handler set.
func NewHandler(sessions *invoicing.Service, renderer *rendering.PDFRenderer, logger *slog.Logger, maxLogoBytes int64) *Handler {
	if maxLogoBytes <= 0 {
		maxLogoBytes = 5 << 20
	}

	return &Handler{
		sessions:     sessions,
		renderer:     renderer,
		validator:    newRequestValidator(),
		logger:       logger,
		tracer:       telemetry.Tracer("api.rest.handlers"),
		errorHandler: NewErrorHandler(),
		maxLogoBytes: maxLogoBytes,
	}
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "session.create")
	defer span.End()

	id, inv, err := h.sessions.CreateSession(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("session_id", id.String()))
	h.writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Invoice: *inv})
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	inv, err := h.sessions.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Invoice: *inv})
}

func (h *Handler) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "session.update")
	defer span.End()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var patch invoice.Patch
	if err := h.decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	inv, err := h.sessions.ApplyUpdate(ctx, id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoiceUpdatesTotal.WithLabelValues("merge").Inc()
	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Invoice: *inv})
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	inv, err := h.sessions.AddItem(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoiceUpdatesTotal.WithLabelValues("item_add").Inc()
	h.writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Invoice: *inv})
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.writeError(w, r, formatValidationError(err))
		return
	}

	inv, err := h.sessions.UpdateItem(r.Context(), id, itemID, req.Field, req.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoiceUpdatesTotal.WithLabelValues("item_update").Inc()
	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Invoice: *inv})
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}

	inv, err := h.sessions.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoiceUpdatesTotal.WithLabelValues("item_remove").Inc()
	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Invoice: *inv})
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	totals, err := h.sessions.Totals(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, NewTotalsResponse(totals))
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	snap, err := h.sessions.Snapshot(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "session.document")
	defer span.End()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	snap, err := h.sessions.Snapshot(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	document, err := h.renderer.Render(snap)
	if err != nil {
		h.writeError(w, r, domainErrors.NewInternalError("document rendering failed").WithCause(err))
		return
	}

	documentsRenderedTotal.Inc()
	span.SetAttributes(attribute.Int("document_bytes", len(document)))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.DocumentName))
	w.Header().Set("Content-Length", strconv.Itoa(len(document)))
	w.WriteHeader(http.StatusOK)
	w.Write(document)
}

func (h *Handler) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	file, header, err := h.logoFile(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxLogoBytes+1))
	if err != nil {
		h.writeError(w, r, domainErrors.NewInternalError("reading logo upload").WithCause(err))
		return
	}
	if int64(len(content)) > h.maxLogoBytes {
		h.writeError(w, r, domainErrors.ErrLogoTooLarge)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		h.writeError(w, r, domainErrors.NewValidationError("INVALID_LOGO", "Logo must be an image upload"))
		return
	}

	inv, err := h.sessions.SetLogo(r.Context(), id, mimeType, content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoiceUpdatesTotal.WithLabelValues("logo").Inc()
	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Invoice: *inv})
}

func (h *Handler) handleClearLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	inv, err := h.sessions.ClearLogo(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	invoiceUpdatesTotal.WithLabelValues("logo").Inc()
	h.writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, Invoice: *inv})
}

// Helpers

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, domainErrors.NewValidationError("INVALID_SESSION_ID", "Session id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	itemID, err := strconv.Atoi(r.PathValue("itemID"))
	if err != nil {
		h.writeError(w, r, domainErrors.NewValidationError("INVALID_ITEM_ID", "Item id must be an integer"))
		return 0, false
	}
	return itemID, true
}

func (h *Handler) logoFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(h.maxLogoBytes); err != nil {
		return nil, nil, domainErrors.NewValidationError("INVALID_UPLOAD", "Expected a multipart upload").WithCause(err)
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		return nil, nil, domainErrors.NewValidationError("INVALID_UPLOAD", "Missing logo file field").WithCause(err)
	}

	return file, header, nil
}

func (h *Handler) decodeJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		return domainErrors.NewValidationError("INVALID_BODY", "Failed to read request body").WithCause(err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return domainErrors.NewValidationError("INVALID_JSON", "Invalid JSON").WithCause(err)
	}

	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := h.errorHandler.Handle(err)

	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err,
		)
	}

	h.writeJSON(w, status, resp)
}
