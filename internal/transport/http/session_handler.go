package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "github.com/NU-Formula-Racing/daq-interface-25/internal/errors"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/ingest"
	customMiddleware "github.com/NU-Formula-Racing/daq-interface-25/internal/middleware"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/services"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/session"
	"github.com/NU-Formula-Racing/daq-interface-25/internal/validation"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/domain"
)

// multipartMemory bounds how much of an upload is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// Preview row limits for GET /datasets/{dataset}/preview.
const (
	defaultPreviewLimit = 50
	maxPreviewLimit     = 500
)

// SessionHandler handles session lifecycle HTTP requests with RFC 7807 compliance
type SessionHandler struct {
	service        SessionServiceInterface
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validate       *customMiddleware.ValidationMiddleware
	query          *customMiddleware.QueryParamValidator
	maxUploadBytes int64
}

// NewSessionHandler creates a new session handler with RFC 7807 error handling.
// maxUploadBytes caps the whole multipart body; zero disables the cap.
func NewSessionHandler(service SessionServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "session_handler")),
		errorHandler:   errorHandler,
		validate:       customMiddleware.NewValidationMiddleware(logger, errorHandler),
		query:          customMiddleware.NewQueryParamValidator(logger, errorHandler),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the session routes with proper Chi patterns
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validate.ValidateRequest)

	r.With(h.validate.RequireContentType("multipart/form-data")).
		Post("/", h.CreateSession)

	r.Route("/{sessionID}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)

		r.Put("/slots", h.SetSlotCount)
		r.Patch("/slots/{slotIndex}", h.UpdateSlot)

		r.Post("/render", h.RenderSession)
		r.Get("/figures", h.GetFigures)
		r.Get("/figures/{slotIndex}/snapshot", h.Snapshot)

		r.Get("/datasets", h.ListDatasets)
		r.Route("/datasets/{dataset}", func(r chi.Router) {
			r.Get("/preview", h.DatasetPreview)
			r.Get("/export", h.ExportDataset)
		})
	})

	return r
}

// SessionCtx middleware validates the sessionID parameter
func (h *SessionHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("sessionID", "Session ID is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession handles POST /api/sessions: a multipart upload under the
// "files" key opens a new session over the decoded datasets.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files", "At least one file is required"))
		return
	}

	uploads := make([]ingest.Upload, 0, len(files))
	for _, header := range files {
		data, err := readUpload(header)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.FileSystemError("read upload", err))
			return
		}
		uploads = append(uploads, ingest.Upload{Name: header.Filename, Data: data})
	}

	h.logger.InfoContext(r.Context(), "creating session",
		slog.String("request_id", reqID),
		slog.Int("files", len(uploads)))

	view, err := h.service.CreateSession(r.Context(), uploads)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "session creation failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.handleServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, successEnvelope(view))
}

// GetSession handles GET /api/sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, successEnvelope(view))
}

// ListDatasets handles GET /api/sessions/{sessionID}/datasets: the
// per-dataset summaries without the slot and figure state.
func (h *SessionHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, successEnvelope(view.Datasets))
}

// DeleteSession handles DELETE /api/sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"status": "success"})
}

// SetSlotCountRequest is the body for PUT /slots. The service owns the
// allowed range; the tag only rejects an absent count.
type SetSlotCountRequest struct {
	Count int `json:"count" validate:"required"`
}

// SetSlotCount handles PUT /api/sessions/{sessionID}/slots
func (h *SessionHandler) SetSlotCount(w http.ResponseWriter, r *http.Request) {
	var req SetSlotCountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.SetSlotCount(r.Context(), chi.URLParam(r, "sessionID"), req.Count)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, successEnvelope(view))
}

// UpdateSlotRequest is the body for PATCH /slots/{slotIndex}. The value is
// validated against the session's datasets by the service, not here.
type UpdateSlotRequest struct {
	Field string `json:"field" validate:"required,plotfield"`
	Value string `json:"value"`
}

// UpdateSlot handles PATCH /api/sessions/{sessionID}/slots/{slotIndex}
func (h *SessionHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "slotIndex"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("slotIndex", "Slot index must be an integer"))
		return
	}

	var req UpdateSlotRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validate.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	slot, err := h.service.UpdateSlot(r.Context(), chi.URLParam(r, "sessionID"), index, domain.SpecField(req.Field), req.Value)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownDataset),
			errors.Is(err, session.ErrUnknownColumn),
			errors.Is(err, session.ErrInvalidMode),
			errors.Is(err, session.ErrInvalidField):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(req.Field, err.Error()))
		default:
			h.handleServiceError(w, r, err)
		}
		return
	}
	render.JSON(w, r, successEnvelope(slot))
}

// RenderSession handles POST /api/sessions/{sessionID}/render
func (h *SessionHandler) RenderSession(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.RenderSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, successEnvelope(batch))
}

// GetFigures handles GET /api/sessions/{sessionID}/figures
func (h *SessionHandler) GetFigures(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.Figures(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, successEnvelope(batch))
}

// Snapshot handles GET /api/sessions/{sessionID}/figures/{slotIndex}/snapshot
func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slotIndex"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("slotIndex", "Slot index must be an integer"))
		return
	}

	png, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "sessionID"), slot)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("figure-%d.png", slot)))
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write snapshot response",
			slog.String("error", err.Error()))
	}
}

// DatasetPreview handles GET /api/sessions/{sessionID}/datasets/{dataset}/preview
func (h *SessionHandler) DatasetPreview(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dataset")

	limit, ok := h.query.ValidateInt(w, r, "limit", 0, maxPreviewLimit, defaultPreviewLimit)
	if !ok {
		return
	}

	preview, err := h.service.DatasetPreview(r.Context(), chi.URLParam(r, "sessionID"), name, limit)
	if err != nil {
		if errors.Is(err, session.ErrUnknownDataset) {
			h.errorHandler.HandleError(w, r, apierrors.DatasetNotFoundError(name))
			return
		}
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, successEnvelope(preview))
}

// ExportDataset handles GET /api/sessions/{sessionID}/datasets/{dataset}/export
func (h *SessionHandler) ExportDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "dataset")

	format, ok := h.query.ValidateEnum(w, r, "format", []string{"csv", "xlsx"}, "csv")
	if !ok {
		return
	}

	// Buffer the export so headers can carry the final file name.
	var buf bytes.Buffer
	fileName, err := h.service.ExportDataset(r.Context(), chi.URLParam(r, "sessionID"), name, format, &buf)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnknownDataset):
			h.errorHandler.HandleError(w, r, apierrors.DatasetNotFoundError(name))
		case errors.Is(err, services.ErrUnsupportedExportFormat):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		default:
			h.handleServiceError(w, r, err)
		}
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, &buf); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write export response",
			slog.String("error", err.Error()))
	}
}

// handleServiceError maps service and session errors onto API errors.
func (h *SessionHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var mapped error
	switch {
	case errors.Is(err, session.ErrNotFound):
		mapped = apierrors.SessionNotFoundError(chi.URLParam(r, "sessionID"))
	case errors.Is(err, session.ErrStoreFull):
		mapped = apierrors.ErrTooManySessions
	case errors.Is(err, session.ErrInvalidCount):
		mapped = apierrors.ErrValidation("count", err.Error())
	case errors.Is(err, session.ErrSlotOutOfRange):
		mapped = apierrors.NewWithDetails(http.StatusBadRequest, "SLOT_OUT_OF_RANGE",
			"Slot index is out of range", err.Error())
	case errors.Is(err, services.ErrNoFigures),
		errors.Is(err, services.ErrSlotNotRendered):
		mapped = apierrors.ErrFigureNotFound
	case errors.Is(err, services.ErrEmptyFigure):
		mapped = apierrors.NewWithDetails(http.StatusConflict, "FIGURE_EMPTY",
			"Figure is empty and cannot be captured", err.Error())
	case errors.Is(err, services.ErrNoUploads):
		mapped = apierrors.ErrValidation("files", "At least one file is required")
	case errors.Is(err, validation.ErrTooManyFiles):
		mapped = apierrors.ErrValidation("files", err.Error())
	case errors.Is(err, services.ErrServiceUnavailable):
		mapped = apierrors.ErrServiceUnavailable
	case isSnapshotError(err):
		mapped = apierrors.SnapshotError(err)
	default:
		// APIErrors pass through; anything else becomes a 500 problem.
		mapped = err
	}
	h.errorHandler.HandleError(w, r, mapped)
}

func isSnapshotError(err error) bool {
	var appErr *apierrors.AppError
	return errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeSnapshot
}

func successEnvelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status": "success",
		"data":   data,
	}
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
