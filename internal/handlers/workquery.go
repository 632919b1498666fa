// Package handlers contains HTTP request handlers for the work-query API.
// Handlers parse requests, call services, and return JSON responses — no
// business logic lives here.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fmdesk/workquery-server/internal/middleware"
	"github.com/fmdesk/workquery-server/internal/models"
	"github.com/fmdesk/workquery-server/internal/services"
)

// UploadLimits are the transport-layer ceilings enforced before the
// service (and therefore before any storage call) is reached.
type UploadLimits struct {
	MaxFileBytes int64
	MaxFiles     int
	MaxFields    int
}

// WorkQueryHandler handles work-query HTTP endpoints
type WorkQueryHandler struct {
	svc    *services.WorkQueryService
	limits UploadLimits
	logger *zap.SugaredLogger
}

// NewWorkQueryHandler creates a new work query handler
func NewWorkQueryHandler(svc *services.WorkQueryService, limits UploadLimits, logger *zap.SugaredLogger) *WorkQueryHandler {
	return &WorkQueryHandler{svc: svc, limits: limits, logger: logger}
}

// Create handles POST /api/v1/work-queries (multipart, field "proofFiles")
func (h *WorkQueryHandler) Create(w http.ResponseWriter, r *http.Request) {
	reporter, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	files, err := h.parseUpload(w, r, "proofFiles")
	if err != nil {
		h.writeError(w, err)
		return
	}

	form := r.MultipartForm.Value
	req := &models.CreateWorkQueryRequest{
		Title:            formValue(form, "title"),
		Description:      formValue(form, "description"),
		Type:             formValue(form, "type"),
		ServiceID:        formValue(form, "serviceId"),
		ServiceTitle:     formValue(form, "serviceTitle"),
		ServiceType:      formValue(form, "serviceType"),
		ServiceStaffID:   formValue(form, "serviceStaffId"),
		ServiceStaffName: formValue(form, "serviceStaffName"),
		EmployeeID:       formValue(form, "employeeId"),
		EmployeeName:     formValue(form, "employeeName"),
		Priority:         formValue(form, "priority"),
		Category:         formValue(form, "category"),
		SupervisorID:     formValue(form, "supervisorId"),
		SupervisorName:   formValue(form, "supervisorName"),
	}

	query, err := h.svc.Create(r.Context(), req, files, reporter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, query)
}

// List handles GET /api/v1/work-queries
func (h *WorkQueryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.ListFilters{
		Status:       q.Get("status"),
		Priority:     q.Get("priority"),
		ServiceType:  q.Get("serviceType"),
		SupervisorID: q.Get("supervisorId"),
		Page:         queryInt(q.Get("page"), 1),
		Limit:        queryInt(q.Get("limit"), 20),
	}

	page, err := h.svc.List(r.Context(), filters)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GetByID handles GET /api/v1/work-queries/{id}
func (h *WorkQueryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	query, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query)
}

// GetByQueryID handles GET /api/v1/work-queries/query/{queryId}
func (h *WorkQueryHandler) GetByQueryID(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "queryId")
	if queryID == "" {
		h.writeError(w, &models.ValidationError{Field: "queryId", Reason: "queryId is required"})
		return
	}
	query, err := h.svc.GetByQueryID(r.Context(), queryID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query)
}

// UpdateStatus handles PATCH /api/v1/work-queries/{id}/status
func (h *WorkQueryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	query, err := h.svc.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query)
}

// AddComment handles POST /api/v1/work-queries/{id}/comments
func (h *WorkQueryHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	author, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req models.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	query, err := h.svc.AddComment(r.Context(), id, author, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, query)
}

// Assign handles PATCH /api/v1/work-queries/{id}/assign
func (h *WorkQueryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req models.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	query, err := h.svc.Assign(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query)
}

// AddFiles handles POST /api/v1/work-queries/{id}/files (multipart, field "files")
func (h *WorkQueryHandler) AddFiles(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	files, err := h.parseUpload(w, r, "files")
	if err != nil {
		h.writeError(w, err)
		return
	}
	query, err := h.svc.AddFiles(r.Context(), id, files)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query)
}

// RemoveFiles handles DELETE /api/v1/work-queries/{id}/files
func (h *WorkQueryHandler) RemoveFiles(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req models.RemoveFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, err)
		return
	}
	query, err := h.svc.RemoveFiles(r.Context(), id, req.PublicIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, query)
}

// Statistics handles GET /api/v1/work-queries/statistics
func (h *WorkQueryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Statistics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Recent handles GET /api/v1/work-queries/recent
func (h *WorkQueryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), 10)
	queries, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, queries)
}

// SupervisorServices handles GET /api/v1/work-queries/supervisor/{supervisorId}/services
func (h *WorkQueryHandler) SupervisorServices(w http.ResponseWriter, r *http.Request) {
	supervisorID := chi.URLParam(r, "supervisorId")
	if supervisorID == "" {
		h.writeError(w, &models.ValidationError{Field: "supervisorId", Reason: "supervisorId is required"})
		return
	}
	refs, err := h.svc.SupervisorServices(r.Context(), supervisorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if refs == nil {
		refs = []models.ServiceRef{}
	}
	respondJSON(w, http.StatusOK, refs)
}

// Static enumeration endpoints for client form population.

// Categories handles GET /api/v1/work-queries/categories
func (h *WorkQueryHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.AllCategories)
}

// Priorities handles GET /api/v1/work-queries/priorities
func (h *WorkQueryHandler) Priorities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.AllPriorities)
}

// Statuses handles GET /api/v1/work-queries/statuses
func (h *WorkQueryHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.AllStatuses)
}

// ServiceTypes handles GET /api/v1/work-queries/service-types
func (h *WorkQueryHandler) ServiceTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.AllQueryTypes)
}

// parseUpload reads the multipart form and enforces the transport
// ceilings (file count, non-file field count, per-file size) before any
// bytes move toward storage.
func (h *WorkQueryHandler) parseUpload(w http.ResponseWriter, r *http.Request, field string) ([]models.IncomingFile, error) {
	maxBody := h.limits.MaxFileBytes*int64(h.limits.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, &models.ValidationError{Limit: "requestBody", Reason: "expecting a multipart form within the size limit"}
	}

	if len(r.MultipartForm.Value) > h.limits.MaxFields {
		return nil, &models.ValidationError{
			Limit:  "fields",
			Reason: fmt.Sprintf("at most %d non-file fields per request", h.limits.MaxFields),
		}
	}

	headers := r.MultipartForm.File[field]
	if len(headers) > h.limits.MaxFiles {
		return nil, &models.ValidationError{
			Limit:  "files",
			Reason: fmt.Sprintf("at most %d files per request", h.limits.MaxFiles),
		}
	}

	files := make([]models.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.limits.MaxFileBytes {
			return nil, &models.ValidationError{
				File:   fh.Filename,
				Limit:  "fileSize",
				Reason: fmt.Sprintf("file exceeds the %d MB per-file limit", h.limits.MaxFileBytes>>20),
			}
		}

		mediaType := fh.Header.Get("Content-Type")
		if mediaType == "" {
			mediaType = mime.TypeByExtension(filepath.Ext(fh.Filename))
		}

		f, err := fh.Open()
		if err != nil {
			return nil, &models.ValidationError{File: fh.Filename, Reason: "could not read uploaded file"}
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, &models.ValidationError{File: fh.Filename, Reason: "could not read uploaded file"}
		}

		files = append(files, models.IncomingFile{
			Name:      fh.Filename,
			MediaType: mediaType,
			Size:      fh.Size,
			Data:      data,
		})
	}
	return files, nil
}

// writeError maps service errors onto HTTP status codes.
func (h *WorkQueryHandler) writeError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var uploadErr *models.UploadError
	var persistenceErr *models.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  validationErr.Error(),
			"detail": validationErr,
		})
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, "Work query not found")
	case errors.As(err, &uploadErr):
		h.logger.Errorw("upload failed", "file", uploadErr.File, "error", uploadErr.Err)
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": "File upload failed",
			"file":  uploadErr.File,
		})
	case errors.As(err, &persistenceErr):
		h.logger.Errorw("persistence failure", "op", persistenceErr.Op, "error", persistenceErr.Err)
		respondError(w, http.StatusInternalServerError, "Failed to save work query")
	default:
		h.logger.Errorw("unhandled error", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &models.ValidationError{Field: "id", Reason: "id must be a valid UUID"}
	}
	return id, nil
}

func formValue(form map[string][]string, key string) string {
	if vals := form[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return fallback
}

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
