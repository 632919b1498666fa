package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fmdesk/workquery-server/internal/models"
)

// QueryStore is the persistence surface the service needs. Implemented
// by repository.WorkQueryRepository; faked in tests.
type QueryStore interface {
	Insert(ctx context.Context, q *models.WorkQuery) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WorkQuery, error)
	GetByQueryID(ctx context.Context, queryID string) (*models.WorkQuery, error)
	List(ctx context.Context, f models.ListFilters) (*models.WorkQueryPage, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, response string, responseDate *time.Time) error
	AppendComment(ctx context.Context, id uuid.UUID, c models.Comment) error
	SetAssignee(ctx context.Context, id uuid.UUID, assignee *models.UserRef) error
	SetProofFiles(ctx context.Context, id uuid.UUID, files []models.ProofFile) error
	Statistics(ctx context.Context) (*models.Statistics, error)
	Recent(ctx context.Context, limit int) ([]models.WorkQuery, error)
	ServicesForSupervisor(ctx context.Context, supervisorID string) ([]models.ServiceRef, error)
}

// ObjectStore is the storage-gateway surface the service needs.
// Uploads are strict, deletes best-effort (the caller decides to ignore
// a delete failure, visibly, at the call site).
type ObjectStore interface {
	UploadMany(ctx context.Context, files []models.IncomingFile) ([]models.ProofFile, error)
	Delete(ctx context.Context, publicID string) error
}

// WorkQueryService orchestrates the work-query lifecycle: creation with
// batch upload and compensation, status transitions, assignment,
// commenting, file add/remove, and statistics.
type WorkQueryService struct {
	store     QueryStore
	files     ObjectStore
	validator *ProofFileValidator
	logger    *zap.SugaredLogger
}

// NewWorkQueryService creates a work query service.
func NewWorkQueryService(store QueryStore, files ObjectStore, validator *ProofFileValidator, logger *zap.SugaredLogger) *WorkQueryService {
	return &WorkQueryService{store: store, files: files, validator: validator, logger: logger}
}

// Create validates the request and every file, uploads the batch, and
// persists the record. All-or-nothing from the caller's perspective: any
// upload or persistence failure triggers best-effort deletion of every
// object that was already stored, and no document is persisted.
func (s *WorkQueryService) Create(ctx context.Context, req *models.CreateWorkQueryRequest, files []models.IncomingFile, reporter models.UserRef) (*models.WorkQuery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(files) > models.MaxProofFiles {
		return nil, &models.ValidationError{
			Limit:  "proofFiles",
			Reason: "at most 10 proof files per work query",
		}
	}
	// Every file is screened before anything is uploaded.
	if err := s.validator.ValidateAll(files); err != nil {
		return nil, err
	}

	uploaded, err := s.files.UploadMany(ctx, files)
	if err != nil {
		s.compensate(ctx, uploaded)
		return nil, err
	}

	now := time.Now().UTC()
	priority := models.Priority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	q := &models.WorkQuery{
		ID:               uuid.New(),
		QueryID:          newQueryID(),
		Title:            req.Title,
		Description:      req.Description,
		Type:             models.QueryType(req.Type),
		ServiceID:        req.ServiceID,
		ServiceTitle:     req.ServiceTitle,
		ServiceType:      req.ServiceType,
		ServiceStaffID:   req.ServiceStaffID,
		ServiceStaffName: req.ServiceStaffName,
		EmployeeID:       req.EmployeeID,
		EmployeeName:     req.EmployeeName,
		Priority:         priority,
		Status:           models.StatusPending,
		Category:         req.Category,
		ProofFiles:       uploaded,
		ReportedBy:       reporter,
		SupervisorID:     req.SupervisorID,
		SupervisorName:   req.SupervisorName,
		Comments:         []models.Comment{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if q.ProofFiles == nil {
		q.ProofFiles = []models.ProofFile{}
	}

	if err := s.store.Insert(ctx, q); err != nil {
		// The original system leaked storage objects here; deleting
		// them closes that gap at no extra cost.
		s.compensate(ctx, uploaded)
		return nil, &models.PersistenceError{Op: "create work query", Err: err}
	}

	s.logger.Infow("work query created",
		"query_id", q.QueryID,
		"type", q.Type,
		"priority", q.Priority,
		"files", len(q.ProofFiles),
	)
	return q, nil
}

// List returns a filtered, paginated page of work queries.
func (s *WorkQueryService) List(ctx context.Context, f models.ListFilters) (*models.WorkQueryPage, error) {
	return s.store.List(ctx, f)
}

// GetByID fetches a work query by its internal id.
func (s *WorkQueryService) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkQuery, error) {
	return s.store.GetByID(ctx, id)
}

// GetByQueryID fetches a work query by its human-readable id.
func (s *WorkQueryService) GetByQueryID(ctx context.Context, queryID string) (*models.WorkQuery, error) {
	return s.store.GetByQueryID(ctx, queryID)
}

// UpdateStatus writes a new status. Transitions are deliberately
// permissive (any status may follow any other); only the value itself is
// validated. A supplied response also sets the superadmin response text
// and its timestamp.
func (s *WorkQueryService) UpdateStatus(ctx context.Context, id uuid.UUID, req *models.UpdateStatusRequest) (*models.WorkQuery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var responseDate *time.Time
	if req.Response != "" {
		now := time.Now().UTC()
		responseDate = &now
	}

	if err := s.store.UpdateStatus(ctx, id, models.Status(req.Status), req.Response, responseDate); err != nil {
		return nil, err
	}

	s.logger.Infow("work query status updated", "id", id, "status", req.Status)
	return s.store.GetByID(ctx, id)
}

// AddComment appends a comment with a server-assigned timestamp.
func (s *WorkQueryService) AddComment(ctx context.Context, id uuid.UUID, author models.UserRef, req *models.AddCommentRequest) (*models.WorkQuery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := models.Comment{
		UserID:    author.UserID,
		Name:      author.Name,
		Comment:   req.Comment,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendComment(ctx, id, c); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Assign sets the assignee. It never changes status as a side effect;
// callers transition status separately if desired.
func (s *WorkQueryService) Assign(ctx context.Context, id uuid.UUID, req *models.AssignRequest) (*models.WorkQuery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	assignee := &models.UserRef{UserID: req.UserID, Name: req.Name, Role: req.Role}
	if err := s.store.SetAssignee(ctx, id, assignee); err != nil {
		return nil, err
	}

	s.logger.Infow("work query assigned", "id", id, "assignee", req.UserID)
	return s.store.GetByID(ctx, id)
}

// AddFiles validates, uploads, and appends proof files. The whole batch
// is rejected when it would push the query past the 10-file ceiling.
func (s *WorkQueryService) AddFiles(ctx context.Context, id uuid.UUID, files []models.IncomingFile) (*models.WorkQuery, error) {
	if len(files) == 0 {
		return nil, &models.ValidationError{Field: "files", Reason: "at least one file is required"}
	}

	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(files) > q.RemainingFileCapacity() {
		return nil, &models.ValidationError{
			Limit:  "proofFiles",
			Reason: "adding these files would exceed the 10-file ceiling",
		}
	}
	if err := s.validator.ValidateAll(files); err != nil {
		return nil, err
	}

	uploaded, err := s.files.UploadMany(ctx, files)
	if err != nil {
		s.compensate(ctx, uploaded)
		return nil, err
	}

	combined := append(append([]models.ProofFile{}, q.ProofFiles...), uploaded...)
	if err := s.store.SetProofFiles(ctx, id, combined); err != nil {
		s.compensate(ctx, uploaded)
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, &models.PersistenceError{Op: "add proof files", Err: err}
	}

	s.logger.Infow("proof files added", "id", id, "added", len(uploaded), "total", len(combined))
	return s.store.GetByID(ctx, id)
}

// RemoveFiles deletes the matching stored objects (best-effort) and
// removes the embedded entries. A storage delete failure is logged and
// never blocks metadata removal.
func (s *WorkQueryService) RemoveFiles(ctx context.Context, id uuid.UUID, publicIDs []string) (*models.WorkQuery, error) {
	if len(publicIDs) == 0 {
		return nil, &models.ValidationError{Field: "publicIds", Reason: "at least one publicId is required"}
	}

	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	remove := make(map[string]bool, len(publicIDs))
	for _, pid := range publicIDs {
		remove[pid] = true
	}

	kept := make([]models.ProofFile, 0, len(q.ProofFiles))
	for _, pf := range q.ProofFiles {
		if !remove[pf.PublicID] {
			kept = append(kept, pf)
			continue
		}
		if err := s.files.Delete(ctx, pf.PublicID); err != nil {
			s.logger.Warnw("storage cleanup failed", "public_id", pf.PublicID, "error", err)
		}
	}

	if len(kept) == len(q.ProofFiles) {
		// Nothing matched; the record is unchanged.
		return q, nil
	}

	if err := s.store.SetProofFiles(ctx, id, kept); err != nil {
		return nil, err
	}

	s.logger.Infow("proof files removed", "id", id, "removed", len(q.ProofFiles)-len(kept))
	return s.store.GetByID(ctx, id)
}

// Statistics aggregates counts by scanning the store at call time.
func (s *WorkQueryService) Statistics(ctx context.Context) (*models.Statistics, error) {
	return s.store.Statistics(ctx)
}

// Recent returns the most recently created work queries.
func (s *WorkQueryService) Recent(ctx context.Context, limit int) ([]models.WorkQuery, error) {
	return s.store.Recent(ctx, limit)
}

// SupervisorServices returns the distinct services visible to a supervisor.
func (s *WorkQueryService) SupervisorServices(ctx context.Context, supervisorID string) ([]models.ServiceRef, error) {
	return s.store.ServicesForSupervisor(ctx, supervisorID)
}

// compensate deletes already-uploaded objects after a failed multi-step
// operation. Best-effort: failures are logged as cleanup warnings and
// never propagated. Runs on a detached context so a cancelled request
// does not strand the objects.
func (s *WorkQueryService) compensate(ctx context.Context, uploaded []models.ProofFile) {
	if len(uploaded) == 0 {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, pf := range uploaded {
		if err := s.files.Delete(cleanupCtx, pf.PublicID); err != nil {
			s.logger.Warnw("storage cleanup failed", "public_id", pf.PublicID, "error", err)
		}
	}
	s.logger.Infow("compensating cleanup attempted", "objects", len(uploaded))
}

// newQueryID generates the human-readable query identifier, e.g.
// "WQ-20260828-3FA1B2". Uniqueness is backstopped by the unique index
// on query_id.
func newQueryID() string {
	frag := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "WQ-" + time.Now().UTC().Format("20060102") + "-" + frag
}
