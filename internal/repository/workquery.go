// Package repository wraps all SQL used by the work-query service. The
// aggregate is stored document-style: filterable scalars as columns,
// embedded collections (proof files, comments, actor snapshots) as JSONB.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fmdesk/workquery-server/internal/models"
)

var workQueryColumns = []string{
	"id", "query_id", "title", "description", "type",
	"service_id", "service_title", "service_type", "service_staff_id", "service_staff_name",
	"employee_id", "employee_name",
	"priority", "status", "category",
	"proof_files", "reported_by", "assigned_to",
	"supervisor_id", "supervisor_name",
	"superadmin_response", "response_date",
	"comments", "created_at", "updated_at",
}

// WorkQueryRepository is the work-query store access layer.
type WorkQueryRepository struct {
	pool *pgxpool.Pool
}

// NewWorkQueryRepository constructs a repository.
func NewWorkQueryRepository(pool *pgxpool.Pool) *WorkQueryRepository {
	return &WorkQueryRepository{pool: pool}
}

// Insert persists a freshly created work query.
func (r *WorkQueryRepository) Insert(ctx context.Context, q *models.WorkQuery) error {
	proofFiles, err := json.Marshal(q.ProofFiles)
	if err != nil {
		return fmt.Errorf("marshal proof files: %w", err)
	}
	reportedBy, err := json.Marshal(q.ReportedBy)
	if err != nil {
		return fmt.Errorf("marshal reported_by: %w", err)
	}
	comments, err := json.Marshal(q.Comments)
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO work_queries (
			id, query_id, title, description, type,
			service_id, service_title, service_type, service_staff_id, service_staff_name,
			employee_id, employee_name,
			priority, status, category,
			proof_files, reported_by, assigned_to,
			supervisor_id, supervisor_name,
			superadmin_response, response_date,
			comments, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12,
			$13, $14, $15,
			$16, $17, NULL,
			$18, $19,
			'', NULL,
			$20, $21, $22
		)
	`,
		q.ID, q.QueryID, q.Title, q.Description, q.Type,
		q.ServiceID, q.ServiceTitle, q.ServiceType, q.ServiceStaffID, q.ServiceStaffName,
		q.EmployeeID, q.EmployeeName,
		q.Priority, q.Status, q.Category,
		proofFiles, reportedBy,
		q.SupervisorID, q.SupervisorName,
		comments, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert work query: %w", err)
	}
	return nil
}

// GetByID returns a work query by its internal id.
func (r *WorkQueryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkQuery, error) {
	query, args, err := psql.Select(workQueryColumns...).
		From("work_queries").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.scanOne(r.pool.QueryRow(ctx, query, args...))
}

// GetByQueryID returns a work query by its human-readable id.
func (r *WorkQueryRepository) GetByQueryID(ctx context.Context, queryID string) (*models.WorkQuery, error) {
	query, args, err := psql.Select(workQueryColumns...).
		From("work_queries").
		Where(sq.Eq{"query_id": queryID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.scanOne(r.pool.QueryRow(ctx, query, args...))
}

// List returns one page of work queries matching the filters, newest
// first, along with the unpaginated total.
func (r *WorkQueryRepository) List(ctx context.Context, f models.ListFilters) (*models.WorkQueryPage, error) {
	where := sq.Eq{}
	if f.Status != "" {
		where["status"] = f.Status
	}
	if f.Priority != "" {
		where["priority"] = f.Priority
	}
	if f.ServiceType != "" {
		where["service_type"] = f.ServiceType
	}
	if f.SupervisorID != "" {
		where["supervisor_id"] = f.SupervisorID
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("work_queries").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count work queries: %w", err)
	}

	listSQL, listArgs, err := psql.Select(workQueryColumns...).
		From("work_queries").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list work queries: %w", err)
	}
	defer rows.Close()

	queries := make([]models.WorkQuery, 0, limit)
	for rows.Next() {
		q, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work queries: %w", err)
	}

	return &models.WorkQueryPage{Queries: queries, Total: total, Page: page, Limit: limit}, nil
}

// UpdateStatus writes a new status and, when a response is supplied,
// the superadmin response text and timestamp.
func (r *WorkQueryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, response string, responseDate *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE work_queries
		SET status = $1,
			superadmin_response = CASE WHEN $2 <> '' THEN $2 ELSE superadmin_response END,
			response_date = COALESCE($3, response_date),
			updated_at = NOW()
		WHERE id = $4
	`, status, response, responseDate, id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AppendComment appends one comment to the embedded comment list.
// Comments are never edited or deleted once added.
func (r *WorkQueryRepository) AppendComment(ctx context.Context, id uuid.UUID, c models.Comment) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE work_queries
		SET comments = comments || $1::jsonb,
			updated_at = NOW()
		WHERE id = $2
	`, payload, id)
	if err != nil {
		return fmt.Errorf("append comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetAssignee sets (or clears, when nil) the assigned actor.
func (r *WorkQueryRepository) SetAssignee(ctx context.Context, id uuid.UUID, assignee *models.UserRef) error {
	var payload []byte
	if assignee != nil {
		var err error
		payload, err = json.Marshal(assignee)
		if err != nil {
			return fmt.Errorf("marshal assignee: %w", err)
		}
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE work_queries
		SET assigned_to = $1,
			updated_at = NOW()
		WHERE id = $2
	`, payload, id)
	if err != nil {
		return fmt.Errorf("set assignee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetProofFiles replaces the embedded proof-file list. Used by both the
// add-files and remove-files operations after the service has computed
// the new list.
func (r *WorkQueryRepository) SetProofFiles(ctx context.Context, id uuid.UUID, files []models.ProofFile) error {
	if files == nil {
		files = []models.ProofFile{}
	}
	payload, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("marshal proof files: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE work_queries
		SET proof_files = $1,
			updated_at = NOW()
		WHERE id = $2
	`, payload, id)
	if err != nil {
		return fmt.Errorf("set proof files: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Statistics aggregates counts across the whole store at call time.
func (r *WorkQueryRepository) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{
		ByStatus:   make(map[string]int64),
		ByPriority: make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM work_queries").Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("count work queries: %w", err)
	}

	if err := r.groupCount(ctx, "status", stats.ByStatus); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "priority", stats.ByPriority); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "category", stats.ByCategory); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT supervisor_id, MAX(supervisor_name), COUNT(*)
		FROM work_queries
		GROUP BY supervisor_id
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query supervisor counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc models.SupervisorCount
		if err := rows.Scan(&sc.SupervisorID, &sc.SupervisorName, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan supervisor count: %w", err)
		}
		stats.BySupervisor = append(stats.BySupervisor, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supervisor counts: %w", err)
	}

	return stats, nil
}

func (r *WorkQueryRepository) groupCount(ctx context.Context, column string, into map[string]int64) error {
	// column comes from a fixed internal set, never from user input.
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(*) FROM work_queries WHERE %s <> '' GROUP BY %s
	`, column, column, column))
	if err != nil {
		return fmt.Errorf("query %s counts: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return nil
}

// Recent returns the most recently created work queries.
func (r *WorkQueryRepository) Recent(ctx context.Context, limit int) ([]models.WorkQuery, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	query, args, err := psql.Select(workQueryColumns...).
		From("work_queries").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var queries []models.WorkQuery
	for rows.Next() {
		q, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent: %w", err)
	}
	return queries, nil
}

// ServicesForSupervisor returns the distinct service references among a
// supervisor's queries, for the supervisor services view.
func (r *WorkQueryRepository) ServicesForSupervisor(ctx context.Context, supervisorID string) ([]models.ServiceRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT service_id, service_title, service_type
		FROM work_queries
		WHERE supervisor_id = $1 AND service_id <> ''
		ORDER BY service_title
	`, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("query supervisor services: %w", err)
	}
	defer rows.Close()

	var refs []models.ServiceRef
	for rows.Next() {
		var ref models.ServiceRef
		if err := rows.Scan(&ref.ServiceID, &ref.ServiceTitle, &ref.ServiceType); err != nil {
			return nil, fmt.Errorf("scan service ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate supervisor services: %w", err)
	}
	return refs, nil
}

// scanOne reads a full work-query row, unmarshalling the JSONB columns.
func (r *WorkQueryRepository) scanOne(row pgx.Row) (*models.WorkQuery, error) {
	var (
		q              models.WorkQuery
		proofFilesJSON []byte
		reportedByJSON []byte
		assignedToJSON []byte
		commentsJSON   []byte
	)
	err := row.Scan(
		&q.ID, &q.QueryID, &q.Title, &q.Description, &q.Type,
		&q.ServiceID, &q.ServiceTitle, &q.ServiceType, &q.ServiceStaffID, &q.ServiceStaffName,
		&q.EmployeeID, &q.EmployeeName,
		&q.Priority, &q.Status, &q.Category,
		&proofFilesJSON, &reportedByJSON, &assignedToJSON,
		&q.SupervisorID, &q.SupervisorName,
		&q.SuperadminResponse, &q.ResponseDate,
		&commentsJSON, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("scan work query: %w", err)
	}

	if err := json.Unmarshal(proofFilesJSON, &q.ProofFiles); err != nil {
		return nil, fmt.Errorf("unmarshal proof files: %w", err)
	}
	if err := json.Unmarshal(reportedByJSON, &q.ReportedBy); err != nil {
		return nil, fmt.Errorf("unmarshal reported_by: %w", err)
	}
	if len(assignedToJSON) > 0 {
		var assignee models.UserRef
		if err := json.Unmarshal(assignedToJSON, &assignee); err != nil {
			return nil, fmt.Errorf("unmarshal assigned_to: %w", err)
		}
		q.AssignedTo = &assignee
	}
	if err := json.Unmarshal(commentsJSON, &q.Comments); err != nil {
		return nil, fmt.Errorf("unmarshal comments: %w", err)
	}
	if q.ProofFiles == nil {
		q.ProofFiles = []models.ProofFile{}
	}
	if q.Comments == nil {
		q.Comments = []models.Comment{}
	}
	return &q, nil
}
