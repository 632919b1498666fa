// Package models defines the data structures used across the application.
// These map to the PostgreSQL work_queries schema.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxProofFiles is the ceiling on proof attachments per work query,
// enforced at creation time and on every subsequent add-files call.
const MaxProofFiles = 10

// QueryType distinguishes queries raised against a service from those
// raised against an individual employee.
type QueryType string

const (
	QueryTypeService QueryType = "service"
	QueryTypeTask    QueryType = "task"
)

// IsValid checks if the query type is one of the allowed values.
func (t QueryType) IsValid() bool {
	return t == QueryTypeService || t == QueryTypeTask
}

// Priority represents the urgency of a work query.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid checks if the priority is one of the allowed values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Status is the work-query lifecycle variable. Transitions are
// deliberately permissive: any status may be written from any other
// (see UpdateStatus in the service layer).
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// IsValid checks if the status is one of the allowed values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	default:
		return false
	}
}

// FileKind classifies a proof file by its media type at upload time.
type FileKind string

const (
	FileKindImage    FileKind = "image"
	FileKindVideo    FileKind = "video"
	FileKindDocument FileKind = "document"
	FileKindOther    FileKind = "other"
)

// Enumeration values served to the dashboard for form population.
var (
	AllStatuses   = []Status{StatusPending, StatusInProgress, StatusResolved, StatusRejected}
	AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
	AllQueryTypes = []QueryType{QueryTypeService, QueryTypeTask}

	// Category is a controlled vocabulary used for filtering and
	// statistics only; it is not validated server-side.
	AllCategories = []string{
		"service-quality",
		"staff-behaviour",
		"equipment",
		"safety",
		"billing",
		"other",
	}
)

// UserRef is an immutable snapshot of an acting user.
type UserRef struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Comment is an append-only remark on a work query. Comments are never
// edited or deleted once added.
type Comment struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// ProofFile is the embedded attachment record. Its JSON shape is the
// durable contract with the dashboard; a storage-gateway swap must
// still produce it.
type ProofFile struct {
	Name       string    `json:"name"`
	Type       FileKind  `json:"type"`
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id"`
	Size       string    `json:"size"` // human-readable, computed once at upload
	Format     string    `json:"format,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	UploadDate time.Time `json:"uploadDate"`
}

// WorkQuery is the root aggregate: a trouble ticket raised against a
// facility service or employee, carrying proof attachments and a
// resolution lifecycle.
type WorkQuery struct {
	ID      uuid.UUID `json:"id"`
	QueryID string    `json:"queryId"` // human-readable, immutable

	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        QueryType `json:"type"`

	// Denormalized reference to the related service or employee,
	// snapshotted at creation time (not live-joined).
	ServiceID        string `json:"serviceId,omitempty"`
	ServiceTitle     string `json:"serviceTitle,omitempty"`
	ServiceType      string `json:"serviceType,omitempty"`
	ServiceStaffID   string `json:"serviceStaffId,omitempty"`
	ServiceStaffName string `json:"serviceStaffName,omitempty"`
	EmployeeID       string `json:"employeeId,omitempty"`
	EmployeeName     string `json:"employeeName,omitempty"`

	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`
	Category string   `json:"category,omitempty"`

	ProofFiles []ProofFile `json:"proofFiles"`

	ReportedBy UserRef  `json:"reportedBy"`
	AssignedTo *UserRef `json:"assignedTo,omitempty"`

	SupervisorID   string `json:"supervisorId"`
	SupervisorName string `json:"supervisorName"`

	SuperadminResponse string     `json:"superadminResponse,omitempty"`
	ResponseDate       *time.Time `json:"responseDate,omitempty"`

	Comments []Comment `json:"comments"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RemainingFileCapacity returns how many more proof files the query can
// accept before hitting the ceiling.
func (q *WorkQuery) RemainingFileCapacity() int {
	return MaxProofFiles - len(q.ProofFiles)
}

// IncomingFile is a transport-parsed upload candidate, buffered in
// memory (per-file size is capped well before this point).
type IncomingFile struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// ListFilters narrows the work-query listing. Zero values mean "no
// filter". Page is 1-based.
type ListFilters struct {
	Status       string
	Priority     string
	ServiceType  string
	SupervisorID string
	Page         int
	Limit        int
}

// WorkQueryPage is one page of listing results plus the unpaginated total.
type WorkQueryPage struct {
	Queries []WorkQuery `json:"queries"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}

// SupervisorCount is one row of the per-supervisor statistics grouping.
type SupervisorCount struct {
	SupervisorID   string `json:"supervisorId"`
	SupervisorName string `json:"supervisorName"`
	Count          int64  `json:"count"`
}

// Statistics aggregates counts across the store, computed by scanning
// at call time rather than maintained counters.
type Statistics struct {
	Total        int64             `json:"total"`
	ByStatus     map[string]int64  `json:"byStatus"`
	ByPriority   map[string]int64  `json:"byPriority"`
	ByCategory   map[string]int64  `json:"byCategory"`
	BySupervisor []SupervisorCount `json:"bySupervisor"`
}

// ServiceRef is a distinct service reference visible to a supervisor.
type ServiceRef struct {
	ServiceID    string `json:"serviceId"`
	ServiceTitle string `json:"serviceTitle"`
	ServiceType  string `json:"serviceType"`
}
