package models

// Request DTOs. Every endpoint has an explicit schema validated at the
// API boundary instead of trusting loosely-typed payloads.

// CreateWorkQueryRequest carries the non-file fields of the multipart
// create request.
type CreateWorkQueryRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Type             string `json:"type"`
	ServiceID        string `json:"serviceId"`
	ServiceTitle     string `json:"serviceTitle"`
	ServiceType      string `json:"serviceType"`
	ServiceStaffID   string `json:"serviceStaffId"`
	ServiceStaffName string `json:"serviceStaffName"`
	EmployeeID       string `json:"employeeId"`
	EmployeeName     string `json:"employeeName"`
	Priority         string `json:"priority"`
	Category         string `json:"category"`
	SupervisorID     string `json:"supervisorId"`
	SupervisorName   string `json:"supervisorName"`
}

// Validate checks required fields and enum values. The related-entity
// reference requirement depends on the query type: service queries need
// a serviceId, task queries an employeeId.
func (r *CreateWorkQueryRequest) Validate() error {
	if r.Title == "" {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if r.Description == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	qt := QueryType(r.Type)
	if !qt.IsValid() {
		return &ValidationError{Field: "type", Reason: "type must be one of: service, task"}
	}
	if qt == QueryTypeService && r.ServiceID == "" {
		return &ValidationError{Field: "serviceId", Reason: "serviceId is required for service queries"}
	}
	if qt == QueryTypeTask && r.EmployeeID == "" {
		return &ValidationError{Field: "employeeId", Reason: "employeeId is required for task queries"}
	}
	if r.SupervisorID == "" {
		return &ValidationError{Field: "supervisorId", Reason: "supervisorId is required"}
	}
	if r.Priority != "" && !Priority(r.Priority).IsValid() {
		return &ValidationError{Field: "priority", Reason: "priority must be one of: low, medium, high, critical"}
	}
	return nil
}

// UpdateStatusRequest is the PATCH /work-queries/{id}/status body.
type UpdateStatusRequest struct {
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
}

// Validate checks the status value. Transitions themselves are not
// restricted here.
func (r *UpdateStatusRequest) Validate() error {
	if !Status(r.Status).IsValid() {
		return &ValidationError{Field: "status", Reason: "status must be one of: pending, in-progress, resolved, rejected"}
	}
	return nil
}

// AddCommentRequest is the POST /work-queries/{id}/comments body. The
// commenting user is taken from the authenticated request context.
type AddCommentRequest struct {
	Comment string `json:"comment"`
}

// Validate requires a non-empty comment.
func (r *AddCommentRequest) Validate() error {
	if r.Comment == "" {
		return &ValidationError{Field: "comment", Reason: "comment is required"}
	}
	return nil
}

// AssignRequest is the PATCH /work-queries/{id}/assign body.
type AssignRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Validate requires the assignee identity.
func (r *AssignRequest) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "userId", Reason: "assignee userId is required"}
	}
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "assignee name is required"}
	}
	return nil
}

// RemoveFilesRequest is the DELETE /work-queries/{id}/files body.
type RemoveFilesRequest struct {
	PublicIDs []string `json:"publicIds"`
}

// Validate requires at least one public id.
func (r *RemoveFilesRequest) Validate() error {
	if len(r.PublicIDs) == 0 {
		return &ValidationError{Field: "publicIds", Reason: "at least one publicId is required"}
	}
	return nil
}
