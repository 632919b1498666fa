package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreate() CreateWorkQueryRequest {
	return CreateWorkQueryRequest{
		Title:        "Broken gate sensor",
		Description:  "North gate sensor stopped reporting",
		Type:         "service",
		ServiceID:    "SRV-42",
		SupervisorID: "SUP001",
	}
}

func TestCreateWorkQueryRequest_Validate(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*CreateWorkQueryRequest)
		wantField string
	}{
		{"valid", nil, ""},
		{"valid with priority", func(r *CreateWorkQueryRequest) { r.Priority = "critical" }, ""},
		{"missing title", func(r *CreateWorkQueryRequest) { r.Title = "" }, "title"},
		{"missing description", func(r *CreateWorkQueryRequest) { r.Description = "" }, "description"},
		{"unknown type", func(r *CreateWorkQueryRequest) { r.Type = "complaint" }, "type"},
		{"service query without serviceId", func(r *CreateWorkQueryRequest) { r.ServiceID = "" }, "serviceId"},
		{"task query without employeeId", func(r *CreateWorkQueryRequest) { r.Type = "task" }, "employeeId"},
		{"missing supervisorId", func(r *CreateWorkQueryRequest) { r.SupervisorID = "" }, "supervisorId"},
		{"unknown priority", func(r *CreateWorkQueryRequest) { r.Priority = "urgent" }, "priority"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreate()
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			err := req.Validate()
			if tc.wantField == "" {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.wantField, ve.Field)
		})
	}
}

func TestCreateWorkQueryRequest_TaskQueryNeedsNoServiceID(t *testing.T) {
	req := validCreate()
	req.Type = "task"
	req.ServiceID = ""
	req.EmployeeID = "EMP-77"
	require.NoError(t, req.Validate())
}

func TestUpdateStatusRequest_Validate(t *testing.T) {
	for _, status := range []string{"pending", "in-progress", "resolved", "rejected"} {
		req := UpdateStatusRequest{Status: status}
		assert.NoError(t, req.Validate(), status)
	}

	req := UpdateStatusRequest{Status: "closed"}
	var ve *ValidationError
	require.True(t, errors.As(req.Validate(), &ve))
	assert.Equal(t, "status", ve.Field)
}

func TestAddCommentRequest_Validate(t *testing.T) {
	assert.NoError(t, (&AddCommentRequest{Comment: "on it"}).Validate())
	assert.Error(t, (&AddCommentRequest{}).Validate())
}

func TestAssignRequest_Validate(t *testing.T) {
	assert.NoError(t, (&AssignRequest{UserID: "EMP-77", Name: "Ravi Kumar"}).Validate())
	assert.Error(t, (&AssignRequest{Name: "Ravi Kumar"}).Validate())
	assert.Error(t, (&AssignRequest{UserID: "EMP-77"}).Validate())
}

func TestRemoveFilesRequest_Validate(t *testing.T) {
	assert.NoError(t, (&RemoveFilesRequest{PublicIDs: []string{"proofs/a.jpg"}}).Validate())
	assert.Error(t, (&RemoveFilesRequest{}).Validate())
}

func TestRemainingFileCapacity(t *testing.T) {
	q := WorkQuery{}
	assert.Equal(t, MaxProofFiles, q.RemainingFileCapacity())

	q.ProofFiles = make([]ProofFile, 7)
	assert.Equal(t, 3, q.RemainingFileCapacity())
}
