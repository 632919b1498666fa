package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers.
var (
	// ErrNotFound means an id or queryId did not resolve to a record.
	ErrNotFound = errors.New("work query not found")
)

// ValidationError reports a malformed request with enough detail for the
// caller to fix it: the offending field, or the offending file and its
// declared media type, or the exceeded limit.
type ValidationError struct {
	Field     string `json:"field,omitempty"`
	File      string `json:"file,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Limit     string `json:"limit,omitempty"`
	Reason    string `json:"reason"`
}

func (e *ValidationError) Error() string {
	switch {
	case e.File != "":
		return fmt.Sprintf("invalid file %q (%s): %s", e.File, e.MediaType, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

// UploadError means the storage gateway rejected or timed out on a file.
// It always names the originating file.
type UploadError struct {
	File string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for %q: %v", e.File, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError means the store write failed after side effects (file
// uploads) had already happened; the service attempts compensating
// deletes before surfacing it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
