// Package apierr defines the error taxonomy shared by handlers and the
// streaming pipeline: NotFound, Configuration, Upstream and Internal errors,
// each carrying a stable machine-readable code.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes exposed in API responses and SSE error events.
const (
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeProfileNotFound  = "PROFILE_NOT_FOUND"
	CodeModelNotFound    = "MODEL_NOT_FOUND"
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeMessageNotFound  = "MESSAGE_NOT_FOUND"
	CodeUsageLogNotFound = "USAGE_LOG_NOT_FOUND"
	CodeMissingAPIKey    = "MISSING_API_KEY"
	CodeOpenRouterError  = "OPENROUTER_ERROR"
	CodeStreamError      = "STREAM_ERROR"
	CodeBackupFailed     = "BACKUP_FAILED"
	CodeRestoreFailed    = "RESTORE_FAILED"
	CodeInvalidDatabase  = "INVALID_DATABASE"
	CodeValidation       = "VALIDATION_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// Kind classifies an Error.
type Kind int

const (
	// KindNotFound marks a missing resource.
	KindNotFound Kind = iota
	// KindConfiguration marks a missing or malformed local configuration.
	KindConfiguration
	// KindValidation marks a rejected request payload.
	KindValidation
	// KindInternal marks an unexpected fault.
	KindInternal
)

// Error is a typed API error with a stable code and an HTTP status.
type Error struct {
	Kind       Kind   // Classification.
	Status     int    // HTTP status to report.
	Code       string // Stable machine-readable code.
	Message    string // Human-readable message.
	Resource   string // Resource type for not-found errors.
	ResourceID string // Resource id for not-found errors.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFound builds a 404 error for a missing resource.
func NotFound(code, resource, id string) *Error {
	return &Error{
		Kind:       KindNotFound,
		Status:     http.StatusNotFound,
		Code:       code,
		Message:    fmt.Sprintf("%s not found", resource),
		Resource:   resource,
		ResourceID: id,
	}
}

// Configuration builds a 400 error for missing or malformed configuration.
func Configuration(code, message string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Status:  http.StatusBadRequest,
		Code:    code,
		Message: message,
	}
}

// Validation builds a 400 error for a rejected request payload.
func Validation(message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: message,
	}
}

// Internal builds a 500 error for an unexpected fault.
func Internal(message string) *Error {
	return &Error{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: message,
	}
}

// As unwraps err into an *Error when possible.
func As(err error) (*Error, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	typed, ok := As(err)
	return ok && typed.Kind == KindNotFound
}
