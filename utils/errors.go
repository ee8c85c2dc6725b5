package utils

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindUpload         ErrorKind = "upload"
	KindPartialFailure ErrorKind = "partial_failure"
	KindInternal       ErrorKind = "internal"
)

// AppError is the error type returned by the service layer. The HTTP layer
// maps Kind to a status code in RespondAppError.
type AppError struct {
	Kind    ErrorKind
	Message string
	// Details lists every violated field for validation errors and the
	// affected ids for partial failures.
	Details []string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Details, ", "))
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindUpload:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(message string, details ...string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Details: details}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewUploadError(err error) *AppError {
	return &AppError{Kind: KindUpload, Message: "File upload failed", Err: err}
}

func NewPartialFailureError(message string, ids []string, err error) *AppError {
	return &AppError{Kind: KindPartialFailure, Message: message, Details: ids, Err: err}
}

// KindOf reports the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
