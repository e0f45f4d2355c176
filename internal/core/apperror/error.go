// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal     = "INTERNAL_ERROR"
	CodeCollaborator = "COLLABORATOR_ERROR"

	// Validation errors (400)
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidAmount = "INVALID_AMOUNT"
	CodeInvalidRate   = "INVALID_TAX_RATE"
	CodeIndexRange    = "INDEX_OUT_OF_RANGE"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeIllegalTransition      = "ILLEGAL_TRANSITION"
	CodeDocumentNotEditable    = "DOCUMENT_NOT_EDITABLE"
	CodePartialConversion      = "PARTIAL_CONVERSION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict  = "CONFLICT"
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type of the engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field, index, statuses, ...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Validation ---

// NewValidation creates a generic validation error (400).
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidAmount reports a negative or malformed monetary amount / quantity.
func NewInvalidAmount(field string, value any) *AppError {
	return NewValidation("amount must be a finite, non-negative number").
		WithDetail("reason", CodeInvalidAmount).
		WithDetail("field", field).
		WithDetail("value", value)
}

// NewInvalidTaxRate reports a tax rate outside the supported set.
func NewInvalidTaxRate(rate any) *AppError {
	return NewValidation("tax rate must be one of 0, 7, 19").
		WithDetail("reason", CodeInvalidRate).
		WithDetail("rate", rate)
}

// NewIndexOutOfRange reports an item position that does not exist.
func NewIndexOutOfRange(index, length int) *AppError {
	return NewValidation("item index out of range").
		WithDetail("reason", CodeIndexRange).
		WithDetail("index", index).
		WithDetail("length", length)
}

// --- Lifecycle ---

// NewIllegalTransition reports a status move the state machine does not allow.
func NewIllegalTransition(document string, from, to any) *AppError {
	return &AppError{
		Code:       CodeIllegalTransition,
		Message:    fmt.Sprintf("%s cannot move from %v to %v", document, from, to),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"document": document, "from": from, "to": to},
	}
}

// NewDocumentNotEditable reports a mutation attempt on a frozen document.
func NewDocumentNotEditable(document string, id any, status any) *AppError {
	return &AppError{
		Code:       CodeDocumentNotEditable,
		Message:    fmt.Sprintf("%s in status %v cannot be edited", document, status),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"document": document, "id": id, "status": status},
	}
}

// NewPartialConversion reports a quote/invoice pair that would be left inconsistent.
func NewPartialConversion(quoteID any, err error) *AppError {
	return &AppError{
		Code:       CodePartialConversion,
		Message:    "quote conversion did not commit atomically",
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"quote_id": quoteID},
		Err:        err,
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// --- Lookup / concurrency ---

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Infrastructure ---

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewCollaborator wraps a persistence or file storage failure.
// AppErrors raised by the collaborator itself (not found, optimistic lock) pass through unchanged.
func NewCollaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	return &AppError{
		Code:       CodeCollaborator,
		Message:    fmt.Sprintf("%s failed", op),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"operation": op},
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given code, either as Code or as validation reason.
func IsCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	if appErr.Code == code {
		return true
	}
	reason, _ := appErr.Details["reason"].(string)
	return reason == code
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return IsCode(err, CodeConcurrentModification)
}
