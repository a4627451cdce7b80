// Package apperr provides structured error types for todo-summary.
package apperr

import (
	"errors"
	"fmt"
)

// Code represents a unique error code.
type Code string

// Error codes for todo-summary.
const (
	// Input errors
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"

	// Store errors
	CodeStore  Code = "STORE_ERROR"
	CodeSchema Code = "SCHEMA_ERROR"

	// Dispatch errors
	CodeConfiguration Code = "CONFIGURATION_ERROR"
	CodeDispatch      Code = "DISPATCH_ERROR"
)

// Category groups error codes for HTTP status mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryBadRequest
	CategoryNotFound
	CategoryInternal
)

// codeCategories maps error codes to their categories.
var codeCategories = map[Code]Category{
	CodeValidation:    CategoryBadRequest,
	CodeNotFound:      CategoryNotFound,
	CodeStore:         CategoryInternal,
	CodeSchema:        CategoryInternal,
	CodeConfiguration: CategoryInternal,
	CodeDispatch:      CategoryInternal,
}

// HTTPStatus returns the HTTP status code for a category.
func (c Category) HTTPStatus() int {
	switch c {
	case CategoryBadRequest:
		return 400
	case CategoryNotFound:
		return 404
	default:
		return 500
	}
}

// Error is the structured error type for todo-summary.
type Error struct {
	Code  Code
	What  string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.What + ": " + e.Cause.Error()
	}
	return e.What
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category returns the category for this error's code.
func (e *Error) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Category().HTTPStatus()
}

// New creates an Error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, What: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given code, message, and cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, What: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation creates a ValidationError.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

// NotFound creates a NotFoundError.
func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

// Store wraps a backing-store failure.
func Store(cause error, format string, args ...any) *Error {
	return Wrap(CodeStore, cause, format, args...)
}

// Schema wraps a schema-bootstrap failure.
func Schema(cause error, format string, args ...any) *Error {
	return Wrap(CodeSchema, cause, format, args...)
}

// Configuration creates a ConfigurationError.
func Configuration(format string, args ...any) *Error {
	return New(CodeConfiguration, format, args...)
}

// Dispatch wraps a webhook or generation failure.
func Dispatch(cause error, format string, args ...any) *Error {
	return Wrap(CodeDispatch, cause, format, args...)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// HTTPStatus returns the HTTP status for any error.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return 500
}
