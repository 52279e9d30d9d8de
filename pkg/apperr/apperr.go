// Package apperr carries the error kinds returned by the application services.
//
// Every error that leaves an application service is an *AppError. Handlers map it
// to an HTTP status and a client-safe message; Cause is logged and never serialized.
package apperr

import (
	"errors"
	"net/http"
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is the error type shared by services and handlers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	// Cause is for server-side logging only.
	Cause error `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

func BadRequest(msg string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: msg, HTTPStatus: http.StatusBadRequest}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, HTTPStatus: http.StatusConflict}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: msg, HTTPStatus: http.StatusUnauthorized}
}

// NotFound builds "<resource> not found".
func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: resource + " not found", HTTPStatus: http.StatusNotFound}
}

// Internal wraps an unexpected collaborator failure.
func Internal(msg string, cause error) *AppError {
	if msg == "" {
		msg = "something went wrong"
	}
	return &AppError{Code: CodeInternal, Message: msg, HTTPStatus: http.StatusInternalServerError, Cause: cause}
}

// As extracts the *AppError from err's chain, or nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// Is reports whether err carries an *AppError with the given code.
func Is(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
