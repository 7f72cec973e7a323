// Package errors defines the sentinel errors the search services return
// and the HTTP status each one maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCorpus           = errors.New("corpus error")
	ErrConfig           = errors.New("config error")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTimeout          = errors.New("operation timed out")
)

// sentinelStatus is consulted in order for errors that carry no status of
// their own.
var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrDocumentNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrTimeout, http.StatusGatewayTimeout},
	{ErrCorpus, http.StatusServiceUnavailable},
}

// AppError pairs a sentinel with a detail message and the status the API
// answers with.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// Corpusf reports a corpus that could not be loaded or is not loaded yet.
func Corpusf(format string, args ...any) *AppError {
	return Newf(ErrCorpus, http.StatusServiceUnavailable, format, args...)
}

// Configf reports an invalid configuration or synonym table.
func Configf(format string, args ...any) *AppError {
	return Newf(ErrConfig, http.StatusInternalServerError, format, args...)
}

// HTTPStatusCode finds the status for err: an AppError anywhere in the
// chain wins, then the known sentinels, then 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
