package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/findexhq/findex/application/service"
	"github.com/findexhq/findex/internal/database"
	"github.com/findexhq/findex/internal/log"
)

// APIError is a request-level error with an explicit HTTP status code.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError. cause may be nil.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// BadRequest creates an APIError that WriteError maps to 400.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message, nil)
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client-facing message.
func (e *APIError) Message() string { return e.message }

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.cause }

// ErrorDetail carries the HTTP status and a human-readable message.
type ErrorDetail struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

/// ErrorBody is the JSON error envelope: {"error": {"status", "detail"}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// WriteError writes a JSON error response, mapping known error values to
// their HTTP status. Unrecognized errors are 500s.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError
	detail := err.Error()

	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Code()
		detail = apiErr.Message()
	case errors.Is(err, service.ErrUnknownTable), errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	}

	if logger != nil {
		logger.Error("request failed",
			"request_id", log.RequestID(r.Context()),
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	WriteJSON(w, status, ErrorBody{
		Error: ErrorDetail{Status: status, Detail: detail},
	})
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
