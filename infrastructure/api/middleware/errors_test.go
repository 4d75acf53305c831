package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/findexhq/findex/application/service"
	"github.com/findexhq/findex/internal/database"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(404, "resource not found", nil)

	if err.Code() != 404 {
		t.Errorf("Code() = %v, want 404", err.Code())
	}
	if err.Message() != "resource not found" {
		t.Errorf("Message() = %v, want 'resource not found'", err.Message())
	}

	expected := "api error 404: resource not found"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAPIError_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewAPIError(500, "internal error", cause)

	expected := "api error 500: internal error: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}

	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
}

func TestAPIError_CanBeWrapped(t *testing.T) {
	apiErr := BadRequest("item_id is required")
	wrapped := fmt.Errorf("request failed: %w", apiErr)

	var target *APIError
	if !errors.As(wrapped, &target) {
		t.Fatal("should be able to extract APIError with errors.As")
	}
	if target.Code() != http.StatusBadRequest {
		t.Errorf("Code() = %v, want 400", target.Code())
	}
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestWriteError_APIError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/indexes/items", nil)

	WriteError(w, r, BadRequest("item_id is required"), nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %v, want 400", w.Code)
	}
	body := decodeErrorBody(t, w)
	if body.Error.Status != http.StatusBadRequest {
		t.Errorf("body status = %v, want 400", body.Error.Status)
	}
	if body.Error.Detail != "item_id is required" {
		t.Errorf("detail = %q, want 'item_id is required'", body.Error.Detail)
	}
}

func TestWriteError_UnknownTable(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/indexes/nope", nil)

	err := fmt.Errorf("%w: nope", service.ErrUnknownTable)
	WriteError(w, r, err, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %v, want 404", w.Code)
	}
}

func TestWriteError_NotFound(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/indexes/items", nil)

	err := fmt.Errorf("fetch row 7: %w", database.ErrNotFound)
	WriteError(w, r, err, nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %v, want 404", w.Code)
	}
}

func TestWriteError_Unrecognized(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/indexes/items", nil)

	WriteError(w, r, errors.New("boom"), nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %v, want 500", w.Code)
	}
	body := decodeErrorBody(t, w)
	if body.Error.Detail != "boom" {
		t.Errorf("detail = %q, want 'boom'", body.Error.Detail)
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	if w.Code != http.StatusOK {
		t.Errorf("status = %v, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}
