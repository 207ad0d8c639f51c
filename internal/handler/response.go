package handler

// RESPONSE HELPERS:
// These functions standardise how requests are read and responses written.
//
//   decodeJSON(w, r, &in)       → bounded body, strict JSON, 400 on garbage
//   writeJSON(w, status, data)  → Content-Type + status + body
//   writeError(w, logger, err)  → apperror sentinel → status code
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "validation_error", "message": "request validation failed",
//    "fields": {"title": "is required"}}
//
// "fields" only appears on validation errors.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/inventory-service/internal/apperror"
	"github.com/sakif/inventory-service/internal/auth"
)

// maxJSONBytes caps JSON request bodies. Photos travel as multipart and have
// their own limit.
const maxJSONBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// MessageResponse is the body of deletions and other bodiless successes.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be set BEFORE the body is written; once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that is left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation, ErrReference, ErrIntegrity → 400
//	ErrUnauthorized                           → 401
//	ErrForbidden                              → 403
//	ErrNotFound                               → 404
//	anything else (ErrStorage included)       → 500, generic message
//
// errors.Is walks the whole chain, so a service error wrapped with
// fmt.Errorf("...: %w") still matches its sentinel.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, code := classify(err)
		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   code,
				Message: appErr.Message,
				Fields:  appErr.Fields,
			})
			return
		}
	}

	// NEVER expose internal error details to the client: the raw text may
	// carry SQL, file paths or driver messages.
	logger.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrReference):
		return http.StatusBadRequest, "reference_error"
	case errors.Is(err, apperror.ErrIntegrity):
		return http.StatusBadRequest, "integrity_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields are rejected so a typo never silently becomes "field absent".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var (
			maxErr  *http.MaxBytesError
			typeErr *json.UnmarshalTypeError
		)
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("request", "No data provided")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("request", "Request body too large")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return apperror.ValidationFailed(typeErr.Field, "has the wrong type")
		}
		return apperror.ValidationFailed("request", fmt.Sprintf("Invalid JSON body: %v", err))
	}
	if dec.More() {
		return apperror.ValidationFailed("request", "Invalid JSON body: trailing data")
	}
	return nil
}

// pathID parses the {id} route parameter. A non-numeric id names nothing,
// so it is reported as not found.
func pathID(r *http.Request, resource string) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(resource, raw)
	}
	return id, nil
}

// currentUser returns the id placed in the context by auth.RequireAuth.
func currentUser(r *http.Request) (int64, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperror.Unauthorized("Token required")
	}
	return id, nil
}
