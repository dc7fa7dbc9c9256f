// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matchpost/matchpost/internal/handler/dto"
	"github.com/matchpost/matchpost/internal/middleware"
	"github.com/matchpost/matchpost/internal/service"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeConflict           = "CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
)

// NotFound handles 404 responses.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: code})
}

// decodeJSON reads a single JSON object into dst. Unknown fields and
// trailing data are rejected. It writes the error response itself and
// reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("body must contain a single JSON object")
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "request body is empty")
	case errors.As(err, &syntaxErr):
		writeError(w, http.StatusBadRequest, CodeInvalidRequest,
			fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case errors.As(err, &typeErr):
		writeError(w, http.StatusBadRequest, CodeValidation,
			fmt.Sprintf("%s: has the wrong type", typeErr.Field))
	default:
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
	}
	return false
}

// parseID reads a positive integer id from the named URL parameter.
func parseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

// handleServiceError maps a service error to an HTTP response. Messages
// of persistence failures never reach the client.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var svcErr *service.Error
	msg := "internal server error"
	if errors.As(err, &svcErr) {
		msg = svcErr.Message()
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, CodeValidation, msg)
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, CodeEmailTaken, msg)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, CodeConflict, msg)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, msg)
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, msg)
	case errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, CodeTokenExpired, msg)
	case errors.Is(err, service.ErrAuth):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
	default:
		logger.Error("request failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
