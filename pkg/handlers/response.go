// Package handlers exposes the engine over HTTP: registry CRUD, the ask
// pipeline (plain and streaming), raw SQL execution, and drill-down.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/services"
)

// ApiResponse is the uniform envelope for non-streaming endpoints.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a JSON error envelope.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{Success: false, Error: message})
}

// WriteAppError maps a pipeline error to an HTTP status and writes the
// envelope. The message comes from services.UserMessage, which never
// leaks credentials.
func WriteAppError(w http.ResponseWriter, err error) error {
	return ErrorResponse(w, statusFor(err), services.UserMessage(err))
}

func statusFor(err error) int {
	var (
		unsafeErr    *apperrors.UnsafeStatementError
		tableErr     *apperrors.UnauthorizedTableError
		fedErr       *apperrors.FederationError
		drilldownErr *apperrors.UnsupportedDrilldownError
	)

	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrNoDatasources),
		errors.As(err, &unsafeErr),
		errors.As(err, &drilldownErr):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrForbidden), errors.As(err, &tableErr):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperrors.ErrConnection), errors.As(err, &fedErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// TenantID extracts the caller's tenant from the request. The surrounding
// deployment is expected to set the header from its session layer; bare
// deployments share the default tenant.
func TenantID(r *http.Request) string {
	if tenant := r.Header.Get("X-Tenant-ID"); tenant != "" {
		return tenant
	}
	return "default"
}
