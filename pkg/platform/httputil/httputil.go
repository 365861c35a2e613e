// Package httputil centralizes JSON response writing and domain error
// translation for the thin HTTP glue around the trust engine.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "veritas/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	// The response body may be incomplete, but headers are already sent.
	_ = json.NewEncoder(w).Encode(response)
}

// ErrorResponse is the uniform error body returned by the glue layer.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Description string   `json:"error_description,omitempty"`
	Fields      []string `json:"fields,omitempty"`
	Retryable   bool     `json:"retryable,omitempty"`
}

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and error responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error:       string(domainErr.Code),
			Description: domainErr.Message,
			Fields:      domainErr.Fields,
			Retryable:   dErrors.IsRetryable(err),
		})
		return
	}

	// Fallback for unexpected errors
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: string(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput,
		dErrors.CodeInvariantViolation, dErrors.CodeUnknownReason:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	// Policy violations are user-correctable preconditions, not bad syntax.
	case dErrors.CodePolicyViolation, dErrors.CodePolicyNotFound, dErrors.CodeCooldownActive,
		dErrors.CodeQuotaExceeded, dErrors.CodeMissingFields, dErrors.CodeApprovalRequired:
		return http.StatusPreconditionFailed
	case dErrors.CodeCryptoFailure:
		return http.StatusUnprocessableEntity
	case dErrors.CodeInfrastructure, dErrors.CodeNoSigningKey:
		return http.StatusServiceUnavailable
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
