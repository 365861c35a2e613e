package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"

	// Issuance policy violations. All user-correctable; each carries a
	// specific reason so callers can tell "wait out the cooldown" apart
	// from "supply the missing fields".
	CodePolicyViolation  Code = "policy_violation"
	CodePolicyNotFound   Code = "policy_not_found"
	CodeCooldownActive   Code = "cooldown_active"
	CodeQuotaExceeded    Code = "quota_exceeded"
	CodeMissingFields    Code = "missing_fields"
	CodeApprovalRequired Code = "approval_required"

	// CodeCryptoFailure marks signing or signature verification failures.
	// Fatal to the single operation; never downgraded to a warning.
	CodeCryptoFailure Code = "crypto_failure"

	// CodeInfrastructure marks unavailable collaborators (key manager,
	// durable store, reference data). Distinct from policy and crypto
	// failures so callers know the operation is retryable.
	CodeInfrastructure Code = "infrastructure_failure"
	CodeNoSigningKey   Code = "no_signing_key"

	// CodeUnknownReason marks revocation requests with an unrecognized
	// reason code.
	CodeUnknownReason Code = "unknown_revocation_reason"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error

	// Fields carries structured detail for user-correctable failures,
	// e.g. the list of missing required claims. Nil for most errors.
	Fields []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// NewWithFields creates a domain error carrying structured field detail.
func NewWithFields(code Code, msg string, fields []string) error {
	return &Error{Code: code, Message: msg, Fields: fields}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err, Fields: existing.Fields}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from a domain error, defaulting to CodeInternal
// for non-domain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// FieldsOf extracts the structured field detail from a domain error, if any.
func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// IsRetryable reports whether the failure is infrastructure-level, i.e. the
// caller may retry the same operation unchanged.
func IsRetryable(err error) bool {
	return HasCode(err, CodeInfrastructure) || HasCode(err, CodeNoSigningKey)
}
