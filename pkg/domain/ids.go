// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "veritas/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a SubjectID where a
// CertificateID is expected.
type (
	CertificateID uuid.UUID
	SubjectID     uuid.UUID
	IssuanceID    uuid.UUID
)

// CredentialID is the globally unique credential identifier in
// "urn:uuid:..." form, as it appears on the wire in the VC `id` field.
type CredentialID string

// IssuerID identifies a trusted or credential-issuing party. Issuer IDs are
// DIDs for credential issuers and opaque registry IDs for trusted document
// issuers, so they stay strings rather than UUIDs.
type IssuerID string

// NewCredentialID mints a fresh urn:uuid credential identifier.
func NewCredentialID() CredentialID {
	return CredentialID("urn:uuid:" + uuid.NewString())
}

// NewIssuanceID mints a fresh issuance attempt identifier.
func NewIssuanceID() IssuanceID {
	return IssuanceID(uuid.New())
}

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseCertificateID(s string) (CertificateID, error) {
	id, err := parseUUID(s, "certificate ID")
	return CertificateID(id), err
}

func ParseSubjectID(s string) (SubjectID, error) {
	id, err := parseUUID(s, "subject ID")
	return SubjectID(id), err
}

func ParseIssuanceID(s string) (IssuanceID, error) {
	id, err := parseUUID(s, "issuance ID")
	return IssuanceID(id), err
}

// ParseCredentialID validates the urn:uuid form of a credential identifier.
func ParseCredentialID(s string) (CredentialID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	raw, ok := strings.CutPrefix(s, "urn:uuid:")
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "credential ID must be a urn:uuid")
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid credential ID format")
	}
	return CredentialID(s), nil
}

func ParseIssuerID(s string) (IssuerID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "issuer ID cannot be empty")
	}
	return IssuerID(s), nil
}

// String methods - for logging and persistence.

func (id CertificateID) String() string { return uuid.UUID(id).String() }
func (id SubjectID) String() string     { return uuid.UUID(id).String() }
func (id IssuanceID) String() string    { return uuid.UUID(id).String() }
func (id CredentialID) String() string  { return string(id) }
func (id IssuerID) String() string      { return string(id) }

// JSON methods - UUID-backed IDs travel as their canonical string form.

func (id CertificateID) MarshalJSON() ([]byte, error) { return marshalUUID(uuid.UUID(id)) }
func (id SubjectID) MarshalJSON() ([]byte, error)     { return marshalUUID(uuid.UUID(id)) }
func (id IssuanceID) MarshalJSON() ([]byte, error)    { return marshalUUID(uuid.UUID(id)) }

func (id *CertificateID) UnmarshalJSON(data []byte) error {
	parsed, err := unmarshalUUID(data, "certificate ID")
	*id = CertificateID(parsed)
	return err
}

func (id *SubjectID) UnmarshalJSON(data []byte) error {
	parsed, err := unmarshalUUID(data, "subject ID")
	*id = SubjectID(parsed)
	return err
}

func (id *IssuanceID) UnmarshalJSON(data []byte) error {
	parsed, err := unmarshalUUID(data, "issuance ID")
	*id = IssuanceID(parsed)
	return err
}

func marshalUUID(u uuid.UUID) ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

func unmarshalUUID(data []byte, label string) (uuid.UUID, error) {
	if string(data) == "null" {
		return uuid.Nil, nil
	}
	s, ok := strings.CutPrefix(string(data), `"`)
	if !ok {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must be a string")
	}
	s, ok = strings.CutSuffix(s, `"`)
	if !ok {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must be a string")
	}
	return parseUUID(s, label)
}

// IsNil checks - used for service-layer validation.

func (id CertificateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id IssuanceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool  { return id == "" }
func (id IssuerID) IsNil() bool      { return id == "" }

// parseUUID is the shared validation logic. Nil UUIDs are allowed here; use
// IsNil() at the service layer for business validation so store lookups can
// return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
