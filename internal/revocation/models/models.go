// Package models defines the revocation data model: per-issuer versioned
// revocation lists and the controlled vocabulary of revocation reasons.
package models

import (
	"time"

	id "veritas/pkg/domain"
)

// Status is a credential's revocation state. Absence of a record means
// active.
type Status string

const (
	StatusActive    Status = "active"
	StatusRevoked   Status = "revoked"
	StatusSuspended Status = "suspended"
	StatusExpired   Status = "expired"
)

// StatusCode maps a status onto the numeric code used in status-list
// exports.
func StatusCode(s Status) int {
	switch s {
	case StatusRevoked:
		return 1
	case StatusSuspended:
		return 2
	case StatusExpired:
		return 3
	default:
		return 0
	}
}

// Reason is a controlled revocation reason.
type Reason struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Reason categories.
const (
	CategorySecurity       = "security"
	CategoryAdministrative = "administrative"
)

var knownReasons = map[string]Reason{
	"fraud":           {Code: "fraud", Description: "Credential obtained or used fraudulently", Category: CategorySecurity},
	"key_compromise":  {Code: "key_compromise", Description: "Signing key compromised", Category: CategorySecurity},
	"issued_in_error": {Code: "issued_in_error", Description: "Credential issued in error", Category: CategoryAdministrative},
	"superseded":      {Code: "superseded", Description: "Replaced by a newer credential", Category: CategoryAdministrative},
	"subject_request": {Code: "subject_request", Description: "Revoked at the subject's request", Category: CategoryAdministrative},
	"pending_review":  {Code: "pending_review", Description: "Suspended pending investigation", Category: CategoryAdministrative},
}

// ReasonByCode resolves a reason from the controlled vocabulary.
func ReasonByCode(code string) (Reason, bool) {
	r, ok := knownReasons[code]
	return r, ok
}

// KnownReasons returns the full vocabulary, for discovery endpoints.
func KnownReasons() []Reason {
	reasons := make([]Reason, 0, len(knownReasons))
	for _, r := range knownReasons {
		reasons = append(reasons, r)
	}
	return reasons
}

// Record is one credential's revocation entry on its issuer's list.
type Record struct {
	CredentialID id.CredentialID `json:"credential_id"`
	Status       Status          `json:"status"`
	Reason       Reason          `json:"reason"`

	// RevokedBy identifies the actor who requested the status change.
	RevokedBy string `json:"revoked_by,omitempty"`

	// Metadata carries free-form context supplied by the caller, such as
	// a case number or the superseding credential's id.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CredentialExpiry, when known, lets status reads report expired once
	// the underlying credential would have lapsed anyway.
	CredentialExpiry *time.Time `json:"credential_expiry,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List is one issuer's revocation list. Version increments on every mutation
// so consumers can cache and diff.
type List struct {
	IssuerID  id.IssuerID                 `json:"issuer_id"`
	Version   int64                       `json:"version"`
	UpdatedAt time.Time                   `json:"updated_at"`
	Records   map[id.CredentialID]*Record `json:"records"`
}

// NewList creates an empty list at version zero.
func NewList(issuerID id.IssuerID) *List {
	return &List{
		IssuerID: issuerID,
		Records:  make(map[id.CredentialID]*Record),
	}
}

// StatusListEntry is one row of a status-list export.
type StatusListEntry struct {
	CredentialID string `json:"credential_id"`
	Status       int    `json:"status"`
	Reason       string `json:"reason,omitempty"`
}

// StatusList is the externally consumable export of one issuer's list.
type StatusList struct {
	IssuerID      string            `json:"issuer_id"`
	StatusPurpose string            `json:"statusPurpose"`
	Version       int64             `json:"version"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Entries       []StatusListEntry `json:"entries"`
}
