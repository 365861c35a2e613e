// Package audit captures the durable trail of issuance, verification, and
// revocation activity. Events are emitted from domain logic and fanned out to
// a store and optional sinks; keep them transport-agnostic.
package audit

import (
	"time"

	id "veritas/pkg/domain"
)

// Action identifies what happened.
type Action string

const (
	ActionIssuanceSucceeded     Action = "issuance_succeeded"
	ActionIssuanceRejected      Action = "issuance_rejected"
	ActionVerificationCompleted Action = "verification_completed"
	ActionCredentialVerified    Action = "credential_verified"
	ActionCredentialRevoked     Action = "credential_revoked"
	ActionCredentialSuspended   Action = "credential_suspended"
	ActionCredentialRestored    Action = "credential_restored"
)

// Event is one audit record. Issuance events carry the full issuance audit
// shape (policy compliance, validation outcome, signing key); other actions
// fill the fields that apply and leave the rest zero.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor,omitempty"`

	IssuerID       id.IssuerID      `json:"issuer_id,omitempty"`
	SubjectID      id.SubjectID     `json:"subject_id,omitempty"`
	CredentialID   id.CredentialID  `json:"credential_id,omitempty"`
	CertificateID  id.CertificateID `json:"certificate_id,omitempty"`
	CredentialType string           `json:"credential_type,omitempty"`
	KeyID          string           `json:"key_id,omitempty"`

	PolicyCompliance bool `json:"policy_compliance"`
	ValidationPassed bool `json:"validation_passed"`

	Reason   string            `json:"reason,omitempty"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
