// Package models defines the verifiable-credential data model and the
// issuance policy shapes enforced by the issuer.
package models

import (
	"time"

	id "veritas/pkg/domain"
)

// W3C credential constants.
const (
	ContextCredentialsV1 = "https://www.w3.org/2018/credentials/v1"
	TypeVerifiable       = "VerifiableCredential"

	ProofTypeJWS          = "JsonWebSignature2020"
	ProofPurposeAssertion = "assertionMethod"
)

// Proof is a JSON Web Signature proof attached to a credential.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	ProofPurpose       string `json:"proofPurpose"`
	VerificationMethod string `json:"verificationMethod"`
	JWS                string `json:"jws"`
}

// VerifiableCredential is a W3C-shaped credential. Dates are RFC 3339 strings
// to keep the wire form canonical.
type VerifiableCredential struct {
	Context           []string       `json:"@context"`
	ID                string         `json:"id"`
	Type              []string       `json:"type"`
	Issuer            string         `json:"issuer"`
	IssuanceDate      string         `json:"issuanceDate"`
	ExpirationDate    string         `json:"expirationDate,omitempty"`
	CredentialSubject map[string]any `json:"credentialSubject"`
	Proof             *Proof         `json:"proof,omitempty"`
}

// ExpiresAt parses the expiration date; the zero time means no expiry.
func (vc *VerifiableCredential) ExpiresAt() (time.Time, error) {
	if vc.ExpirationDate == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, vc.ExpirationDate)
}

// IssuancePolicy gates issuance of one credential type.
type IssuancePolicy struct {
	Type string

	// MaxCredentialsPerSubject caps how many credentials of this type one
	// subject may hold. Zero means unlimited.
	MaxCredentialsPerSubject int

	// CooldownPeriod is the minimum gap between issuances of this type to
	// the same subject. Zero disables the cooldown.
	CooldownPeriod time.Duration

	// ValidityPeriod sets the credential's expiration. Zero means the
	// credential never expires.
	ValidityPeriod time.Duration

	// RequiredFields must all be present and non-empty in the claims.
	RequiredFields []string

	// RequiresApproval demands an explicit approval flag on the request.
	RequiresApproval bool
}

// IssueRequest asks for a credential to be issued.
type IssueRequest struct {
	SubjectID      id.SubjectID   `json:"subject_id" validate:"required"`
	SubjectDID     string         `json:"subject_did" validate:"required"`
	CredentialType string         `json:"credential_type" validate:"required"`
	Claims         map[string]any `json:"claims" validate:"required"`

	// ValiditySeconds overrides the policy's validity period for this one
	// credential when positive.
	ValiditySeconds int64 `json:"validity_seconds,omitempty"`

	// ApprovalGranted records that a reviewer signed off, for policies
	// that require it.
	ApprovalGranted bool `json:"approval_granted"`

	// CertificateID optionally links the credential to the verified
	// certificate that backs it.
	CertificateID id.CertificateID `json:"certificate_id,omitempty"`
}

// IssueResult is the outcome of a successful issuance: the signed credential
// plus the issuance record's id and timestamp for the caller's bookkeeping.
type IssueResult struct {
	Credential *VerifiableCredential `json:"credential"`
	IssuanceID id.IssuanceID         `json:"issuance_id"`
	IssuedAt   time.Time             `json:"issued_at"`
}

// Verdict is the outcome of verifying a presented credential. All checks run
// to completion so the holder sees every problem at once, not just the first.
type Verdict struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	// Metadata carries descriptive facts about the checked credential
	// (issuer, type, expiry) for callers that log or display verdicts.
	Metadata map[string]string `json:"metadata,omitempty"`

	// RevocationStatus is the credential's status on its issuer's
	// revocation list, empty when the lookup could not run.
	RevocationStatus string `json:"revocation_status,omitempty"`

	CheckedAt time.Time `json:"checked_at"`
}

// IssuanceRecord is the durable log of one successful issuance, consulted by
// the quota and cooldown gates.
type IssuanceRecord struct {
	ID             id.IssuanceID
	SubjectID      id.SubjectID
	CredentialID   id.CredentialID
	CredentialType string
	KeyID          string
	IssuedAt       time.Time
}
