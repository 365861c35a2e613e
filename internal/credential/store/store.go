// Package store persists issuance policies, issuance records, and issued
// credential documents.
package store

import (
	"context"

	"veritas/internal/credential/models"
	id "veritas/pkg/domain"
)

// PolicyStore resolves issuance policies by credential type.
type PolicyStore interface {
	// PolicyForType returns the policy gating the given credential type.
	// Absence is a policy decision: types without a policy cannot be issued.
	PolicyForType(ctx context.Context, credentialType string) (*models.IssuancePolicy, error)
	PutPolicy(ctx context.Context, policy models.IssuancePolicy) error
}

// IssuanceStore records successful issuances for the quota and cooldown gates.
type IssuanceStore interface {
	RecordIssuance(ctx context.Context, rec models.IssuanceRecord) error
	CountBySubjectAndType(ctx context.Context, subjectID id.SubjectID, credentialType string) (int, error)

	// LastIssuance returns the most recent issuance of the given type to
	// the subject, or nil if there is none.
	LastIssuance(ctx context.Context, subjectID id.SubjectID, credentialType string) (*models.IssuanceRecord, error)
}

// CredentialStore holds issued credential documents in their signed wire form.
type CredentialStore interface {
	SaveCredential(ctx context.Context, credID id.CredentialID, document []byte) error
	GetCredential(ctx context.Context, credID id.CredentialID) ([]byte, error)
}
