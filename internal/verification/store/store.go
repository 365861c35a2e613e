// Package store persists certificates, verification results, and the
// trusted-issuer reference data.
package store

import (
	"context"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
)

// Store persists certificates and verification state. Implementations must be
// safe for concurrent use.
type Store interface {
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	UpdateStatus(ctx context.Context, certID id.CertificateID, status models.CertificateStatus) error
	ListCertificatesByOwner(ctx context.Context, ownerID id.SubjectID) ([]*models.Certificate, error)

	// SaveResult appends a verification result. Results are never updated
	// in place; the newest result for a certificate wins.
	SaveResult(ctx context.Context, result models.VerificationResult) error
	LatestResult(ctx context.Context, certID id.CertificateID) (*models.VerificationResult, error)

	// SaveDocument upserts the document record used for duplicate
	// detection, keyed by certificate.
	SaveDocument(ctx context.Context, doc models.DocumentRecord) error
	FindByContentHash(ctx context.Context, hash string) (*models.DocumentRecord, error)
	RecentDocuments(ctx context.Context, n int) ([]models.DocumentRecord, error)
}

// IssuerStore provides trusted-issuer reference data.
type IssuerStore interface {
	ListTrustedIssuers(ctx context.Context) ([]models.TrustedIssuer, error)
	GetTrustedIssuer(ctx context.Context, issuerID id.IssuerID) (*models.TrustedIssuer, error)
	PutTrustedIssuer(ctx context.Context, issuer models.TrustedIssuer) error
}
