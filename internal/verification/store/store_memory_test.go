package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

func newCertificate() *models.Certificate {
	now := time.Now().UTC()
	return &models.Certificate{
		ID:          id.CertificateID(uuid.New()),
		OwnerID:     id.SubjectID(uuid.New()),
		Institution: "Example University",
		Title:       "Bachelor of Science",
		DateIssued:  "2023-06-15",
		FileRef:     "uploads/cert.png",
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCertificateLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cert := newCertificate()

	require.NoError(t, s.CreateCertificate(ctx, cert))

	got, err := s.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.Institution, got.Institution)
	assert.Equal(t, models.StatusPending, got.Status)

	require.NoError(t, s.UpdateStatus(ctx, cert.ID, models.StatusVerified))
	got, err = s.GetCertificate(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, got.Status)
}

func TestCreateCertificateConflict(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	cert := newCertificate()

	require.NoError(t, s.CreateCertificate(ctx, cert))
	err := s.CreateCertificate(ctx, cert)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestGetCertificateNotFound(t *testing.T) {
	s := NewInMemory()
	_, err := s.GetCertificate(context.Background(), id.CertificateID(uuid.New()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdateStatusNotFound(t *testing.T) {
	s := NewInMemory()
	err := s.UpdateStatus(context.Background(), id.CertificateID(uuid.New()), models.StatusVerified)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListCertificatesByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	owner := id.SubjectID(uuid.New())
	for i := 0; i < 3; i++ {
		cert := newCertificate()
		cert.OwnerID = owner
		cert.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, s.CreateCertificate(ctx, cert))
	}
	require.NoError(t, s.CreateCertificate(ctx, newCertificate()))

	certs, err := s.ListCertificatesByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, certs, 3)
	assert.True(t, certs[0].CreatedAt.Before(certs[2].CreatedAt))
}

func TestLatestResultWins(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	certID := id.CertificateID(uuid.New())

	earlier := models.VerificationResult{
		CertificateID:   certID,
		ConfidenceScore: 0.5,
		Decision:        models.StatusRejected,
		CreatedAt:       time.Now().UTC().Add(-time.Hour),
	}
	later := models.VerificationResult{
		CertificateID:   certID,
		ConfidenceScore: 0.95,
		Decision:        models.StatusVerified,
		CreatedAt:       time.Now().UTC(),
	}

	// Insertion order must not matter.
	require.NoError(t, s.SaveResult(ctx, later))
	require.NoError(t, s.SaveResult(ctx, earlier))

	got, err := s.LatestResult(ctx, certID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.95, got.ConfidenceScore)
	assert.Equal(t, models.StatusVerified, got.Decision)
}

func TestLatestResultNilWhenUnverified(t *testing.T) {
	s := NewInMemory()
	got, err := s.LatestResult(context.Background(), id.CertificateID(uuid.New()))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDocumentRecords(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	doc := models.DocumentRecord{
		CertificateID: id.CertificateID(uuid.New()),
		ContentHash:   "abc123",
		RawText:       "certificate text",
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.SaveDocument(ctx, doc))

	got, err := s.FindByContentHash(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.CertificateID, got.CertificateID)

	missing, err := s.FindByContentHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveDocumentUpsertsByCertificate(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	certID := id.CertificateID(uuid.New())

	require.NoError(t, s.SaveDocument(ctx, models.DocumentRecord{
		CertificateID: certID, ContentHash: "old", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.SaveDocument(ctx, models.DocumentRecord{
		CertificateID: certID, ContentHash: "new", CreatedAt: time.Now().UTC(),
	}))

	docs, err := s.RecentDocuments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].ContentHash)
}

func TestRecentDocumentsNewestFirstAndBounded(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveDocument(ctx, models.DocumentRecord{
			CertificateID: id.CertificateID(uuid.New()),
			ContentHash:   "h",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	docs, err := s.RecentDocuments(ctx, 3)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.True(t, docs[0].CreatedAt.After(docs[1].CreatedAt))
	assert.True(t, docs[1].CreatedAt.After(docs[2].CreatedAt))
}

func TestIssuerStoreSeedAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryIssuers(
		models.TrustedIssuer{ID: "issuer-b", Name: "Beta College"},
		models.TrustedIssuer{ID: "issuer-a", Name: "Alpha University"},
	)

	issuers, err := s.ListTrustedIssuers(ctx)
	require.NoError(t, err)
	require.Len(t, issuers, 2)
	assert.Equal(t, "Alpha University", issuers[0].Name)

	got, err := s.GetTrustedIssuer(ctx, "issuer-b")
	require.NoError(t, err)
	assert.Equal(t, "Beta College", got.Name)

	_, err = s.GetTrustedIssuer(ctx, "missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestPutTrustedIssuerUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryIssuers(models.TrustedIssuer{ID: "issuer-a", Name: "Old Name"})

	require.NoError(t, s.PutTrustedIssuer(ctx, models.TrustedIssuer{ID: "issuer-a", Name: "New Name"}))
	got, err := s.GetTrustedIssuer(ctx, "issuer-a")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
}
