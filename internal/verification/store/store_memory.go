package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// InMemoryStore is a thread-safe in-memory Store for tests and development.
type InMemoryStore struct {
	mu           sync.RWMutex
	certificates map[id.CertificateID]*models.Certificate
	results      map[id.CertificateID][]models.VerificationResult
	documents    map[id.CertificateID]models.DocumentRecord
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		certificates: make(map[id.CertificateID]*models.Certificate),
		results:      make(map[id.CertificateID][]models.VerificationResult),
		documents:    make(map[id.CertificateID]models.DocumentRecord),
	}
}

func (s *InMemoryStore) CreateCertificate(_ context.Context, cert *models.Certificate) error {
	if cert == nil {
		return dErrors.New(dErrors.CodeBadRequest, "certificate is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.certificates[cert.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "certificate already exists")
	}
	copied := *cert
	s.certificates[cert.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetCertificate(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.certificates[certID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	copied := *cert
	return &copied, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, certID id.CertificateID, status models.CertificateStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.certificates[certID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	cert.Status = status
	cert.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) ListCertificatesByOwner(_ context.Context, ownerID id.SubjectID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var certs []*models.Certificate
	for _, cert := range s.certificates {
		if cert.OwnerID == ownerID {
			copied := *cert
			certs = append(certs, &copied)
		}
	}
	sort.Slice(certs, func(i, j int) bool {
		return certs[i].CreatedAt.Before(certs[j].CreatedAt)
	})
	return certs, nil
}

func (s *InMemoryStore) SaveResult(_ context.Context, result models.VerificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.CertificateID] = append(s.results[result.CertificateID], result)
	return nil
}

func (s *InMemoryStore) LatestResult(_ context.Context, certID id.CertificateID) (*models.VerificationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.results[certID]
	if len(runs) == 0 {
		return nil, nil
	}
	latest := runs[0]
	for _, r := range runs[1:] {
		if r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return &latest, nil
}

func (s *InMemoryStore) SaveDocument(_ context.Context, doc models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[doc.CertificateID] = doc
	return nil
}

func (s *InMemoryStore) FindByContentHash(_ context.Context, hash string) (*models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.documents {
		if doc.ContentHash == hash {
			copied := doc
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) RecentDocuments(_ context.Context, n int) ([]models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]models.DocumentRecord, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	if n < len(docs) {
		docs = docs[:n]
	}
	return docs, nil
}

// InMemoryIssuerStore is a thread-safe in-memory IssuerStore, typically
// seeded at startup.
type InMemoryIssuerStore struct {
	mu      sync.RWMutex
	issuers map[id.IssuerID]models.TrustedIssuer
}

// NewInMemoryIssuers creates an issuer store seeded with the given issuers.
func NewInMemoryIssuers(issuers ...models.TrustedIssuer) *InMemoryIssuerStore {
	s := &InMemoryIssuerStore{issuers: make(map[id.IssuerID]models.TrustedIssuer, len(issuers))}
	for _, issuer := range issuers {
		s.issuers[issuer.ID] = issuer
	}
	return s
}

func (s *InMemoryIssuerStore) ListTrustedIssuers(_ context.Context) ([]models.TrustedIssuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issuers := make([]models.TrustedIssuer, 0, len(s.issuers))
	for _, issuer := range s.issuers {
		issuers = append(issuers, issuer)
	}
	sort.Slice(issuers, func(i, j int) bool {
		return issuers[i].Name < issuers[j].Name
	})
	return issuers, nil
}

func (s *InMemoryIssuerStore) GetTrustedIssuer(_ context.Context, issuerID id.IssuerID) (*models.TrustedIssuer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issuer, ok := s.issuers[issuerID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "trusted issuer not found")
	}
	return &issuer, nil
}

func (s *InMemoryIssuerStore) PutTrustedIssuer(_ context.Context, issuer models.TrustedIssuer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issuers[issuer.ID] = issuer
	return nil
}

// Verify interfaces are satisfied.
var (
	_ Store       = (*InMemoryStore)(nil)
	_ IssuerStore = (*InMemoryIssuerStore)(nil)
)
