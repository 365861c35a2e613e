package store

import (
	"context"
	"sync"

	"veritas/internal/credential/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// InMemoryPolicyStore is a thread-safe in-memory PolicyStore, typically
// seeded at startup.
type InMemoryPolicyStore struct {
	mu       sync.RWMutex
	policies map[string]models.IssuancePolicy
}

// NewInMemoryPolicies creates a policy store seeded with the given policies.
func NewInMemoryPolicies(policies ...models.IssuancePolicy) *InMemoryPolicyStore {
	s := &InMemoryPolicyStore{policies: make(map[string]models.IssuancePolicy, len(policies))}
	for _, p := range policies {
		s.policies[p.Type] = p
	}
	return s
}

func (s *InMemoryPolicyStore) PolicyForType(_ context.Context, credentialType string) (*models.IssuancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[credentialType]
	if !ok {
		return nil, dErrors.New(dErrors.CodePolicyNotFound, "no issuance policy for credential type")
	}
	return &policy, nil
}

func (s *InMemoryPolicyStore) PutPolicy(_ context.Context, policy models.IssuancePolicy) error {
	if policy.Type == "" {
		return dErrors.New(dErrors.CodeBadRequest, "policy type is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.Type] = policy
	return nil
}

// InMemoryIssuanceStore is a thread-safe in-memory IssuanceStore.
type InMemoryIssuanceStore struct {
	mu      sync.RWMutex
	records []models.IssuanceRecord
}

// NewInMemoryIssuances creates an empty issuance store.
func NewInMemoryIssuances() *InMemoryIssuanceStore {
	return &InMemoryIssuanceStore{}
}

func (s *InMemoryIssuanceStore) RecordIssuance(_ context.Context, rec models.IssuanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *InMemoryIssuanceStore) CountBySubjectAndType(_ context.Context, subjectID id.SubjectID, credentialType string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.records {
		if rec.SubjectID == subjectID && rec.CredentialType == credentialType {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryIssuanceStore) LastIssuance(_ context.Context, subjectID id.SubjectID, credentialType string) (*models.IssuanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.IssuanceRecord
	for i := range s.records {
		rec := s.records[i]
		if rec.SubjectID != subjectID || rec.CredentialType != credentialType {
			continue
		}
		if latest == nil || rec.IssuedAt.After(latest.IssuedAt) {
			latest = &rec
		}
	}
	return latest, nil
}

// InMemoryCredentialStore is a thread-safe in-memory CredentialStore.
type InMemoryCredentialStore struct {
	mu        sync.RWMutex
	documents map[id.CredentialID][]byte
}

// NewInMemoryCredentials creates an empty credential store.
func NewInMemoryCredentials() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{documents: make(map[id.CredentialID][]byte)}
}

func (s *InMemoryCredentialStore) SaveCredential(_ context.Context, credID id.CredentialID, document []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(document))
	copy(copied, document)
	s.documents[credID] = copied
	return nil
}

func (s *InMemoryCredentialStore) GetCredential(_ context.Context, credID id.CredentialID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	document, ok := s.documents[credID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	copied := make([]byte, len(document))
	copy(copied, document)
	return copied, nil
}

// Verify interfaces are satisfied.
var (
	_ PolicyStore     = (*InMemoryPolicyStore)(nil)
	_ IssuanceStore   = (*InMemoryIssuanceStore)(nil)
	_ CredentialStore = (*InMemoryCredentialStore)(nil)
)
