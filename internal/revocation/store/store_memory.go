package store

import (
	"context"
	"encoding/json"
	"sync"

	"veritas/internal/revocation/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// InMemoryStore is a thread-safe in-memory Store for tests and development.
type InMemoryStore struct {
	mu    sync.RWMutex
	lists map[id.IssuerID][]byte
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{lists: make(map[id.IssuerID][]byte)}
}

func (s *InMemoryStore) GetList(_ context.Context, issuerID id.IssuerID) (*models.List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.lists[issuerID]
	if !ok {
		return nil, nil
	}
	var list models.List
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding revocation list")
	}
	return &list, nil
}

func (s *InMemoryStore) PutList(_ context.Context, list *models.List) error {
	if list == nil {
		return dErrors.New(dErrors.CodeBadRequest, "revocation list is required")
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encoding revocation list")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[list.IssuerID] = raw
	return nil
}

var _ Store = (*InMemoryStore)(nil)
