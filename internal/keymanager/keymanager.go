// Package keymanager owns the signing keys used for credential proofs.
//
// Keys are ECDSA P-256 (ES256). Rotation keeps superseded keys available for
// verification so credentials signed before a rotation still verify.
package keymanager

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "veritas/pkg/domain-errors"
)

// AlgES256 is the only signing algorithm in use.
const AlgES256 = "ES256"

// SigningKey is one key pair under management. The private key is nil for
// keys loaded verification-only.
type SigningKey struct {
	Kid       string
	Alg       string
	Private   *ecdsa.PrivateKey
	Public    *ecdsa.PublicKey
	CreatedAt time.Time
}

// KeyManager resolves signing keys. Implementations must be safe for
// concurrent use.
type KeyManager interface {
	// CurrentKey returns the active signing key.
	CurrentKey(ctx context.Context) (*SigningKey, error)

	// KeyByID returns the key with the given kid, current or superseded.
	KeyByID(ctx context.Context, kid string) (*SigningKey, error)
}

// InMemoryKeyManager holds generated keys in process memory. Suitable for
// development and tests; production deployments back this with an HSM or KMS
// behind the same interface.
type InMemoryKeyManager struct {
	mu      sync.RWMutex
	current string
	keys    map[string]*SigningKey
}

// NewInMemory creates a key manager with one freshly generated active key.
func NewInMemory() (*InMemoryKeyManager, error) {
	m := &InMemoryKeyManager{keys: make(map[string]*SigningKey)}
	if _, err := m.Rotate(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// CurrentKey returns the active signing key.
func (m *InMemoryKeyManager) CurrentKey(_ context.Context) (*SigningKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.keys[m.current]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNoSigningKey, "no active signing key")
	}
	return key, nil
}

// KeyByID returns the key with the given kid, whether active or superseded.
func (m *InMemoryKeyManager) KeyByID(_ context.Context, kid string) (*SigningKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.keys[kid]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "signing key not found")
	}
	return key, nil
}

// Rotate generates a new active key. The previous key stays resolvable by kid
// so existing proofs keep verifying.
func (m *InMemoryKeyManager) Rotate(_ context.Context) (*SigningKey, error) {
	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "generating signing key")
	}

	key := &SigningKey{
		Kid:       uuid.NewString(),
		Alg:       AlgES256,
		Private:   private,
		Public:    &private.PublicKey,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.Kid] = key
	m.current = key.Kid
	return key, nil
}

var _ KeyManager = (*InMemoryKeyManager)(nil)
