// Package keymutex provides fine-grained locking keyed by resource identifier.
//
// Revocation lists and issuance counters must be mutated through a single
// serialized path per key so that versions increment by exactly one and the
// latest write wins deterministically. Instead of one global lock, operations
// are distributed across a fixed set of shards based on a hash of the key,
// reducing contention under concurrent load.
package keymutex

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// KeyMutex serializes operations that share the same key. Two keys may map
// to the same shard; that only costs extra serialization, never lost updates.
type KeyMutex struct {
	shards [shardCount]sync.Mutex
}

// New creates a KeyMutex with a fixed shard table.
func New() *KeyMutex {
	return &KeyMutex{}
}

// Lock acquires the lock for the given key's shard.
func (m *KeyMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock for the given key's shard.
func (m *KeyMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// WithLock runs fn while holding the lock for key.
func (m *KeyMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func (m *KeyMutex) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
