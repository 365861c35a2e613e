package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLockSerializesSameKey(t *testing.T) {
	m := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock("issuer-a", func() error {
				counter++
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestShardForIsStable(t *testing.T) {
	m := New()
	assert.Equal(t, m.shardFor("cred-1"), m.shardFor("cred-1"))
}

func TestWithLockPropagatesError(t *testing.T) {
	m := New()
	sentinel := assert.AnError
	err := m.WithLock("issuer-b", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}
