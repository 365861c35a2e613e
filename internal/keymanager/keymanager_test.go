package keymanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veritas/pkg/domain-errors"
)

func TestNewInMemoryHasActiveKey(t *testing.T) {
	m, err := NewInMemory()
	require.NoError(t, err)

	key, err := m.CurrentKey(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, key.Kid)
	assert.Equal(t, AlgES256, key.Alg)
	assert.NotNil(t, key.Private)
	assert.NotNil(t, key.Public)
}

func TestKeyByID(t *testing.T) {
	ctx := context.Background()
	m, err := NewInMemory()
	require.NoError(t, err)

	current, err := m.CurrentKey(ctx)
	require.NoError(t, err)

	got, err := m.KeyByID(ctx, current.Kid)
	require.NoError(t, err)
	assert.Equal(t, current.Kid, got.Kid)

	_, err = m.KeyByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRotateKeepsOldKeyResolvable(t *testing.T) {
	ctx := context.Background()
	m, err := NewInMemory()
	require.NoError(t, err)

	old, err := m.CurrentKey(ctx)
	require.NoError(t, err)

	rotated, err := m.Rotate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, old.Kid, rotated.Kid)

	current, err := m.CurrentKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated.Kid, current.Kid)

	// Credentials signed before rotation must still verify.
	archived, err := m.KeyByID(ctx, old.Kid)
	require.NoError(t, err)
	assert.Equal(t, old.Public, archived.Public)
}
