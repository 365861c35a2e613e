package signals

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "10101010", "10101010", 0},
		{"one bit", "10101010", "10101011", 1},
		{"all bits", "0000", "1111", 4},
		{"empty", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HammingDistance(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Symmetry
			rev, err := HammingDistance(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, got, rev)
		})
	}
}

func TestHammingDistanceBounds(t *testing.T) {
	a := strings.Repeat("1", 64)
	b := strings.Repeat("0", 64)

	d, err := HammingDistance(a, b)
	require.NoError(t, err)
	assert.Equal(t, 64, d)

	d, err = HammingDistance(a, a)
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestHammingDistanceLengthMismatch(t *testing.T) {
	_, err := HammingDistance("101", "10")
	assert.Error(t, err)
}
