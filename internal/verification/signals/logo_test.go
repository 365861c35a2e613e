package signals

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
)

// checkerboard builds a high-contrast test image with a distinctive hash.
func checkerboard(size, block int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/block+y/block)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			} else {
				img.SetGray(x, y, color.Gray{Y: 10})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPerceptualHashLength(t *testing.T) {
	hash := PerceptualHash(checkerboard(128, 16))
	assert.Len(t, hash, 64)
	for _, c := range hash {
		assert.Contains(t, []rune{'0', '1'}, c)
	}
}

func TestPerceptualHashScaleInvariant(t *testing.T) {
	// The same pattern at different resolutions should hash identically.
	small := PerceptualHash(checkerboard(64, 8))
	large := PerceptualHash(checkerboard(256, 32))
	assert.Equal(t, small, large)
}

func TestMatchLogoExactMatch(t *testing.T) {
	img := checkerboard(128, 16)
	issuers := []models.TrustedIssuer{
		{Name: "Example University", LogoHash: PerceptualHash(img)},
	}

	signal, err := MatchLogo(encodePNG(t, img), issuers)
	require.NoError(t, err)

	assert.True(t, signal.Matched)
	assert.Equal(t, 1.0, signal.Score)
	assert.Equal(t, "Example University", signal.Issuer)
}

func TestMatchLogoNoRegisteredHashes(t *testing.T) {
	img := checkerboard(128, 16)
	issuers := []models.TrustedIssuer{{Name: "No Logo"}}

	signal, err := MatchLogo(encodePNG(t, img), issuers)
	require.NoError(t, err)

	assert.False(t, signal.Matched)
	assert.Zero(t, signal.Score)
}

func TestMatchLogoBestIssuerWins(t *testing.T) {
	img := checkerboard(128, 16)
	hash := PerceptualHash(img)

	// Flip enough bits that the weaker candidate scores below the stronger.
	weaker := []byte(hash)
	for i := 0; i < 8; i++ {
		if weaker[i] == '0' {
			weaker[i] = '1'
		} else {
			weaker[i] = '0'
		}
	}

	issuers := []models.TrustedIssuer{
		{Name: "Close", LogoHash: string(weaker)},
		{Name: "Exact", LogoHash: hash},
	}

	signal, err := MatchLogo(encodePNG(t, img), issuers)
	require.NoError(t, err)

	assert.True(t, signal.Matched)
	assert.Equal(t, "Exact", signal.Issuer)
}

func TestMatchLogoInvalidImage(t *testing.T) {
	_, err := MatchLogo([]byte("not an image"), nil)
	assert.Error(t, err)
}
