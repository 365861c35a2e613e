package signals

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
)

// qrPNG renders a QR code for the given payload as PNG bytes.
func qrPNG(t *testing.T, payload string) []byte {
	t.Helper()

	matrix, err := gozxingqr.NewQRCodeWriter().Encode(
		payload, gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	require.NoError(t, err)

	img := image.NewGray(image.Rect(0, 0, matrix.GetWidth(), matrix.GetHeight()))
	for y := 0; y < matrix.GetHeight(); y++ {
		for x := 0; x < matrix.GetWidth(); x++ {
			if matrix.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCheckQRMatchesTrustedIssuer(t *testing.T) {
	issuers := []models.TrustedIssuer{
		{Name: "Example University", QRVerificationURL: "https://verify.example.edu/cert"},
	}

	payload := "https://verify.example.edu/cert?id=42"
	signal, err := CheckQR(qrPNG(t, payload), issuers)
	require.NoError(t, err)

	assert.True(t, signal.Verified)
	assert.Equal(t, payload, signal.Data)
	assert.Equal(t, "Example University", signal.Issuer)
}

func TestCheckQRUntrustedPayload(t *testing.T) {
	issuers := []models.TrustedIssuer{
		{Name: "Example University", QRVerificationURL: "https://verify.example.edu/cert"},
	}

	signal, err := CheckQR(qrPNG(t, "https://evil.example.com/fake"), issuers)
	require.NoError(t, err)

	assert.False(t, signal.Verified)
	assert.Empty(t, signal.Issuer)
	assert.Equal(t, "https://evil.example.com/fake", signal.Data)
}

func TestCheckQRNoCodePresent(t *testing.T) {
	// A plain white image has no QR code; that is not an error.
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	signal, err := CheckQR(buf.Bytes(), nil)
	require.NoError(t, err)
	assert.False(t, signal.Verified)
}

func TestCheckQRGarbageBytes(t *testing.T) {
	signal, err := CheckQR([]byte("not an image"), nil)
	require.NoError(t, err)
	assert.False(t, signal.Verified)
}
