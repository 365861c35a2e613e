// Package signals implements the independent verification signal extractors.
// Extractors share no state; each returns its signal value and an error that
// the orchestrator downgrades to the signal's no-match default.
package signals

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"

	"veritas/internal/verification/models"
)

// CheckQR decodes a QR payload from the document image and matches it against
// each trusted issuer's verification URL by substring containment.
//
// A document without a QR code is the normal case, not a failure: any decode
// miss yields an unverified signal and a nil error so the pipeline proceeds
// to the remaining signals.
func CheckQR(fileBytes []byte, issuers []models.TrustedIssuer) (models.QRSignal, error) {
	img, _, err := image.Decode(bytes.NewReader(fileBytes))
	if err != nil {
		return models.QRSignal{}, nil
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return models.QRSignal{}, nil
	}

	decoded, err := gozxingqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		// No QR present (or undecodable) - not an error.
		return models.QRSignal{}, nil
	}

	payload := decoded.GetText()
	for _, issuer := range issuers {
		if issuer.QRVerificationURL == "" {
			continue
		}
		if strings.Contains(payload, issuer.QRVerificationURL) {
			return models.QRSignal{
				Verified: true,
				Data:     payload,
				Issuer:   issuer.Name,
			}, nil
		}
	}

	// QR decoded but it does not reference a trusted issuer.
	return models.QRSignal{Verified: false, Data: payload}, nil
}
