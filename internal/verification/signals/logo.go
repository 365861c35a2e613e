package signals

import (
	"bytes"
	"image"

	xdraw "golang.org/x/image/draw"

	"veritas/internal/verification/models"
)

const (
	hashGrid = 8  // 8x8 cells -> 64-bit hash
	hashSide = 64 // working bitmap resolution, 8px per cell
)

// logoMatchThreshold is the minimum similarity for a logo match.
const logoMatchThreshold = 0.8

// PerceptualHash computes a 64-bit average-luminance hash of an image as a
// '0'/'1' string. The image is grayscaled and resized to a fixed grid; each
// cell contributes one bit: '1' if the cell is brighter than the mid-point of
// all cells, '0' otherwise. Robust to scaling and minor distortions.
func PerceptualHash(img image.Image) string {
	gray := image.NewGray(image.Rect(0, 0, hashSide, hashSide))
	xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	cell := hashSide / hashGrid
	var cells [hashGrid * hashGrid]float64
	var total float64
	for cy := 0; cy < hashGrid; cy++ {
		for cx := 0; cx < hashGrid; cx++ {
			var sum int
			for y := cy * cell; y < (cy+1)*cell; y++ {
				for x := cx * cell; x < (cx+1)*cell; x++ {
					sum += int(gray.GrayAt(x, y).Y)
				}
			}
			avg := float64(sum) / float64(cell*cell)
			cells[cy*hashGrid+cx] = avg
			total += avg
		}
	}

	midPoint := total / float64(len(cells))
	hash := make([]byte, len(cells))
	for i, v := range cells {
		if v > midPoint {
			hash[i] = '1'
		} else {
			hash[i] = '0'
		}
	}
	return string(hash)
}

// MatchLogo hashes the document image and compares it against every trusted
// issuer's registered logo hash via Hamming distance. The best-scoring issuer
// wins; ties keep the first-seen issuer.
func MatchLogo(fileBytes []byte, issuers []models.TrustedIssuer) (models.LogoSignal, error) {
	img, _, err := image.Decode(bytes.NewReader(fileBytes))
	if err != nil {
		return models.LogoSignal{}, err
	}

	hash := PerceptualHash(img)
	signal := models.LogoSignal{Hash: hash}

	for _, issuer := range issuers {
		if issuer.LogoHash == "" {
			continue
		}
		distance, err := HammingDistance(hash, issuer.LogoHash)
		if err != nil {
			// Malformed reference hash; skip this issuer.
			continue
		}
		score := 1 - float64(distance)/float64(len(hash))
		if score > signal.Score {
			signal.Score = score
			signal.Issuer = issuer.Name
		}
	}

	signal.Matched = signal.Score > logoMatchThreshold
	if !signal.Matched {
		signal.Issuer = ""
	}
	return signal, nil
}
