package signals

import (
	"context"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
)

// PriorDocuments is the slice of the result store the duplicate detector
// needs: exact-hash lookup plus a bounded window of recent documents.
type PriorDocuments interface {
	// FindByContentHash returns the prior document with the given content
	// hash, or nil if none exists.
	FindByContentHash(ctx context.Context, hash string) (*models.DocumentRecord, error)

	// RecentDocuments returns up to n most recently verified documents,
	// newest first.
	RecentDocuments(ctx context.Context, n int) ([]models.DocumentRecord, error)
}

// DuplicateDetector flags documents already seen, either byte-identical
// (content hash) or near-identical OCR text (Jaccard token similarity).
type DuplicateDetector struct {
	prior     PriorDocuments
	threshold float64
	recentN   int
}

// NewDuplicateDetector constructs a detector over the given prior-document
// window. The similarity threshold is provisional tuning (boilerplate-heavy
// certificate phrasing can false-positive), hence configurable.
func NewDuplicateDetector(prior PriorDocuments, threshold float64, recentN int) *DuplicateDetector {
	return &DuplicateDetector{prior: prior, threshold: threshold, recentN: recentN}
}

// ContentHash returns the hex BLAKE2b-256 digest of the file bytes.
func ContentHash(fileBytes []byte) string {
	sum := blake2b.Sum256(fileBytes)
	return hex.EncodeToString(sum[:])
}

// Check looks for an exact content-hash match first, then falls back to text
// similarity against the recent window. The certificate's own earlier results
// are excluded so re-verification never flags itself.
func (d *DuplicateDetector) Check(
	ctx context.Context,
	certID id.CertificateID,
	fileBytes []byte,
	rawText string,
) (models.DuplicateSignal, error) {
	hash := ContentHash(fileBytes)

	exact, err := d.prior.FindByContentHash(ctx, hash)
	if err != nil {
		return models.DuplicateSignal{}, err
	}
	if exact != nil && exact.CertificateID != certID {
		return models.DuplicateSignal{
			Duplicate:          true,
			Similarity:         1.0,
			MatchedCertificate: exact.CertificateID.String(),
			Basis:              "content_hash",
		}, nil
	}

	tokens := tokenize(rawText)
	if len(tokens) == 0 {
		return models.DuplicateSignal{}, nil
	}

	recent, err := d.prior.RecentDocuments(ctx, d.recentN)
	if err != nil {
		return models.DuplicateSignal{}, err
	}

	var signal models.DuplicateSignal
	for _, doc := range recent {
		if doc.CertificateID == certID {
			continue
		}
		similarity := jaccard(tokens, tokenize(doc.RawText))
		if similarity > signal.Similarity {
			signal.Similarity = similarity
			signal.MatchedCertificate = doc.CertificateID.String()
		}
	}

	if signal.Similarity > d.threshold {
		signal.Duplicate = true
		signal.Basis = "text_similarity"
	} else {
		signal.MatchedCertificate = ""
	}
	return signal, nil
}

// tokenize lowercases and splits on non-alphanumeric runes, returning the
// set of distinct tokens.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccard computes |A∩B| / |A∪B| over token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
