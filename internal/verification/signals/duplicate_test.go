package signals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
)

type fakePrior struct {
	docs []models.DocumentRecord
}

func (f *fakePrior) FindByContentHash(_ context.Context, hash string) (*models.DocumentRecord, error) {
	for i := range f.docs {
		if f.docs[i].ContentHash == hash {
			return &f.docs[i], nil
		}
	}
	return nil, nil
}

func (f *fakePrior) RecentDocuments(_ context.Context, n int) ([]models.DocumentRecord, error) {
	if n > len(f.docs) {
		n = len(f.docs)
	}
	return f.docs[:n], nil
}

func newCertID() id.CertificateID { return id.CertificateID(uuid.New()) }

func TestDuplicateExactContentHash(t *testing.T) {
	file := []byte("the exact same file bytes")
	priorCert := newCertID()
	prior := &fakePrior{docs: []models.DocumentRecord{{
		CertificateID: priorCert,
		ContentHash:   ContentHash(file),
		RawText:       "whatever",
		CreatedAt:     time.Now(),
	}}}

	d := NewDuplicateDetector(prior, 0.95, 10)
	signal, err := d.Check(context.Background(), newCertID(), file, "whatever")
	require.NoError(t, err)

	assert.True(t, signal.Duplicate)
	assert.Equal(t, 1.0, signal.Similarity)
	assert.Equal(t, "content_hash", signal.Basis)
	assert.Equal(t, priorCert.String(), signal.MatchedCertificate)
}

func TestDuplicateOwnPriorResultIgnored(t *testing.T) {
	file := []byte("same bytes on re-verification")
	certID := newCertID()
	prior := &fakePrior{docs: []models.DocumentRecord{{
		CertificateID: certID,
		ContentHash:   ContentHash(file),
		RawText:       "identical text from the first run",
	}}}

	d := NewDuplicateDetector(prior, 0.95, 10)
	signal, err := d.Check(context.Background(), certID, file, "identical text from the first run")
	require.NoError(t, err)

	assert.False(t, signal.Duplicate)
}

func TestDuplicateTextSimilarity(t *testing.T) {
	priorCert := newCertID()
	text := "this certifies that jordan doe completed a bachelor of science at example university in 2023"
	prior := &fakePrior{docs: []models.DocumentRecord{{
		CertificateID: priorCert,
		ContentHash:   ContentHash([]byte("different bytes")),
		RawText:       text,
	}}}

	d := NewDuplicateDetector(prior, 0.95, 10)
	signal, err := d.Check(context.Background(), newCertID(), []byte("scan of the same paper"), text)
	require.NoError(t, err)

	assert.True(t, signal.Duplicate)
	assert.Equal(t, "text_similarity", signal.Basis)
	assert.Equal(t, 1.0, signal.Similarity)
	assert.Equal(t, priorCert.String(), signal.MatchedCertificate)
}

func TestDistinctTextsNotFlagged(t *testing.T) {
	prior := &fakePrior{docs: []models.DocumentRecord{{
		CertificateID: newCertID(),
		ContentHash:   ContentHash([]byte("a")),
		RawText:       "bachelor of arts in history from north college",
	}}}

	d := NewDuplicateDetector(prior, 0.95, 10)
	signal, err := d.Check(context.Background(), newCertID(),
		[]byte("b"), "master of engineering from south institute awarded 2022")
	require.NoError(t, err)

	assert.False(t, signal.Duplicate)
	assert.Empty(t, signal.MatchedCertificate)
}

func TestEmptyTextNeverDuplicate(t *testing.T) {
	prior := &fakePrior{docs: []models.DocumentRecord{{
		CertificateID: newCertID(),
		ContentHash:   ContentHash([]byte("a")),
		RawText:       "",
	}}}

	d := NewDuplicateDetector(prior, 0.95, 10)
	signal, err := d.Check(context.Background(), newCertID(), []byte("b"), "")
	require.NoError(t, err)
	assert.False(t, signal.Duplicate)
}

func TestJaccard(t *testing.T) {
	a := tokenize("alpha beta gamma")
	b := tokenize("beta gamma delta")
	assert.InDelta(t, 0.5, jaccard(a, b), 1e-9)

	// Symmetry
	assert.Equal(t, jaccard(a, b), jaccard(b, a))
}
