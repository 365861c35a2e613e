package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	a, err := NewAggregator(DefaultAggregatorConfig())
	require.NoError(t, err)
	return a
}

func TestAggregatorConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AggregatorConfig)
	}{
		{"weights do not sum to one", func(c *AggregatorConfig) { c.LogoWeight = 0.5 }},
		{"negative weight", func(c *AggregatorConfig) { c.AIWeight = -0.1 }},
		{"penalty above one", func(c *AggregatorConfig) { c.DuplicatePenalty = 1.5 }},
		{"thresholds inverted", func(c *AggregatorConfig) {
			c.AutoApproveThreshold = 0.6
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAggregatorConfig()
			tt.mutate(&cfg)
			_, err := NewAggregator(cfg)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestDecideBoundaries(t *testing.T) {
	a := newAggregator(t)

	tests := []struct {
		score        float64
		wantDecision models.CertificateStatus
		wantMethod   models.Method
		wantAuto     bool
		wantManual   bool
	}{
		{0.9000, models.StatusVerified, models.MethodMultiSignal, true, false},
		{0.8999, models.StatusPending, models.MethodManualReview, false, true},
		{0.7000, models.StatusPending, models.MethodManualReview, false, true},
		{0.6999, models.StatusRejected, models.MethodMultiSignal, false, false},
		{0.0, models.StatusRejected, models.MethodMultiSignal, false, false},
		{1.0, models.StatusVerified, models.MethodMultiSignal, true, false},
	}

	for _, tt := range tests {
		r := models.VerificationResult{ConfidenceScore: tt.score}
		a.decide(&r)
		assert.Equal(t, tt.wantDecision, r.Decision, "score %.4f", tt.score)
		assert.Equal(t, tt.wantMethod, r.Method, "score %.4f", tt.score)
		assert.Equal(t, tt.wantAuto, r.AutoApproved, "score %.4f", tt.score)
		assert.Equal(t, tt.wantManual, r.RequiresManualReview, "score %.4f", tt.score)
	}
}

func TestAggregateQRShortCircuit(t *testing.T) {
	a := newAggregator(t)
	certID := id.CertificateID(uuid.New())

	// Everything else says fraud; the verified QR still decides the run.
	details := models.SignalDetails{
		QR:        models.QRSignal{Verified: true, Issuer: "Example University"},
		Duplicate: models.DuplicateSignal{Duplicate: true, Similarity: 1.0},
	}

	r := a.Aggregate(certID, models.ExtractedFields{}, details)
	assert.Equal(t, certID, r.CertificateID)
	assert.Equal(t, 0.99, r.ConfidenceScore)
	assert.Equal(t, models.MethodQRVerification, r.Method)
	assert.True(t, r.AutoApproved)
	assert.False(t, r.RequiresManualReview)
	assert.Equal(t, models.StatusVerified, r.Decision)
}

func TestAggregateStrongDocumentAutoApproves(t *testing.T) {
	a := newAggregator(t)

	extracted := models.ExtractedFields{
		Confidence:  0.95,
		RawText:     string(make([]byte, 300)),
		Institution: "Example University",
	}
	details := models.SignalDetails{
		Logo:     models.LogoSignal{Matched: true, Score: 1.0},
		Template: models.TemplateSignal{Matched: true, Score: 1.0},
		Metadata: models.MetadataSignal{Score: 1.0},
	}

	// ai composite: 0.45 + 0.15 + 0.15 + 0.15 + 0.10 = 1.0 (capped)
	// score: 0.20 + 0.25 + 0.35 + 0.15 = 1.0
	r := a.Aggregate(id.CertificateID(uuid.New()), extracted, details)
	assert.InDelta(t, 1.0, r.ConfidenceScore, 1e-9)
	assert.True(t, r.AutoApproved)
	assert.Equal(t, models.StatusVerified, r.Decision)
}

func TestAggregateEmptyInputRejected(t *testing.T) {
	a := newAggregator(t)

	r := a.Aggregate(id.CertificateID(uuid.New()), models.ExtractedFields{}, models.SignalDetails{})

	// Only the ai floor contributes: 0.10 * 0.35 = 0.035.
	assert.InDelta(t, 0.035, r.ConfidenceScore, 1e-9)
	assert.Equal(t, models.StatusRejected, r.Decision)
	assert.False(t, r.AutoApproved)
	assert.False(t, r.RequiresManualReview)
}

func TestAggregateDuplicatePenalty(t *testing.T) {
	a := newAggregator(t)

	extracted := models.ExtractedFields{
		Confidence:  0.95,
		RawText:     string(make([]byte, 300)),
		Institution: "Example University",
	}
	details := models.SignalDetails{
		Logo:      models.LogoSignal{Matched: true, Score: 1.0},
		Template:  models.TemplateSignal{Matched: true, Score: 1.0},
		Metadata:  models.MetadataSignal{Score: 1.0},
		Duplicate: models.DuplicateSignal{Duplicate: true, Similarity: 0.97},
	}

	r := a.Aggregate(id.CertificateID(uuid.New()), extracted, details)
	assert.InDelta(t, 0.60, r.ConfidenceScore, 1e-9)
	assert.Equal(t, models.StatusRejected, r.Decision)
}

func TestAggregateDuplicatePenaltyFloorsAtZero(t *testing.T) {
	a := newAggregator(t)

	details := models.SignalDetails{
		Duplicate: models.DuplicateSignal{Duplicate: true, Similarity: 1.0},
	}

	// 0.035 - 0.40 clamps to 0 rather than going negative.
	r := a.Aggregate(id.CertificateID(uuid.New()), models.ExtractedFields{}, details)
	assert.Equal(t, 0.0, r.ConfidenceScore)
	assert.Equal(t, models.StatusRejected, r.Decision)
}

func TestAggregateMidConfidenceGoesToReview(t *testing.T) {
	a := newAggregator(t)

	extracted := models.ExtractedFields{
		Confidence:  0.8,
		RawText:     string(make([]byte, 300)),
		Institution: "Example University",
	}
	details := models.SignalDetails{
		Logo:     models.LogoSignal{Matched: true, Score: 0.85},
		Template: models.TemplateSignal{Matched: true, Score: 0.7},
		Metadata: models.MetadataSignal{Score: 0.8, Issues: []string{"short_description"}},
	}

	// ai: 0.35 + 0.15 + 0.15 + 0.15 + 0.10 = 0.90
	// score: 0.85*0.20 + 0.7*0.25 + 0.90*0.35 + 0.8*0.15 = 0.78
	r := a.Aggregate(id.CertificateID(uuid.New()), extracted, details)
	assert.InDelta(t, 0.78, r.ConfidenceScore, 1e-9)
	assert.Equal(t, models.StatusPending, r.Decision)
	assert.True(t, r.RequiresManualReview)
	assert.Equal(t, models.MethodManualReview, r.Method)
}

func TestAIComposite(t *testing.T) {
	tests := []struct {
		name      string
		extracted models.ExtractedFields
		details   models.SignalDetails
		want      float64
	}{
		{"zero input floors at 0.10", models.ExtractedFields{}, models.SignalDetails{}, 0.10},
		{"high ocr confidence alone", models.ExtractedFields{Confidence: 0.92}, models.SignalDetails{}, 0.45},
		{"mid ocr confidence", models.ExtractedFields{Confidence: 0.75}, models.SignalDetails{}, 0.35},
		{"low ocr confidence", models.ExtractedFields{Confidence: 0.5}, models.SignalDetails{}, 0.25},
		{
			"corroboration tops up",
			models.ExtractedFields{Confidence: 0.92, Institution: "X"},
			models.SignalDetails{Logo: models.LogoSignal{Matched: true}},
			0.70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, aiComposite(tt.extracted, tt.details), 1e-9)
		})
	}
}
