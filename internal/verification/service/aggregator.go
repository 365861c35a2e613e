package service

import (
	"fmt"
	"time"

	"veritas/internal/platform/config"
	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// qrShortCircuitScore is the confidence assigned when a trusted issuer's QR
// payload verifies. A verified QR is treated as near-certain authenticity and
// skips the weighted combination entirely.
const qrShortCircuitScore = 0.99

// AggregatorConfig carries the signal weights and decision thresholds used to
// combine signal outputs into a single confidence score.
type AggregatorConfig struct {
	LogoWeight     float64
	TemplateWeight float64
	AIWeight       float64
	MetadataWeight float64

	// DuplicatePenalty is subtracted from the weighted score when the
	// duplicate detector flags the document.
	DuplicatePenalty float64

	// AutoApproveThreshold and ManualReviewThreshold split scores into
	// auto-approve, manual-review, and reject bands. Scores at or above a
	// threshold fall into the higher band.
	AutoApproveThreshold  float64
	ManualReviewThreshold float64
}

// DefaultAggregatorConfig returns the production weight and threshold set.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		LogoWeight:            0.20,
		TemplateWeight:        0.25,
		AIWeight:              0.35,
		MetadataWeight:        0.15,
		DuplicatePenalty:      0.40,
		AutoApproveThreshold:  0.90,
		ManualReviewThreshold: 0.70,
	}
}

// AggregatorConfigFrom builds an AggregatorConfig from deployment config.
func AggregatorConfigFrom(cfg config.VerificationConfig) AggregatorConfig {
	return AggregatorConfig{
		LogoWeight:            cfg.LogoWeight,
		TemplateWeight:        cfg.TemplateWeight,
		AIWeight:              cfg.AIWeight,
		MetadataWeight:        cfg.MetadataWeight,
		DuplicatePenalty:      cfg.DuplicatePenalty,
		AutoApproveThreshold:  cfg.AutoApproveThreshold,
		ManualReviewThreshold: cfg.ManualReviewThreshold,
	}
}

// Validate rejects weight sets that cannot produce a meaningful score.
func (c AggregatorConfig) Validate() error {
	for name, w := range map[string]float64{
		"logo":     c.LogoWeight,
		"template": c.TemplateWeight,
		"ai":       c.AIWeight,
		"metadata": c.MetadataWeight,
	} {
		if w < 0 || w > 1 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s weight must be in [0,1]", name))
		}
	}
	sum := c.LogoWeight + c.TemplateWeight + c.AIWeight + c.MetadataWeight
	if sum < 0.999 || sum > 1.001 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("signal weights must sum to 1.0, got %.4f", sum))
	}
	if c.DuplicatePenalty < 0 || c.DuplicatePenalty > 1 {
		return dErrors.New(dErrors.CodeValidation, "duplicate penalty must be in [0,1]")
	}
	if c.AutoApproveThreshold <= c.ManualReviewThreshold {
		return dErrors.New(dErrors.CodeValidation, "auto-approve threshold must exceed manual-review threshold")
	}
	if c.ManualReviewThreshold <= 0 || c.AutoApproveThreshold > 1 {
		return dErrors.New(dErrors.CodeValidation, "thresholds must be in (0,1]")
	}
	return nil
}

// Aggregator combines signal outputs into a confidence score and maps the
// score onto a decision.
type Aggregator struct {
	cfg AggregatorConfig
}

// NewAggregator creates an Aggregator with validated config.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Aggregate produces the verification result for one run. A verified QR
// signal decides the run on its own; otherwise the four remaining signals
// are combined by weight, the duplicate penalty applied, and the score
// clamped to [0,1] before thresholding.
func (a *Aggregator) Aggregate(certID id.CertificateID, extracted models.ExtractedFields, details models.SignalDetails) models.VerificationResult {
	if details.QR.Verified {
		return models.VerificationResult{
			CertificateID:   certID,
			ConfidenceScore: qrShortCircuitScore,
			Method:          models.MethodQRVerification,
			AutoApproved:    true,
			Decision:        models.StatusVerified,
			Details:         details,
			CreatedAt:       time.Now().UTC(),
		}
	}

	ai := aiComposite(extracted, details)
	score := details.Logo.Score*a.cfg.LogoWeight +
		details.Template.Score*a.cfg.TemplateWeight +
		ai*a.cfg.AIWeight +
		details.Metadata.Score*a.cfg.MetadataWeight

	if details.Duplicate.Duplicate {
		score -= a.cfg.DuplicatePenalty
	}
	score = clamp01(score)

	result := models.VerificationResult{
		CertificateID:   certID,
		ConfidenceScore: score,
		Details:         details,
		CreatedAt:       time.Now().UTC(),
	}
	a.decide(&result)
	return result
}

// decide fills in the decision fields from the confidence score.
func (a *Aggregator) decide(r *models.VerificationResult) {
	switch {
	case r.ConfidenceScore >= a.cfg.AutoApproveThreshold:
		r.Method = models.MethodMultiSignal
		r.AutoApproved = true
		r.Decision = models.StatusVerified
	case r.ConfidenceScore >= a.cfg.ManualReviewThreshold:
		r.Method = models.MethodManualReview
		r.RequiresManualReview = true
		r.Decision = models.StatusPending
	default:
		r.Method = models.MethodMultiSignal
		r.Decision = models.StatusRejected
	}
}

// aiComposite estimates document plausibility from OCR confidence plus
// corroboration by the other signals. The OCR engine's own confidence sets
// the base tier; structural corroboration tops it up.
func aiComposite(extracted models.ExtractedFields, details models.SignalDetails) float64 {
	var score float64
	switch {
	case extracted.Confidence >= 0.9:
		score = 0.45
	case extracted.Confidence >= 0.75:
		score = 0.35
	case extracted.Confidence >= 0.5:
		score = 0.25
	default:
		score = 0.10
	}

	if details.Logo.Matched {
		score += 0.15
	}
	if details.Template.Matched {
		score += 0.15
	}
	if len(extracted.RawText) >= 200 {
		score += 0.15
	}
	if extracted.Institution != "" {
		score += 0.10
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
