package signals

import (
	"regexp"

	"veritas/internal/verification/models"
)

// templateMatchThreshold is the minimum pattern-hit ratio for a template match.
const templateMatchThreshold = 0.6

// MatchTemplate evaluates each trusted issuer's template patterns against the
// OCR raw text. An issuer's score is the fraction of its patterns that match;
// the best score must strictly exceed the running best to replace it, so ties
// keep the first-seen issuer. Invalid patterns are skipped, not fatal.
func MatchTemplate(rawText string, issuers []models.TrustedIssuer) (models.TemplateSignal, error) {
	var best models.TemplateSignal

	for _, issuer := range issuers {
		if len(issuer.TemplatePatterns) == 0 {
			continue
		}

		matched, total := 0, 0
		for _, pattern := range issuer.TemplatePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			total++
			if re.MatchString(rawText) {
				matched++
			}
		}
		if total == 0 {
			continue
		}

		score := float64(matched) / float64(total)
		if score > best.Score {
			best = models.TemplateSignal{
				Score:           score,
				Issuer:          issuer.Name,
				MatchedPatterns: matched,
				TotalPatterns:   total,
			}
		}
	}

	best.Matched = best.Score > templateMatchThreshold
	if !best.Matched {
		best.Issuer = ""
	}
	return best, nil
}
