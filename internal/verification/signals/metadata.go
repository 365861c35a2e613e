package signals

import (
	"time"

	"veritas/internal/verification/models"
)

// Metadata completeness credit per field.
const (
	creditTitle       = 0.25
	creditInstitution = 0.25
	creditRecipient   = 0.20
	creditValidDate   = 0.20
	creditDescription = 0.10

	minDescriptionLen = 10
)

// CheckMetadata awards partial credit for each extracted field that is
// present and well-formed, capped at 1.0, and records issue codes for what
// is missing.
func CheckMetadata(extracted models.ExtractedFields) (models.MetadataSignal, error) {
	var signal models.MetadataSignal

	if extracted.Title != "" {
		signal.Score += creditTitle
	} else {
		signal.Issues = append(signal.Issues, "missing_title")
	}

	if extracted.Institution != "" {
		signal.Score += creditInstitution
	} else {
		signal.Issues = append(signal.Issues, "missing_institution")
	}

	if extracted.Recipient != "" {
		signal.Score += creditRecipient
	} else {
		signal.Issues = append(signal.Issues, "missing_recipient")
	}

	if isValidISODate(extracted.Date) {
		signal.Score += creditValidDate
	} else {
		signal.Issues = append(signal.Issues, "invalid_date")
	}

	if len(extracted.Description) >= minDescriptionLen {
		signal.Score += creditDescription
	} else {
		signal.Issues = append(signal.Issues, "short_description")
	}

	if signal.Score > 1.0 {
		signal.Score = 1.0
	}
	return signal, nil
}

func isValidISODate(s string) bool {
	if s == "" {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
