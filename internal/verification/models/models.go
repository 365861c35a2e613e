// Package models defines the certificate verification data model shared by
// the signal extractors, the aggregator, and the orchestrator.
package models

import (
	"time"

	id "veritas/pkg/domain"
)

// CertificateStatus is the lifecycle state of an uploaded certificate.
type CertificateStatus string

const (
	StatusPending  CertificateStatus = "pending"
	StatusVerified CertificateStatus = "verified"
	StatusRejected CertificateStatus = "rejected"
)

// Certificate is an uploaded academic certificate under verification.
// Created on upload; mutated only by the orchestrator or a manual override.
type Certificate struct {
	ID          id.CertificateID
	OwnerID     id.SubjectID
	Institution string
	Title       string
	DateIssued  string
	FileRef     string
	Status      CertificateStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TrustedIssuer is read-only reference data describing an institution whose
// certificates we can recognize. Loaded once per orchestration run.
type TrustedIssuer struct {
	ID   id.IssuerID
	Name string

	// QRVerificationURL, when set, is matched by substring containment
	// against decoded QR payloads.
	QRVerificationURL string

	// LogoHash is the institution logo's 64-bit perceptual hash as a
	// fixed-length '0'/'1' string. Empty if no logo is registered.
	LogoHash string

	// TemplatePatterns are regular expressions evaluated against OCR text.
	TemplatePatterns []string
}

// ExtractedFields is the OCR output consumed as an opaque input. Immutable.
type ExtractedFields struct {
	RawText     string
	Confidence  float64
	Title       string
	Institution string
	Date        string
	Recipient   string
	Description string
}

// Method names the verification path that produced a result.
type Method string

const (
	MethodQRVerification Method = "qr_verification"
	MethodMultiSignal    Method = "multi_signal"
	MethodManualReview   Method = "manual_review"
)

// Signal outputs. Each extractor's zero value is its "no match" default, so
// a failed extractor degrades to the zero value without special casing.

// QRSignal is the outcome of the QR payload check.
type QRSignal struct {
	Verified bool   `json:"verified"`
	Data     string `json:"data,omitempty"`
	Issuer   string `json:"issuer,omitempty"`
}

// LogoSignal is the outcome of the perceptual-hash logo match.
type LogoSignal struct {
	Matched bool    `json:"matched"`
	Score   float64 `json:"score"`
	Issuer  string  `json:"issuer,omitempty"`
	Hash    string  `json:"hash,omitempty"`
}

// TemplateSignal is the outcome of the template-pattern match.
type TemplateSignal struct {
	Matched         bool    `json:"matched"`
	Score           float64 `json:"score"`
	Issuer          string  `json:"issuer,omitempty"`
	MatchedPatterns int     `json:"matched_patterns"`
	TotalPatterns   int     `json:"total_patterns"`
}

// MetadataSignal is the outcome of the metadata-completeness check.
type MetadataSignal struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// DuplicateSignal is the outcome of the duplicate check.
type DuplicateSignal struct {
	Duplicate  bool    `json:"duplicate"`
	Similarity float64 `json:"similarity"`
	// MatchedCertificate is the prior certificate this document duplicates.
	MatchedCertificate string `json:"matched_certificate,omitempty"`
	// Basis is "content_hash" for exact byte matches, "text_similarity"
	// for near-duplicate OCR text.
	Basis string `json:"basis,omitempty"`
}

// SignalDetails collects the per-signal outputs persisted with a result.
type SignalDetails struct {
	QR        QRSignal        `json:"qr"`
	Logo      LogoSignal      `json:"logo"`
	Template  TemplateSignal  `json:"template"`
	Metadata  MetadataSignal  `json:"metadata"`
	Duplicate DuplicateSignal `json:"duplicate"`

	// FailedSignals names extractors that errored and were degraded to
	// their no-match defaults.
	FailedSignals []string `json:"failed_signals,omitempty"`
}

// VerificationResult is the persisted outcome of one verification run.
// A later run supersedes an earlier one; the latest by CreatedAt wins.
type VerificationResult struct {
	CertificateID        id.CertificateID
	ConfidenceScore      float64
	Method               Method
	AutoApproved         bool
	RequiresManualReview bool
	Decision             CertificateStatus
	Details              SignalDetails
	CreatedAt            time.Time
}

// DocumentRecord is what the duplicate detector needs to remember about a
// previously verified document.
type DocumentRecord struct {
	CertificateID id.CertificateID
	ContentHash   string
	RawText       string
	CreatedAt     time.Time
}
