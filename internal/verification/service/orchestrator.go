// Package service implements the certificate verification pipeline: signal
// extraction, confidence aggregation, and result persistence.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"veritas/internal/platform/config"
	"veritas/internal/verification/metrics"
	"veritas/internal/verification/models"
	"veritas/internal/verification/signals"
	"veritas/internal/verification/tracer"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
)

// TrustedIssuerSource provides the trusted-issuer reference data consulted by
// the QR, logo, and template signals.
type TrustedIssuerSource interface {
	ListTrustedIssuers(ctx context.Context) ([]models.TrustedIssuer, error)
}

// CertificateStore is the slice of certificate persistence the orchestrator
// needs.
type CertificateStore interface {
	GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	UpdateStatus(ctx context.Context, certID id.CertificateID, status models.CertificateStatus) error
}

// ResultStore persists verification results and the document records the
// duplicate detector scans.
type ResultStore interface {
	signals.PriorDocuments

	SaveResult(ctx context.Context, result models.VerificationResult) error
	SaveDocument(ctx context.Context, doc models.DocumentRecord) error

	// LatestResult returns the newest result for a certificate, or nil if
	// the certificate has never been verified.
	LatestResult(ctx context.Context, certID id.CertificateID) (*models.VerificationResult, error)
}

// AuditPublisher records verification outcomes on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Orchestrator runs the verification pipeline for uploaded certificates.
type Orchestrator struct {
	issuers    TrustedIssuerSource
	certs      CertificateStore
	results    ResultStore
	aggregator *Aggregator
	duplicates *signals.DuplicateDetector

	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// OrchestratorOption configures the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithAuditor sets the audit publisher.
func WithAuditor(auditor AuditPublisher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.auditor = auditor
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}

// NewOrchestrator builds the pipeline from deployment config. The aggregator
// weights are validated here so a bad config fails at startup, not per request.
func NewOrchestrator(
	cfg config.VerificationConfig,
	issuers TrustedIssuerSource,
	certs CertificateStore,
	results ResultStore,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	agg, err := NewAggregator(AggregatorConfigFrom(cfg))
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		issuers:    issuers,
		certs:      certs,
		results:    results,
		aggregator: agg,
		duplicates: signals.NewDuplicateDetector(results, cfg.DuplicateSimilarity, cfg.RecentDocuments),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Verify runs the full pipeline for one certificate: load reference data,
// extract signals, aggregate, persist, and update the certificate's status.
//
// Individual signal failures degrade to that signal's no-match default and
// are recorded in the result; only missing certificates, unavailable
// reference data, and persistence failures abort the run.
func (o *Orchestrator) Verify(
	ctx context.Context,
	certID id.CertificateID,
	fileBytes []byte,
	extracted models.ExtractedFields,
) (result *models.VerificationResult, err error) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "verification.verify",
		tracer.String("certificate_id", certID.String()))
	defer func() { span.End(err) }()

	cert, err := o.certs.GetCertificate(ctx, certID)
	if err != nil {
		return nil, err
	}

	issuers, err := o.issuers.ListTrustedIssuers(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "loading trusted issuers")
	}

	var (
		details  models.SignalDetails
		failedMu sync.Mutex
	)
	recordFailure := func(name string) {
		failedMu.Lock()
		details.FailedSignals = append(details.FailedSignals, name)
		failedMu.Unlock()
		o.metrics.IncrementSignalFailure(name)
	}

	// QR runs first: a verified payload from a trusted issuer decides the
	// run without consulting the remaining signals.
	details.QR = runSignal(o, "qr", recordFailure, func() (models.QRSignal, error) {
		return signals.CheckQR(fileBytes, issuers)
	})
	span.AddEvent("signal.qr", tracer.Bool("verified", details.QR.Verified))

	if details.QR.Verified {
		o.metrics.IncrementQRShortCircuits()
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			details.Logo = runSignal(o, "logo", recordFailure, func() (models.LogoSignal, error) {
				return signals.MatchLogo(fileBytes, issuers)
			})
			return nil
		})
		g.Go(func() error {
			details.Template = runSignal(o, "template", recordFailure, func() (models.TemplateSignal, error) {
				return signals.MatchTemplate(extracted.RawText, issuers)
			})
			return nil
		})
		g.Go(func() error {
			details.Metadata = runSignal(o, "metadata", recordFailure, func() (models.MetadataSignal, error) {
				return signals.CheckMetadata(extracted)
			})
			return nil
		})
		g.Go(func() error {
			details.Duplicate = runSignal(o, "duplicate", recordFailure, func() (models.DuplicateSignal, error) {
				return o.duplicates.Check(gctx, certID, fileBytes, extracted.RawText)
			})
			return nil
		})
		// Signal errors degrade rather than propagate, so this only
		// reflects context cancellation.
		_ = g.Wait()

		if details.Duplicate.Duplicate {
			o.metrics.IncrementDuplicatesFlagged(details.Duplicate.Basis)
		}
	}

	run := o.aggregator.Aggregate(certID, extracted, details)
	result = &run

	if err = o.persist(ctx, cert, result, fileBytes, extracted); err != nil {
		return nil, err
	}

	o.metrics.ObserveConfidenceScore(result.ConfidenceScore)
	o.metrics.IncrementRunsCompleted(string(result.Decision))
	o.metrics.ObserveRunLatency(time.Since(start).Seconds())
	span.SetAttributes(
		tracer.Float64("confidence_score", result.ConfidenceScore),
		tracer.String("decision", string(result.Decision)),
		tracer.String("method", string(result.Method)),
	)

	o.logger.Info("verification completed",
		"certificate_id", certID,
		"confidence_score", result.ConfidenceScore,
		"method", result.Method,
		"decision", result.Decision,
		"failed_signals", details.FailedSignals,
	)
	return result, nil
}

// Result returns the newest verification result for a certificate.
func (o *Orchestrator) Result(ctx context.Context, certID id.CertificateID) (*models.VerificationResult, error) {
	result, err := o.results.LatestResult(ctx, certID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate has no verification result")
	}
	return result, nil
}

// persist writes the result, the document record for future duplicate checks,
// and the certificate status, then emits the audit event. Audit failures are
// logged but do not fail the run.
func (o *Orchestrator) persist(
	ctx context.Context,
	cert *models.Certificate,
	result *models.VerificationResult,
	fileBytes []byte,
	extracted models.ExtractedFields,
) error {
	if err := o.results.SaveResult(ctx, *result); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "saving verification result")
	}
	if err := o.results.SaveDocument(ctx, models.DocumentRecord{
		CertificateID: result.CertificateID,
		ContentHash:   signals.ContentHash(fileBytes),
		RawText:       extracted.RawText,
		CreatedAt:     result.CreatedAt,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "saving document record")
	}
	if err := o.certs.UpdateStatus(ctx, result.CertificateID, result.Decision); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "updating certificate status")
	}

	if o.auditor != nil {
		event := audit.Event{
			Action:        audit.ActionVerificationCompleted,
			SubjectID:     cert.OwnerID,
			CertificateID: result.CertificateID,
			Reason:        string(result.Method),
			Metadata: map[string]string{
				"confidence_score": fmt.Sprintf("%.4f", result.ConfidenceScore),
				"decision":         string(result.Decision),
			},
		}
		if err := o.auditor.Emit(ctx, event); err != nil {
			o.logger.Error("failed to emit audit event",
				"certificate_id", result.CertificateID, "error", err)
		}
	}
	return nil
}

// runSignal executes one extractor, degrading errors and panics to the
// signal's zero value so a single misbehaving extractor cannot sink the run.
func runSignal[T any](o *Orchestrator, name string, record func(string), fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("signal extractor panicked", "signal", name, "panic", r)
			record(name)
			var zero T
			out = zero
		}
	}()

	v, err := fn()
	if err != nil {
		o.logger.Warn("signal extractor failed", "signal", name, "error", err)
		record(name)
		return out
	}
	return v
}
