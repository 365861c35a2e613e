package service

//go:generate mockgen -source=verifier.go -destination=mocks/verifier_mocks.go -package=mocks RevocationChecker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"veritas/internal/credential/metrics"
	"veritas/internal/credential/models"
	"veritas/internal/credential/proof"
	"veritas/internal/credential/schema"
	revmodels "veritas/internal/revocation/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
)

// RevocationChecker reports a credential's status on its issuer's revocation
// list.
type RevocationChecker interface {
	CheckStatus(ctx context.Context, issuerID id.IssuerID, credID id.CredentialID) (revmodels.Status, error)
}

// VerifyOptions tune a single verification.
type VerifyOptions struct {
	// AllowExpired downgrades an expired credential from an error to a
	// warning. Used when historical credentials are being inspected.
	AllowExpired bool

	// StrictMode counts warnings against validity.
	StrictMode bool

	// SkipRevocation bypasses the revocation list lookup.
	SkipRevocation bool

	// AllowedIssuers overrides the verifier's configured allow-list for
	// this call when non-empty.
	AllowedIssuers []string
}

// Verifier checks presented credentials. Every check runs regardless of
// earlier failures so the verdict lists all problems at once.
type Verifier struct {
	keys        proof.KeyResolver
	revocations RevocationChecker
	trusted     map[string]struct{}

	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
}

// VerifierOption configures the Verifier.
type VerifierOption func(*Verifier)

// WithVerifierLogger sets the structured logger.
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// WithVerifierAuditor sets the audit publisher.
func WithVerifierAuditor(auditor AuditPublisher) VerifierOption {
	return func(v *Verifier) {
		v.auditor = auditor
	}
}

// WithVerifierMetrics sets the Prometheus collectors.
func WithVerifierMetrics(m *metrics.Metrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// NewVerifier constructs the verification service. When trustedIssuerDIDs is
// non-empty, only credentials issued by a listed DID verify; callers can
// override the list per call.
func NewVerifier(
	keys proof.KeyResolver,
	revocations RevocationChecker,
	trustedIssuerDIDs []string,
	opts ...VerifierOption,
) *Verifier {
	v := &Verifier{
		keys:        keys,
		revocations: revocations,
		trusted:     make(map[string]struct{}, len(trustedIssuerDIDs)),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, did := range trustedIssuerDIDs {
		v.trusted[did] = struct{}{}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks a presented credential document: structure, issuer trust,
// validity window, proof signature, and revocation status. A verdict is
// always returned; the error return covers only malformed input that no
// check can run against.
func (v *Verifier) Verify(ctx context.Context, document []byte, opts VerifyOptions) (*models.Verdict, error) {
	verdict := &models.Verdict{CheckedAt: time.Now().UTC()}

	var vc models.VerifiableCredential
	if err := json.Unmarshal(document, &vc); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "credential is not valid json")
	}

	violations, err := schema.Validate(document)
	if err != nil {
		verdict.Errors = append(verdict.Errors, "structure: validation unavailable")
		v.metrics.IncrementVerificationFailures("structure")
	}
	for _, violation := range violations {
		verdict.Errors = append(verdict.Errors, "structure: "+violation)
	}
	if len(violations) > 0 {
		v.metrics.IncrementVerificationFailures("structure")
	}

	v.checkIssuerTrust(&vc, opts, verdict)
	v.checkValidityWindow(&vc, opts, verdict)

	if err := proof.Verify(ctx, document, v.keys); err != nil {
		verdict.Errors = append(verdict.Errors, "proof: "+err.Error())
		v.metrics.IncrementVerificationFailures("proof")
	}

	if !opts.SkipRevocation {
		v.checkRevocation(ctx, &vc, verdict)
	}

	verdict.Metadata = describeCredential(&vc)
	verdict.IsValid = len(verdict.Errors) == 0
	if opts.StrictMode && len(verdict.Warnings) > 0 {
		verdict.IsValid = false
	}

	outcome := "invalid"
	if verdict.IsValid {
		outcome = "valid"
	}
	v.metrics.IncrementVerifications(outcome)
	v.emitVerified(ctx, &vc, verdict)
	v.logger.Info("credential verified",
		"credential_id", vc.ID,
		"issuer", vc.Issuer,
		"is_valid", verdict.IsValid,
		"errors", len(verdict.Errors),
		"warnings", len(verdict.Warnings),
	)
	return verdict, nil
}

// checkIssuerTrust enforces the allow-list. No allow-list at all means the
// caller accepts any issuer.
func (v *Verifier) checkIssuerTrust(vc *models.VerifiableCredential, opts VerifyOptions, verdict *models.Verdict) {
	trusted := v.trusted
	if len(opts.AllowedIssuers) > 0 {
		trusted = make(map[string]struct{}, len(opts.AllowedIssuers))
		for _, did := range opts.AllowedIssuers {
			trusted[did] = struct{}{}
		}
	}
	if len(trusted) == 0 {
		return
	}
	if _, ok := trusted[vc.Issuer]; !ok {
		verdict.Errors = append(verdict.Errors, fmt.Sprintf("issuer: %q is not a trusted issuer", vc.Issuer))
		v.metrics.IncrementVerificationFailures("issuer")
	}
}

func describeCredential(vc *models.VerifiableCredential) map[string]string {
	metadata := map[string]string{
		"credential_id": vc.ID,
		"issuer":        vc.Issuer,
	}
	for _, t := range vc.Type {
		if t != models.TypeVerifiable {
			metadata["credential_type"] = t
			break
		}
	}
	if vc.ExpirationDate != "" {
		metadata["expiration_date"] = vc.ExpirationDate
	}
	return metadata
}

func (v *Verifier) checkValidityWindow(vc *models.VerifiableCredential, opts VerifyOptions, verdict *models.Verdict) {
	now := time.Now().UTC()

	if vc.IssuanceDate != "" {
		issued, err := time.Parse(time.RFC3339, vc.IssuanceDate)
		if err != nil {
			verdict.Errors = append(verdict.Errors, "validity: issuance date is not RFC 3339")
			v.metrics.IncrementVerificationFailures("validity")
		} else if issued.After(now) {
			verdict.Errors = append(verdict.Errors, "validity: issuance date is in the future")
			v.metrics.IncrementVerificationFailures("validity")
		}
	}

	expires, err := vc.ExpiresAt()
	if err != nil {
		verdict.Errors = append(verdict.Errors, "validity: expiration date is not RFC 3339")
		v.metrics.IncrementVerificationFailures("validity")
		return
	}
	if !expires.IsZero() && expires.Before(now) {
		if opts.AllowExpired {
			verdict.Warnings = append(verdict.Warnings, "credential is expired")
		} else {
			verdict.Errors = append(verdict.Errors, "validity: credential is expired")
			v.metrics.IncrementVerificationFailures("validity")
		}
	}
}

// checkRevocation fails closed: an unavailable revocation list is an error,
// not a pass.
func (v *Verifier) checkRevocation(ctx context.Context, vc *models.VerifiableCredential, verdict *models.Verdict) {
	if v.revocations == nil || vc.ID == "" || vc.Issuer == "" {
		return
	}

	status, err := v.revocations.CheckStatus(ctx, id.IssuerID(vc.Issuer), id.CredentialID(vc.ID))
	if err != nil {
		verdict.Errors = append(verdict.Errors, "revocation: status unavailable")
		v.metrics.IncrementVerificationFailures("revocation")
		return
	}
	verdict.RevocationStatus = string(status)

	// Any status other than active invalidates the credential.
	if status != revmodels.StatusActive {
		verdict.Errors = append(verdict.Errors, "revocation: credential status is "+string(status))
		v.metrics.IncrementVerificationFailures("revocation")
	}
}

func (v *Verifier) emitVerified(ctx context.Context, vc *models.VerifiableCredential, verdict *models.Verdict) {
	if v.auditor == nil {
		return
	}
	event := audit.Event{
		Action:           audit.ActionCredentialVerified,
		CredentialID:     id.CredentialID(vc.ID),
		ValidationPassed: verdict.IsValid,
		Metadata: map[string]string{
			"issuer":   vc.Issuer,
			"errors":   fmt.Sprintf("%d", len(verdict.Errors)),
			"warnings": fmt.Sprintf("%d", len(verdict.Warnings)),
		},
	}
	if err := v.auditor.Emit(ctx, event); err != nil {
		v.logger.Error("failed to emit audit event", "action", event.Action, "error", err)
	}
}
