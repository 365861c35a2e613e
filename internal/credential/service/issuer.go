// Package service implements credential issuance and verification.
package service

//go:generate mockgen -source=issuer.go -destination=mocks/mocks.go -package=mocks AuditPublisher
//go:generate mockgen -source=../../keymanager/keymanager.go -destination=mocks/keymanager_mocks.go -package=mocks KeyManager

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/tidwall/sjson"

	"veritas/internal/credential/metrics"
	"veritas/internal/credential/models"
	"veritas/internal/credential/proof"
	"veritas/internal/credential/schema"
	"veritas/internal/credential/store"
	"veritas/internal/keymanager"
	"veritas/internal/platform/config"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
	"veritas/pkg/platform/keymutex"
	"veritas/pkg/validation"
)

// AuditPublisher records issuance and verification outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Issuer gates, signs, and records credential issuance.
type Issuer struct {
	policies    store.PolicyStore
	issuances   store.IssuanceStore
	credentials store.CredentialStore
	keys        keymanager.KeyManager

	issuerDID string
	defaults  config.IssuanceConfig

	locks   *keymutex.KeyMutex
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
}

// IssuerOption configures the Issuer.
type IssuerOption func(*Issuer)

// WithIssuerLogger sets the structured logger.
func WithIssuerLogger(logger *slog.Logger) IssuerOption {
	return func(i *Issuer) {
		i.logger = logger
	}
}

// WithIssuerAuditor sets the audit publisher.
func WithIssuerAuditor(auditor AuditPublisher) IssuerOption {
	return func(i *Issuer) {
		i.auditor = auditor
	}
}

// WithIssuerMetrics sets the Prometheus collectors.
func WithIssuerMetrics(m *metrics.Metrics) IssuerOption {
	return func(i *Issuer) {
		i.metrics = m
	}
}

// NewIssuer constructs the issuance service.
func NewIssuer(
	issuerDID string,
	defaults config.IssuanceConfig,
	policies store.PolicyStore,
	issuances store.IssuanceStore,
	credentials store.CredentialStore,
	keys keymanager.KeyManager,
	opts ...IssuerOption,
) *Issuer {
	i := &Issuer{
		policies:    policies,
		issuances:   issuances,
		credentials: credentials,
		keys:        keys,
		issuerDID:   issuerDID,
		defaults:    defaults,
		locks:       keymutex.New(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue runs the full issuance pipeline: validate the request, enforce the
// type's policy gates, sign, re-validate the signed document, and persist.
//
// Policy gates are checked in a fixed order so a request failing several
// gates always reports the same reason: policy existence, cooldown, quota,
// required fields, approval, signing key. Every attempt is audited, rejected
// or not.
func (i *Issuer) Issue(ctx context.Context, req models.IssueRequest) (result *models.IssueResult, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			i.auditRejection(ctx, req, err)
		}
		i.metrics.ObserveIssuanceLatency(time.Since(start).Seconds())
	}()

	if err = validation.Validate(req); err != nil {
		return nil, err
	}

	// Serialize per (type, subject) so concurrent requests cannot both
	// pass the quota or cooldown gates.
	lockKey := req.CredentialType + "|" + req.SubjectID.String()
	i.locks.Lock(lockKey)
	defer i.locks.Unlock(lockKey)

	policy, err := i.policies.PolicyForType(ctx, req.CredentialType)
	if err != nil {
		return nil, err
	}
	i.applyDefaults(policy)

	if err = i.checkGates(ctx, req, policy); err != nil {
		return nil, err
	}

	key, err := i.keys.CurrentKey(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNoSigningKey, "no signing key available")
	}

	now := time.Now().UTC()
	vc := i.buildCredential(req, policy, now)

	document, err := json.Marshal(vc)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encoding credential")
	}
	p, err := proof.Sign(document, key, i.issuerDID+"#"+key.Kid, now)
	if err != nil {
		return nil, err
	}
	vc.Proof = p

	signed, err := sjson.SetBytes(document, "proof", p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "attaching proof")
	}

	// Never hand out a credential that would fail our own verifier.
	violations, err := schema.Validate(signed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "re-validating signed credential")
	}
	if len(violations) > 0 {
		return nil, dErrors.NewWithFields(dErrors.CodeInvariantViolation,
			"signed credential failed validation", violations)
	}

	credID := id.CredentialID(vc.ID)
	if err = i.credentials.SaveCredential(ctx, credID, signed); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "saving credential")
	}
	issuanceID := id.NewIssuanceID()
	if err = i.issuances.RecordIssuance(ctx, models.IssuanceRecord{
		ID:             issuanceID,
		SubjectID:      req.SubjectID,
		CredentialID:   credID,
		CredentialType: req.CredentialType,
		KeyID:          key.Kid,
		IssuedAt:       now,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "recording issuance")
	}

	i.emit(ctx, audit.Event{
		Action:           audit.ActionIssuanceSucceeded,
		SubjectID:        req.SubjectID,
		CredentialID:     credID,
		CertificateID:    req.CertificateID,
		CredentialType:   req.CredentialType,
		KeyID:            key.Kid,
		PolicyCompliance: true,
		ValidationPassed: true,
	})
	i.metrics.IncrementCredentialsIssued(req.CredentialType)
	i.logger.Info("credential issued",
		"credential_id", credID,
		"issuance_id", issuanceID,
		"credential_type", req.CredentialType,
		"subject_id", req.SubjectID,
		"key_id", key.Kid,
	)
	return &models.IssueResult{Credential: vc, IssuanceID: issuanceID, IssuedAt: now}, nil
}

// checkGates enforces the policy in its fixed order.
func (i *Issuer) checkGates(ctx context.Context, req models.IssueRequest, policy *models.IssuancePolicy) error {
	if policy.CooldownPeriod > 0 {
		last, err := i.issuances.LastIssuance(ctx, req.SubjectID, req.CredentialType)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInfrastructure, "checking cooldown")
		}
		if last != nil && time.Since(last.IssuedAt) < policy.CooldownPeriod {
			return dErrors.New(dErrors.CodeCooldownActive, "cooldown period has not elapsed")
		}
	}

	if policy.MaxCredentialsPerSubject > 0 {
		count, err := i.issuances.CountBySubjectAndType(ctx, req.SubjectID, req.CredentialType)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInfrastructure, "checking quota")
		}
		if count >= policy.MaxCredentialsPerSubject {
			return dErrors.New(dErrors.CodeQuotaExceeded, "subject has reached the credential limit for this type")
		}
	}

	var missing []string
	for _, field := range policy.RequiredFields {
		v, ok := req.Claims[field]
		if !ok || v == nil || v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return dErrors.NewWithFields(dErrors.CodeMissingFields, "claims are missing required fields", missing)
	}

	if policy.RequiresApproval && !req.ApprovalGranted {
		return dErrors.New(dErrors.CodeApprovalRequired, "credential type requires explicit approval")
	}
	return nil
}

func (i *Issuer) applyDefaults(policy *models.IssuancePolicy) {
	if policy.ValidityPeriod == 0 {
		policy.ValidityPeriod = i.defaults.DefaultValidity
	}
	if policy.CooldownPeriod == 0 {
		policy.CooldownPeriod = i.defaults.DefaultCooldown
	}
	if policy.MaxCredentialsPerSubject == 0 {
		policy.MaxCredentialsPerSubject = i.defaults.DefaultMaxPerSubject
	}
}

func (i *Issuer) buildCredential(req models.IssueRequest, policy *models.IssuancePolicy, now time.Time) *models.VerifiableCredential {
	subject := make(map[string]any, len(req.Claims)+1)
	for k, v := range req.Claims {
		subject[k] = v
	}
	subject["id"] = req.SubjectDID

	vc := &models.VerifiableCredential{
		Context:           []string{models.ContextCredentialsV1},
		ID:                id.NewCredentialID().String(),
		Type:              []string{models.TypeVerifiable, req.CredentialType},
		Issuer:            i.issuerDID,
		IssuanceDate:      now.Format(time.RFC3339),
		CredentialSubject: subject,
	}
	validity := policy.ValidityPeriod
	if req.ValiditySeconds > 0 {
		validity = time.Duration(req.ValiditySeconds) * time.Second
	}
	if validity > 0 {
		vc.ExpirationDate = now.Add(validity).Format(time.RFC3339)
	}
	return vc
}

func (i *Issuer) auditRejection(ctx context.Context, req models.IssueRequest, cause error) {
	reason := string(dErrors.CodeOf(cause))
	i.metrics.IncrementIssuanceRejections(reason)
	i.emit(ctx, audit.Event{
		Action:         audit.ActionIssuanceRejected,
		SubjectID:      req.SubjectID,
		CertificateID:  req.CertificateID,
		CredentialType: req.CredentialType,
		Reason:         reason,
		Error:          cause.Error(),
	})
}

func (i *Issuer) emit(ctx context.Context, event audit.Event) {
	if i.auditor == nil {
		return
	}
	if err := i.auditor.Emit(ctx, event); err != nil {
		i.logger.Error("failed to emit audit event", "action", event.Action, "error", err)
	}
}
