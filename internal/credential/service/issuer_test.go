package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"veritas/internal/credential/models"
	"veritas/internal/credential/proof"
	"veritas/internal/credential/service/mocks"
	"veritas/internal/credential/store"
	"veritas/internal/keymanager"
	"veritas/internal/platform/config"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
)

const issuerDID = "did:web:veritas.example.edu"

func testIssuanceDefaults() config.IssuanceConfig {
	return config.IssuanceConfig{
		DefaultValidity:      5 * 365 * 24 * time.Hour,
		DefaultCooldown:      24 * time.Hour,
		DefaultMaxPerSubject: 10,
	}
}

type IssuerSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	policies    *store.InMemoryPolicyStore
	issuances   *store.InMemoryIssuanceStore
	credentials *store.InMemoryCredentialStore
	keys        *keymanager.InMemoryKeyManager
	mockAuditor *mocks.MockAuditPublisher
	issuer      *Issuer
}

func (s *IssuerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	var err error
	s.keys, err = keymanager.NewInMemory()
	s.Require().NoError(err)

	s.policies = store.NewInMemoryPolicies(models.IssuancePolicy{
		Type:                     "AcademicCredential",
		MaxCredentialsPerSubject: 2,
		CooldownPeriod:           time.Hour,
		ValidityPeriod:           24 * time.Hour,
		RequiredFields:           []string{"degree", "institution"},
	})
	s.issuances = store.NewInMemoryIssuances()
	s.credentials = store.NewInMemoryCredentials()
	s.mockAuditor = mocks.NewMockAuditPublisher(s.ctrl)

	s.issuer = NewIssuer(issuerDID, testIssuanceDefaults(),
		s.policies, s.issuances, s.credentials, s.keys,
		WithIssuerLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIssuerAuditor(s.mockAuditor),
	)
}

func (s *IssuerSuite) validRequest() models.IssueRequest {
	return models.IssueRequest{
		SubjectID:      id.SubjectID(uuid.New()),
		SubjectDID:     "did:example:subject",
		CredentialType: "AcademicCredential",
		Claims: map[string]any{
			"degree":      "Bachelor of Science",
			"institution": "Example University",
		},
	}
}

func (s *IssuerSuite) expectAudit(action audit.Action) {
	s.mockAuditor.EXPECT().
		Emit(gomock.Any(), gomock.AssignableToTypeOf(audit.Event{})).
		DoAndReturn(func(_ context.Context, event audit.Event) error {
			s.Equal(action, event.Action)
			return nil
		})
}

func (s *IssuerSuite) TestIssueSucceeds() {
	s.expectAudit(audit.ActionIssuanceSucceeded)

	result, err := s.issuer.Issue(context.Background(), s.validRequest())
	s.Require().NoError(err)
	s.False(result.IssuanceID.IsNil())
	s.WithinDuration(time.Now(), result.IssuedAt, time.Minute)

	vc := result.Credential
	s.Contains(vc.ID, "urn:uuid:")
	s.Equal(issuerDID, vc.Issuer)
	s.Equal([]string{models.TypeVerifiable, "AcademicCredential"}, vc.Type)
	s.Equal("did:example:subject", vc.CredentialSubject["id"])
	s.Equal("Bachelor of Science", vc.CredentialSubject["degree"])
	s.Require().NotNil(vc.Proof)
	s.Equal(models.ProofTypeJWS, vc.Proof.Type)
	s.Contains(vc.Proof.VerificationMethod, issuerDID+"#")

	expires, err := vc.ExpiresAt()
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(24*time.Hour), expires, time.Minute)

	// The stored document carries a verifiable proof.
	stored, err := s.credentials.GetCredential(context.Background(), id.CredentialID(vc.ID))
	s.Require().NoError(err)
	s.NoError(proof.Verify(context.Background(), stored, s.keys))
}

func (s *IssuerSuite) TestValidityOverride() {
	s.expectAudit(audit.ActionIssuanceSucceeded)

	req := s.validRequest()
	req.ValiditySeconds = 3600

	result, err := s.issuer.Issue(context.Background(), req)
	s.Require().NoError(err)

	expires, err := result.Credential.ExpiresAt()
	s.Require().NoError(err)
	s.WithinDuration(time.Now().Add(time.Hour), expires, time.Minute)
}

func (s *IssuerSuite) TestIssueRecordsIssuance() {
	s.expectAudit(audit.ActionIssuanceSucceeded)
	req := s.validRequest()

	result, err := s.issuer.Issue(context.Background(), req)
	s.Require().NoError(err)

	last, err := s.issuances.LastIssuance(context.Background(), req.SubjectID, req.CredentialType)
	s.Require().NoError(err)
	s.Require().NotNil(last)
	s.Equal(result.IssuanceID, last.ID)
	s.Equal(id.CredentialID(result.Credential.ID), last.CredentialID)
	s.NotEmpty(last.KeyID)
}

func (s *IssuerSuite) TestValidationRejectsBlankRequest() {
	s.expectAudit(audit.ActionIssuanceRejected)

	_, err := s.issuer.Issue(context.Background(), models.IssueRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *IssuerSuite) TestPolicyNotFound() {
	s.expectAudit(audit.ActionIssuanceRejected)

	req := s.validRequest()
	req.CredentialType = "UnknownType"
	_, err := s.issuer.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePolicyNotFound))
}

func (s *IssuerSuite) TestCooldownGate() {
	s.expectAudit(audit.ActionIssuanceSucceeded)
	s.expectAudit(audit.ActionIssuanceRejected)

	req := s.validRequest()
	_, err := s.issuer.Issue(context.Background(), req)
	s.Require().NoError(err)

	_, err = s.issuer.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeCooldownActive))
}

func (s *IssuerSuite) TestQuotaGate() {
	// No cooldown so the quota gate is reachable.
	s.Require().NoError(s.policies.PutPolicy(context.Background(), models.IssuancePolicy{
		Type:                     "Badge",
		MaxCredentialsPerSubject: 2,
		CooldownPeriod:           time.Nanosecond,
	}))

	s.expectAudit(audit.ActionIssuanceSucceeded)
	s.expectAudit(audit.ActionIssuanceSucceeded)
	s.expectAudit(audit.ActionIssuanceRejected)

	req := s.validRequest()
	req.CredentialType = "Badge"
	req.Claims = map[string]any{"name": "Honor Roll"}

	for range 2 {
		_, err := s.issuer.Issue(context.Background(), req)
		s.Require().NoError(err)
		time.Sleep(time.Millisecond)
	}

	_, err := s.issuer.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
}

func (s *IssuerSuite) TestMissingFieldsGate() {
	s.expectAudit(audit.ActionIssuanceRejected)

	req := s.validRequest()
	delete(req.Claims, "institution")
	req.Claims["degree"] = ""

	_, err := s.issuer.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeMissingFields))
	s.ElementsMatch([]string{"degree", "institution"}, dErrors.FieldsOf(err))
}

func (s *IssuerSuite) TestApprovalGate() {
	s.Require().NoError(s.policies.PutPolicy(context.Background(), models.IssuancePolicy{
		Type:             "Transcript",
		RequiresApproval: true,
	}))

	s.expectAudit(audit.ActionIssuanceRejected)
	req := s.validRequest()
	req.CredentialType = "Transcript"
	req.Claims = map[string]any{"grade": "A"}

	_, err := s.issuer.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeApprovalRequired))

	s.expectAudit(audit.ActionIssuanceSucceeded)
	req.ApprovalGranted = true
	_, err = s.issuer.Issue(context.Background(), req)
	s.Require().NoError(err)
}

func (s *IssuerSuite) TestNoSigningKey() {
	mockKeys := mocks.NewMockKeyManager(s.ctrl)
	mockKeys.EXPECT().CurrentKey(gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNoSigningKey, "no active signing key"))
	s.expectAudit(audit.ActionIssuanceRejected)

	issuer := NewIssuer(issuerDID, testIssuanceDefaults(),
		s.policies, s.issuances, s.credentials, mockKeys,
		WithIssuerAuditor(s.mockAuditor),
	)

	_, err := issuer.Issue(context.Background(), s.validRequest())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNoSigningKey))
	s.True(dErrors.IsRetryable(err))
}

func (s *IssuerSuite) TestSignedDocumentIsSchemaValid() {
	s.expectAudit(audit.ActionIssuanceSucceeded)

	result, err := s.issuer.Issue(context.Background(), s.validRequest())
	s.Require().NoError(err)

	raw, err := json.Marshal(result.Credential)
	s.Require().NoError(err)
	var roundTrip map[string]any
	s.Require().NoError(json.Unmarshal(raw, &roundTrip))
	s.Contains(roundTrip, "proof")
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}
