// Package seeder populates stores with reference and demo data for
// development deployments.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	credmodels "veritas/internal/credential/models"
	vermodels "veritas/internal/verification/models"
	id "veritas/pkg/domain"
)

// IssuerStore defines methods for seeding trusted issuers.
type IssuerStore interface {
	PutTrustedIssuer(ctx context.Context, issuer vermodels.TrustedIssuer) error
}

// PolicyStore defines methods for seeding issuance policies.
type PolicyStore interface {
	PutPolicy(ctx context.Context, policy credmodels.IssuancePolicy) error
}

// Seeder populates stores with demo reference data.
type Seeder struct {
	issuers  IssuerStore
	policies PolicyStore
	logger   *slog.Logger
}

// New creates a new seeder.
func New(issuers IssuerStore, policies PolicyStore, logger *slog.Logger) *Seeder {
	return &Seeder{issuers: issuers, policies: policies, logger: logger}
}

// SeedAll populates trusted issuers and issuance policies.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data")

	if err := s.seedIssuers(ctx); err != nil {
		return fmt.Errorf("seeding trusted issuers: %w", err)
	}
	if err := s.seedPolicies(ctx); err != nil {
		return fmt.Errorf("seeding issuance policies: %w", err)
	}

	s.logger.Info("demo data seeded")
	return nil
}

func (s *Seeder) seedIssuers(ctx context.Context) error {
	issuers := []vermodels.TrustedIssuer{
		{
			ID:                id.IssuerID("example-university"),
			Name:              "Example University",
			QRVerificationURL: "https://verify.example.edu/certificates",
			TemplatePatterns: []string{
				`(?i)this is to certify that`,
				`(?i)has successfully completed`,
				`(?i)example university`,
			},
		},
		{
			ID:   id.IssuerID("example-institute"),
			Name: "Example Institute of Technology",
			TemplatePatterns: []string{
				`(?i)hereby confers upon`,
				`(?i)example institute of technology`,
			},
		},
	}
	for _, issuer := range issuers {
		if err := s.issuers.PutTrustedIssuer(ctx, issuer); err != nil {
			return err
		}
		s.logger.Debug("seeded trusted issuer", "issuer_id", issuer.ID, "name", issuer.Name)
	}
	return nil
}

func (s *Seeder) seedPolicies(ctx context.Context) error {
	policies := []credmodels.IssuancePolicy{
		{
			Type:                     "AcademicCredential",
			MaxCredentialsPerSubject: 10,
			CooldownPeriod:           time.Hour,
			ValidityPeriod:           5 * 365 * 24 * time.Hour,
			RequiredFields:           []string{"degree", "institution"},
		},
		{
			Type:           "CourseBadge",
			CooldownPeriod: time.Minute,
			ValidityPeriod: 2 * 365 * 24 * time.Hour,
			RequiredFields: []string{"course"},
		},
		{
			Type:             "OfficialTranscript",
			RequiresApproval: true,
			RequiredFields:   []string{"institution", "record"},
		},
	}
	for _, policy := range policies {
		if err := s.policies.PutPolicy(ctx, policy); err != nil {
			return err
		}
		s.logger.Debug("seeded issuance policy", "credential_type", policy.Type)
	}
	return nil
}
