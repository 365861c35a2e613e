package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veritas/internal/credential/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// PostgresPolicyStore serves issuance policies from PostgreSQL.
type PostgresPolicyStore struct {
	db *sql.DB
}

// NewPostgresPolicies constructs a PostgreSQL-backed policy store.
func NewPostgresPolicies(db *sql.DB) *PostgresPolicyStore {
	return &PostgresPolicyStore{db: db}
}

func (s *PostgresPolicyStore) PolicyForType(ctx context.Context, credentialType string) (*models.IssuancePolicy, error) {
	query := `
		SELECT credential_type, max_per_subject, cooldown_seconds, validity_seconds, required_fields, requires_approval
		FROM issuance_policies
		WHERE credential_type = $1
	`
	var policy models.IssuancePolicy
	var cooldownSecs, validitySecs int64
	var requiredFields []byte
	err := s.db.QueryRowContext(ctx, query, credentialType).Scan(
		&policy.Type, &policy.MaxCredentialsPerSubject,
		&cooldownSecs, &validitySecs, &requiredFields, &policy.RequiresApproval,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodePolicyNotFound, "no issuance policy for credential type")
		}
		return nil, fmt.Errorf("get issuance policy: %w", err)
	}
	policy.CooldownPeriod = time.Duration(cooldownSecs) * time.Second
	policy.ValidityPeriod = time.Duration(validitySecs) * time.Second
	if len(requiredFields) > 0 {
		if err := json.Unmarshal(requiredFields, &policy.RequiredFields); err != nil {
			return nil, fmt.Errorf("unmarshal required fields: %w", err)
		}
	}
	return &policy, nil
}

func (s *PostgresPolicyStore) PutPolicy(ctx context.Context, policy models.IssuancePolicy) error {
	if policy.Type == "" {
		return dErrors.New(dErrors.CodeBadRequest, "policy type is required")
	}
	requiredFields, err := json.Marshal(policy.RequiredFields)
	if err != nil {
		return fmt.Errorf("marshal required fields: %w", err)
	}
	query := `
		INSERT INTO issuance_policies
			(credential_type, max_per_subject, cooldown_seconds, validity_seconds, required_fields, requires_approval)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (credential_type) DO UPDATE
		SET max_per_subject = EXCLUDED.max_per_subject,
			cooldown_seconds = EXCLUDED.cooldown_seconds,
			validity_seconds = EXCLUDED.validity_seconds,
			required_fields = EXCLUDED.required_fields,
			requires_approval = EXCLUDED.requires_approval
	`
	_, err = s.db.ExecContext(ctx, query,
		policy.Type,
		policy.MaxCredentialsPerSubject,
		int64(policy.CooldownPeriod/time.Second),
		int64(policy.ValidityPeriod/time.Second),
		requiredFields,
		policy.RequiresApproval,
	)
	if err != nil {
		return fmt.Errorf("put issuance policy: %w", err)
	}
	return nil
}

// PostgresIssuanceStore records issuances in PostgreSQL.
type PostgresIssuanceStore struct {
	db *sql.DB
}

// NewPostgresIssuances constructs a PostgreSQL-backed issuance store.
func NewPostgresIssuances(db *sql.DB) *PostgresIssuanceStore {
	return &PostgresIssuanceStore{db: db}
}

func (s *PostgresIssuanceStore) RecordIssuance(ctx context.Context, rec models.IssuanceRecord) error {
	query := `
		INSERT INTO issuances (id, subject_id, credential_id, credential_type, key_id, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		uuid.UUID(rec.SubjectID),
		string(rec.CredentialID),
		rec.CredentialType,
		rec.KeyID,
		rec.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("record issuance: %w", err)
	}
	return nil
}

func (s *PostgresIssuanceStore) CountBySubjectAndType(ctx context.Context, subjectID id.SubjectID, credentialType string) (int, error) {
	query := `SELECT COUNT(*) FROM issuances WHERE subject_id = $1 AND credential_type = $2`
	var count int
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(subjectID), credentialType).Scan(&count); err != nil {
		return 0, fmt.Errorf("count issuances: %w", err)
	}
	return count, nil
}

func (s *PostgresIssuanceStore) LastIssuance(ctx context.Context, subjectID id.SubjectID, credentialType string) (*models.IssuanceRecord, error) {
	query := `
		SELECT id, subject_id, credential_id, credential_type, key_id, issued_at
		FROM issuances
		WHERE subject_id = $1 AND credential_type = $2
		ORDER BY issued_at DESC
		LIMIT 1
	`
	var rec models.IssuanceRecord
	var recUUID, subjectUUID uuid.UUID
	var credID string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(subjectID), credentialType).Scan(
		&recUUID, &subjectUUID, &credID, &rec.CredentialType, &rec.KeyID, &rec.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last issuance: %w", err)
	}
	rec.ID = id.IssuanceID(recUUID)
	rec.SubjectID = id.SubjectID(subjectUUID)
	rec.CredentialID = id.CredentialID(credID)
	return &rec, nil
}

// PostgresCredentialStore holds issued credential documents in PostgreSQL.
type PostgresCredentialStore struct {
	db *sql.DB
}

// NewPostgresCredentials constructs a PostgreSQL-backed credential store.
func NewPostgresCredentials(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (s *PostgresCredentialStore) SaveCredential(ctx context.Context, credID id.CredentialID, document []byte) error {
	query := `
		INSERT INTO credentials (id, document, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document
	`
	_, err := s.db.ExecContext(ctx, query, string(credID), document, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresCredentialStore) GetCredential(ctx context.Context, credID id.CredentialID) ([]byte, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM credentials WHERE id = $1`, string(credID)).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return document, nil
}

// Verify interfaces are satisfied.
var (
	_ PolicyStore     = (*PostgresPolicyStore)(nil)
	_ IssuanceStore   = (*PostgresIssuanceStore)(nil)
	_ CredentialStore = (*PostgresCredentialStore)(nil)
)
