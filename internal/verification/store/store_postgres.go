package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// PostgresStore persists certificates and verification state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	if cert == nil {
		return dErrors.New(dErrors.CodeBadRequest, "certificate is required")
	}
	query := `
		INSERT INTO certificates (id, owner_id, institution, title, date_issued, file_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`
	var storedID uuid.UUID
	err := s.db.QueryRowContext(ctx, query,
		uuid.UUID(cert.ID),
		uuid.UUID(cert.OwnerID),
		cert.Institution,
		cert.Title,
		cert.DateIssued,
		cert.FileRef,
		string(cert.Status),
		cert.CreatedAt,
		cert.UpdatedAt,
	).Scan(&storedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dErrors.New(dErrors.CodeConflict, "certificate already exists")
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	query := `
		SELECT id, owner_id, institution, title, date_issued, file_ref, status, created_at, updated_at
		FROM certificates
		WHERE id = $1
	`
	var cert models.Certificate
	var certUUID, ownerUUID uuid.UUID
	var status string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(certID)).Scan(
		&certUUID, &ownerUUID, &cert.Institution, &cert.Title,
		&cert.DateIssued, &cert.FileRef, &status, &cert.CreatedAt, &cert.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	cert.ID = id.CertificateID(certUUID)
	cert.OwnerID = id.SubjectID(ownerUUID)
	cert.Status = models.CertificateStatus(status)
	return &cert, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, certID id.CertificateID, status models.CertificateStatus) error {
	query := `UPDATE certificates SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(certID), string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate status rows: %w", err)
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	return nil
}

func (s *PostgresStore) ListCertificatesByOwner(ctx context.Context, ownerID id.SubjectID) ([]*models.Certificate, error) {
	query := `
		SELECT id, owner_id, institution, title, date_issued, file_ref, status, created_at, updated_at
		FROM certificates
		WHERE owner_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var certs []*models.Certificate
	for rows.Next() {
		var cert models.Certificate
		var certUUID, ownerUUID uuid.UUID
		var status string
		if err := rows.Scan(&certUUID, &ownerUUID, &cert.Institution, &cert.Title,
			&cert.DateIssued, &cert.FileRef, &status, &cert.CreatedAt, &cert.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		cert.ID = id.CertificateID(certUUID)
		cert.OwnerID = id.SubjectID(ownerUUID)
		cert.Status = models.CertificateStatus(status)
		certs = append(certs, &cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return certs, nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, result models.VerificationResult) error {
	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("marshal signal details: %w", err)
	}
	query := `
		INSERT INTO verification_results
			(certificate_id, confidence_score, method, auto_approved, requires_manual_review, decision, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(result.CertificateID),
		result.ConfidenceScore,
		string(result.Method),
		result.AutoApproved,
		result.RequiresManualReview,
		string(result.Decision),
		details,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save verification result: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestResult(ctx context.Context, certID id.CertificateID) (*models.VerificationResult, error) {
	query := `
		SELECT certificate_id, confidence_score, method, auto_approved, requires_manual_review, decision, details, created_at
		FROM verification_results
		WHERE certificate_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var result models.VerificationResult
	var certUUID uuid.UUID
	var method, decision string
	var details []byte
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(certID)).Scan(
		&certUUID, &result.ConfidenceScore, &method, &result.AutoApproved,
		&result.RequiresManualReview, &decision, &details, &result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest result: %w", err)
	}
	result.CertificateID = id.CertificateID(certUUID)
	result.Method = models.Method(method)
	result.Decision = models.CertificateStatus(decision)
	if err := json.Unmarshal(details, &result.Details); err != nil {
		return nil, fmt.Errorf("unmarshal signal details: %w", err)
	}
	return &result, nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, doc models.DocumentRecord) error {
	query := `
		INSERT INTO verification_documents (certificate_id, content_hash, raw_text, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (certificate_id) DO UPDATE
		SET content_hash = EXCLUDED.content_hash, raw_text = EXCLUDED.raw_text, created_at = EXCLUDED.created_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(doc.CertificateID), doc.ContentHash, doc.RawText, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("save document record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByContentHash(ctx context.Context, hash string) (*models.DocumentRecord, error) {
	query := `
		SELECT certificate_id, content_hash, raw_text, created_at
		FROM verification_documents
		WHERE content_hash = $1
		ORDER BY created_at
		LIMIT 1
	`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document by hash: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) RecentDocuments(ctx context.Context, n int) ([]models.DocumentRecord, error) {
	query := `
		SELECT certificate_id, content_hash, raw_text, created_at
		FROM verification_documents
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}
	defer rows.Close()

	var docs []models.DocumentRecord
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document record: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document records: %w", err)
	}
	return docs, nil
}

type documentRow interface {
	Scan(dest ...any) error
}

func scanDocument(row documentRow) (*models.DocumentRecord, error) {
	var doc models.DocumentRecord
	var certUUID uuid.UUID
	if err := row.Scan(&certUUID, &doc.ContentHash, &doc.RawText, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.CertificateID = id.CertificateID(certUUID)
	return &doc, nil
}

// PostgresIssuerStore serves trusted-issuer reference data from PostgreSQL.
type PostgresIssuerStore struct {
	db *sql.DB
}

// NewPostgresIssuers constructs a PostgreSQL-backed issuer store.
func NewPostgresIssuers(db *sql.DB) *PostgresIssuerStore {
	return &PostgresIssuerStore{db: db}
}

func (s *PostgresIssuerStore) ListTrustedIssuers(ctx context.Context) ([]models.TrustedIssuer, error) {
	query := `
		SELECT id, name, qr_verification_url, logo_hash, template_patterns
		FROM trusted_issuers
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list trusted issuers: %w", err)
	}
	defer rows.Close()

	var issuers []models.TrustedIssuer
	for rows.Next() {
		issuer, err := scanIssuer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trusted issuer: %w", err)
		}
		issuers = append(issuers, *issuer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trusted issuers: %w", err)
	}
	return issuers, nil
}

func (s *PostgresIssuerStore) GetTrustedIssuer(ctx context.Context, issuerID id.IssuerID) (*models.TrustedIssuer, error) {
	query := `
		SELECT id, name, qr_verification_url, logo_hash, template_patterns
		FROM trusted_issuers
		WHERE id = $1
	`
	issuer, err := scanIssuer(s.db.QueryRowContext(ctx, query, string(issuerID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "trusted issuer not found")
		}
		return nil, fmt.Errorf("get trusted issuer: %w", err)
	}
	return issuer, nil
}

func (s *PostgresIssuerStore) PutTrustedIssuer(ctx context.Context, issuer models.TrustedIssuer) error {
	patterns, err := json.Marshal(issuer.TemplatePatterns)
	if err != nil {
		return fmt.Errorf("marshal template patterns: %w", err)
	}
	query := `
		INSERT INTO trusted_issuers (id, name, qr_verification_url, logo_hash, template_patterns)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			qr_verification_url = EXCLUDED.qr_verification_url,
			logo_hash = EXCLUDED.logo_hash,
			template_patterns = EXCLUDED.template_patterns
	`
	_, err = s.db.ExecContext(ctx, query,
		string(issuer.ID), issuer.Name, issuer.QRVerificationURL, issuer.LogoHash, patterns)
	if err != nil {
		return fmt.Errorf("put trusted issuer: %w", err)
	}
	return nil
}

type issuerRow interface {
	Scan(dest ...any) error
}

func scanIssuer(row issuerRow) (*models.TrustedIssuer, error) {
	var issuer models.TrustedIssuer
	var issuerID string
	var patterns []byte
	if err := row.Scan(&issuerID, &issuer.Name, &issuer.QRVerificationURL, &issuer.LogoHash, &patterns); err != nil {
		return nil, err
	}
	issuer.ID = id.IssuerID(issuerID)
	if len(patterns) > 0 {
		if err := json.Unmarshal(patterns, &issuer.TemplatePatterns); err != nil {
			return nil, fmt.Errorf("unmarshal template patterns: %w", err)
		}
	}
	return &issuer, nil
}

// Verify interfaces are satisfied.
var (
	_ Store       = (*PostgresStore)(nil)
	_ IssuerStore = (*PostgresIssuerStore)(nil)
)
