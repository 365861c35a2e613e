package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"veritas/internal/revocation/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// PostgresStore persists revocation lists in PostgreSQL, one document row
// per issuer.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed revocation list store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetList(ctx context.Context, issuerID id.IssuerID) (*models.List, error) {
	query := `SELECT records FROM revocation_lists WHERE issuer_id = $1`
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, issuerID.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get revocation list: %w", err)
	}
	var list models.List
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding revocation list")
	}
	return &list, nil
}

func (s *PostgresStore) PutList(ctx context.Context, list *models.List) error {
	if list == nil {
		return dErrors.New(dErrors.CodeBadRequest, "revocation list is required")
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encoding revocation list")
	}
	query := `
		INSERT INTO revocation_lists (issuer_id, version, updated_at, records)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (issuer_id) DO UPDATE
		SET version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at,
			records = EXCLUDED.records
	`
	_, err = s.db.ExecContext(ctx, query, list.IssuerID.String(), list.Version, list.UpdatedAt, raw)
	if err != nil {
		return fmt.Errorf("put revocation list: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
