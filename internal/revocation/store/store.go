// Package store persists per-issuer revocation lists.
//
// Lists are read-modify-write documents; the manager serializes mutations
// per issuer, so stores only need atomic whole-list replacement.
package store

import (
	"context"

	"veritas/internal/revocation/models"
	id "veritas/pkg/domain"
)

// Store persists revocation lists keyed by issuer.
type Store interface {
	// GetList returns the issuer's list, or nil if the issuer has none yet.
	GetList(ctx context.Context, issuerID id.IssuerID) (*models.List, error)

	// PutList replaces the issuer's list.
	PutList(ctx context.Context, list *models.List) error
}
