// Package service implements the revocation manager: issuer-scoped,
// versioned revocation lists with status-list export.
package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"veritas/internal/revocation/metrics"
	"veritas/internal/revocation/models"
	"veritas/internal/revocation/store"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/audit"
	"veritas/pkg/platform/keymutex"
)

// statusPurpose identifies what the exported status list asserts about its
// entries.
const statusPurpose = "revocation"

// AuditPublisher records revocation lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Manager mutates and serves revocation lists. All mutations to one issuer's
// list are serialized; the list version increments exactly once per
// successful mutation.
type Manager struct {
	store store.Store
	locks *keymutex.KeyMutex

	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the structured logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithManagerAuditor sets the audit publisher.
func WithManagerAuditor(auditor AuditPublisher) ManagerOption {
	return func(m *Manager) {
		m.auditor = auditor
	}
}

// WithManagerMetrics sets the Prometheus collectors.
func WithManagerMetrics(collectors *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = collectors
	}
}

// NewManager constructs the revocation manager.
func NewManager(st store.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  st,
		locks:  keymutex.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Revoke marks a credential revoked. The record is upserted: a prior record
// for the credential is replaced, so a changed reason takes effect and bumps
// the version. Repeating an identical revocation is a no-op. The reason must
// come from the controlled vocabulary.
func (m *Manager) Revoke(
	ctx context.Context,
	issuerID id.IssuerID,
	credID id.CredentialID,
	reasonCode string,
	revokedBy string,
	metadata map[string]string,
	credentialExpiry *time.Time,
) (*models.Record, error) {
	reason, ok := models.ReasonByCode(reasonCode)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnknownReason, "unknown revocation reason code")
	}

	record, changed, err := m.upsert(ctx, issuerID, credID, models.StatusRevoked, reason, revokedBy, metadata, credentialExpiry)
	if err != nil {
		return nil, err
	}
	if !changed {
		return record, nil
	}

	m.metrics.IncrementRevocations(reason.Code)
	m.audit(ctx, audit.ActionCredentialRevoked, issuerID, credID, reason.Code)
	m.logger.Info("credential revoked",
		"issuer_id", issuerID, "credential_id", credID, "reason", reason.Code, "revoked_by", revokedBy)
	return record, nil
}

// Suspend marks a credential suspended, with the same upsert semantics as
// Revoke.
func (m *Manager) Suspend(
	ctx context.Context,
	issuerID id.IssuerID,
	credID id.CredentialID,
	reasonCode string,
	revokedBy string,
	metadata map[string]string,
) (*models.Record, error) {
	reason, ok := models.ReasonByCode(reasonCode)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnknownReason, "unknown revocation reason code")
	}

	record, changed, err := m.upsert(ctx, issuerID, credID, models.StatusSuspended, reason, revokedBy, metadata, nil)
	if err != nil {
		return nil, err
	}
	if !changed {
		return record, nil
	}

	m.metrics.IncrementSuspensions(reason.Code)
	m.audit(ctx, audit.ActionCredentialSuspended, issuerID, credID, reason.Code)
	return record, nil
}

// upsert replaces the credential's record on the issuer's list. An existing
// record with the same status and reason is left untouched so repeats do not
// bump the version.
func (m *Manager) upsert(
	ctx context.Context,
	issuerID id.IssuerID,
	credID id.CredentialID,
	status models.Status,
	reason models.Reason,
	revokedBy string,
	metadata map[string]string,
	credentialExpiry *time.Time,
) (*models.Record, bool, error) {
	var (
		record  *models.Record
		changed bool
	)
	err := m.mutate(ctx, issuerID, func(list *models.List) (bool, error) {
		existing := list.Records[credID]
		if existing != nil && existing.Status == status && existing.Reason.Code == reason.Code {
			record = existing
			return false, nil
		}

		now := time.Now().UTC()
		record = &models.Record{
			CredentialID:     credID,
			Status:           status,
			Reason:           reason,
			RevokedBy:        revokedBy,
			Metadata:         metadata,
			CredentialExpiry: credentialExpiry,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if existing != nil {
			record.CreatedAt = existing.CreatedAt
			if record.CredentialExpiry == nil {
				record.CredentialExpiry = existing.CredentialExpiry
			}
		}
		list.Records[credID] = record
		changed = true
		return true, nil
	})
	return record, changed, err
}

// Restore removes the credential's record, revoked or suspended, so the
// credential reads as active again.
func (m *Manager) Restore(ctx context.Context, issuerID id.IssuerID, credID id.CredentialID) (*models.Record, error) {
	var record *models.Record
	err := m.mutate(ctx, issuerID, func(list *models.List) (bool, error) {
		existing := list.Records[credID]
		if existing == nil {
			return false, dErrors.New(dErrors.CodeNotFound, "credential has no revocation record")
		}

		restored := *existing
		restored.Status = models.StatusActive
		restored.UpdatedAt = time.Now().UTC()
		record = &restored
		delete(list.Records, credID)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.IncrementRestorations()
	m.audit(ctx, audit.ActionCredentialRestored, issuerID, credID, "")
	return record, nil
}

// CheckStatus returns a credential's current status. Credentials with no
// record are active; a record whose credential has expired reads as expired
// even before cleanup rewrites it.
func (m *Manager) CheckStatus(ctx context.Context, issuerID id.IssuerID, credID id.CredentialID) (models.Status, error) {
	list, err := m.store.GetList(ctx, issuerID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInfrastructure, "loading revocation list")
	}

	status := models.StatusActive
	if list != nil {
		if record := list.Records[credID]; record != nil {
			status = effectiveStatus(record, time.Now().UTC())
		}
	}
	m.metrics.IncrementStatusChecks(string(status))
	return status, nil
}

// CheckStatuses resolves many credentials against one issuer's list in a
// single load.
func (m *Manager) CheckStatuses(
	ctx context.Context,
	issuerID id.IssuerID,
	credIDs []id.CredentialID,
) (map[id.CredentialID]models.Status, error) {
	list, err := m.store.GetList(ctx, issuerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "loading revocation list")
	}

	now := time.Now().UTC()
	statuses := make(map[id.CredentialID]models.Status, len(credIDs))
	for _, credID := range credIDs {
		status := models.StatusActive
		if list != nil {
			if record := list.Records[credID]; record != nil {
				status = effectiveStatus(record, now)
			}
		}
		statuses[credID] = status
	}
	return statuses, nil
}

// CleanupExpired purges records whose last status change is older than
// maxAge, retiring stale history from the list. Returns how many records
// were removed; the version bumps only when something was.
func (m *Manager) CleanupExpired(ctx context.Context, issuerID id.IssuerID, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "max age must be positive")
	}

	purged := 0
	cutoff := time.Now().UTC().Add(-maxAge)
	err := m.mutate(ctx, issuerID, func(list *models.List) (bool, error) {
		for credID, record := range list.Records {
			if record.UpdatedAt.Before(cutoff) {
				delete(list.Records, credID)
				purged++
			}
		}
		return purged > 0, nil
	})
	if err != nil {
		return 0, err
	}
	m.metrics.AddRecordsPurged(purged)
	return purged, nil
}

// StatusList exports an issuer's list for external consumers. Entries are
// sorted by credential ID for stable output; issuers with no list export an
// empty version-zero list.
func (m *Manager) StatusList(ctx context.Context, issuerID id.IssuerID) (*models.StatusList, error) {
	list, err := m.store.GetList(ctx, issuerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInfrastructure, "loading revocation list")
	}
	if list == nil {
		list = models.NewList(issuerID)
	}

	now := time.Now().UTC()
	records := lo.Values(list.Records)
	sort.Slice(records, func(i, j int) bool {
		return records[i].CredentialID < records[j].CredentialID
	})
	entries := lo.Map(records, func(record *models.Record, _ int) models.StatusListEntry {
		return models.StatusListEntry{
			CredentialID: record.CredentialID.String(),
			Status:       models.StatusCode(effectiveStatus(record, now)),
			Reason:       record.Reason.Code,
		}
	})

	return &models.StatusList{
		IssuerID:      issuerID.String(),
		StatusPurpose: statusPurpose,
		Version:       list.Version,
		GeneratedAt:   now,
		Entries:       entries,
	}, nil
}

// mutate loads the issuer's list, applies fn under the issuer's lock, and
// persists with a version bump when fn reports a change.
func (m *Manager) mutate(ctx context.Context, issuerID id.IssuerID, fn func(*models.List) (bool, error)) error {
	m.locks.Lock(issuerID.String())
	defer m.locks.Unlock(issuerID.String())

	list, err := m.store.GetList(ctx, issuerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "loading revocation list")
	}
	if list == nil {
		list = models.NewList(issuerID)
	}

	changed, err := fn(list)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	list.Version++
	list.UpdatedAt = time.Now().UTC()
	if err := m.store.PutList(ctx, list); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInfrastructure, "saving revocation list")
	}
	m.metrics.SetListVersion(issuerID.String(), list.Version)
	return nil
}

func effectiveStatus(record *models.Record, now time.Time) models.Status {
	if record.Status != models.StatusRevoked &&
		record.CredentialExpiry != nil && record.CredentialExpiry.Before(now) {
		return models.StatusExpired
	}
	return record.Status
}

func (m *Manager) audit(ctx context.Context, action audit.Action, issuerID id.IssuerID, credID id.CredentialID, reason string) {
	if m.auditor == nil {
		return
	}
	event := audit.Event{
		Action:       action,
		IssuerID:     issuerID,
		CredentialID: credID,
		Reason:       reason,
	}
	if err := m.auditor.Emit(ctx, event); err != nil {
		m.logger.Error("failed to emit audit event", "action", action, "error", err)
	}
}
