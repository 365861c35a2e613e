package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"veritas/internal/revocation/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
)

// RevocationService manages issuer-scoped revocation lists.
type RevocationService interface {
	Revoke(ctx context.Context, issuerID id.IssuerID, credID id.CredentialID, reasonCode, revokedBy string, metadata map[string]string, credentialExpiry *time.Time) (*models.Record, error)
	Suspend(ctx context.Context, issuerID id.IssuerID, credID id.CredentialID, reasonCode, revokedBy string, metadata map[string]string) (*models.Record, error)
	Restore(ctx context.Context, issuerID id.IssuerID, credID id.CredentialID) (*models.Record, error)
	CheckStatus(ctx context.Context, issuerID id.IssuerID, credID id.CredentialID) (models.Status, error)
	CheckStatuses(ctx context.Context, issuerID id.IssuerID, credIDs []id.CredentialID) (map[id.CredentialID]models.Status, error)
	CleanupExpired(ctx context.Context, issuerID id.IssuerID, maxAge time.Duration) (int, error)
	StatusList(ctx context.Context, issuerID id.IssuerID) (*models.StatusList, error)
}

// RevocationHandler exposes the revocation list management endpoints.
type RevocationHandler struct {
	revocations RevocationService
}

func NewRevocationHandler(revocations RevocationService) *RevocationHandler {
	return &RevocationHandler{revocations: revocations}
}

// Register mounts the revocation routes. Issuer IDs are DIDs, so they travel
// in bodies and query strings rather than path segments.
func (h *RevocationHandler) Register(r chi.Router) {
	r.Post("/revocations/revoke", h.handleRevoke)
	r.Post("/revocations/suspend", h.handleSuspend)
	r.Post("/revocations/restore", h.handleRestore)
	r.Get("/revocations/status", h.handleStatus)
	r.Post("/revocations/status", h.handleBulkStatus)
	r.Post("/revocations/cleanup", h.handleCleanup)
	r.Get("/revocations/status-list", h.handleStatusList)
	r.Get("/revocations/reasons", h.handleReasons)
}

type revocationRequest struct {
	IssuerID     string `json:"issuer_id"`
	CredentialID string `json:"credential_id"`
	Reason       string `json:"reason,omitempty"`

	// RevokedBy names the actor requesting the change; Metadata carries
	// free-form context that ends up on the record.
	RevokedBy string            `json:"revoked_by,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	// CredentialExpiry lets status reads report expired once the
	// underlying credential would have lapsed anyway.
	CredentialExpiry *time.Time `json:"credential_expiry,omitempty"`
}

func (req revocationRequest) ids() (id.IssuerID, id.CredentialID, error) {
	issuerID, err := id.ParseIssuerID(req.IssuerID)
	if err != nil {
		return "", "", err
	}
	credID, err := id.ParseCredentialID(req.CredentialID)
	if err != nil {
		return "", "", err
	}
	return issuerID, credID, nil
}

func decodeRevocationRequest(w http.ResponseWriter, r *http.Request) (revocationRequest, bool) {
	var req revocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return req, false
	}
	return req, true
}

func (h *RevocationHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRevocationRequest(w, r)
	if !ok {
		return
	}
	issuerID, credID, err := req.ids()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.revocations.Revoke(r.Context(), issuerID, credID, req.Reason, req.RevokedBy, req.Metadata, req.CredentialExpiry)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *RevocationHandler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRevocationRequest(w, r)
	if !ok {
		return
	}
	issuerID, credID, err := req.ids()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.revocations.Suspend(r.Context(), issuerID, credID, req.Reason, req.RevokedBy, req.Metadata)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *RevocationHandler) handleRestore(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRevocationRequest(w, r)
	if !ok {
		return
	}
	issuerID, credID, err := req.ids()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.revocations.Restore(r.Context(), issuerID, credID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *RevocationHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	issuerID, err := id.ParseIssuerID(r.URL.Query().Get("issuer_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credID, err := id.ParseCredentialID(r.URL.Query().Get("credential_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.revocations.CheckStatus(r.Context(), issuerID, credID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"issuer_id":     issuerID,
		"credential_id": credID,
		"status":        status,
	})
}

type bulkStatusRequest struct {
	IssuerID      string   `json:"issuer_id"`
	CredentialIDs []string `json:"credential_ids"`
}

func (h *RevocationHandler) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	issuerID, err := id.ParseIssuerID(req.IssuerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credIDs := make([]id.CredentialID, 0, len(req.CredentialIDs))
	for _, raw := range req.CredentialIDs {
		credID, err := id.ParseCredentialID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		credIDs = append(credIDs, credID)
	}

	statuses, err := h.revocations.CheckStatuses(r.Context(), issuerID, credIDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"issuer_id": issuerID,
		"statuses":  statuses,
	})
}

type cleanupRequest struct {
	IssuerID string `json:"issuer_id"`

	// MaxAgeSeconds is the retention window; records whose last change is
	// older than this are purged.
	MaxAgeSeconds int64 `json:"max_age_seconds"`
}

func (h *RevocationHandler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	issuerID, err := id.ParseIssuerID(req.IssuerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	purged, err := h.revocations.CleanupExpired(r.Context(), issuerID, time.Duration(req.MaxAgeSeconds)*time.Second)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"issuer_id": issuerID,
		"purged":    purged,
	})
}

func (h *RevocationHandler) handleStatusList(w http.ResponseWriter, r *http.Request) {
	issuerID, err := id.ParseIssuerID(r.URL.Query().Get("issuer_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := h.revocations.StatusList(r.Context(), issuerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *RevocationHandler) handleReasons(w http.ResponseWriter, _ *http.Request) {
	reasons := models.KnownReasons()
	sort.Slice(reasons, func(i, j int) bool { return reasons[i].Code < reasons[j].Code })
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"reasons": reasons})
}
