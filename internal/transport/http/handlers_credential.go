package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"veritas/internal/credential/models"
	"veritas/internal/credential/service"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
)

// maxCredentialBytes bounds the size of a presented credential document.
const maxCredentialBytes = 1 << 20

// CredentialIssuer issues signed credentials.
type CredentialIssuer interface {
	Issue(ctx context.Context, req models.IssueRequest) (*models.IssueResult, error)
}

// CredentialVerifier checks presented credential documents.
type CredentialVerifier interface {
	Verify(ctx context.Context, document []byte, opts service.VerifyOptions) (*models.Verdict, error)
}

// CredentialReader fetches stored credential documents.
type CredentialReader interface {
	GetCredential(ctx context.Context, credID id.CredentialID) ([]byte, error)
}

// CredentialHandler exposes credential issuance and verification endpoints.
type CredentialHandler struct {
	issuer      CredentialIssuer
	verifier    CredentialVerifier
	credentials CredentialReader
}

func NewCredentialHandler(issuer CredentialIssuer, verifier CredentialVerifier, credentials CredentialReader) *CredentialHandler {
	return &CredentialHandler{issuer: issuer, verifier: verifier, credentials: credentials}
}

func (h *CredentialHandler) Register(r chi.Router) {
	r.Post("/credentials", h.handleIssue)
	r.Post("/credentials/verify", h.handleVerify)
	r.Get("/credentials/{credentialID}", h.handleGet)
}

func (h *CredentialHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req models.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.issuer.Issue(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

func (h *CredentialHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	document, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "reading request body"))
		return
	}

	q := r.URL.Query()
	opts := service.VerifyOptions{
		AllowExpired:   q.Get("allow_expired") == "true",
		StrictMode:     q.Get("strict_mode") == "true",
		SkipRevocation: q.Get("skip_revocation") == "true",
	}
	if raw := q.Get("allowed_issuers"); raw != "" {
		opts.AllowedIssuers = strings.Split(raw, ",")
	}
	verdict, err := h.verifier.Verify(r.Context(), document, opts)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verdict)
}

func (h *CredentialHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	credID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	document, err := h.credentials.GetCredential(r.Context(), credID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}
