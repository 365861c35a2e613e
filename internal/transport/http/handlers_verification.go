package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
)

// VerificationService runs the signal pipeline for an uploaded certificate.
type VerificationService interface {
	Verify(ctx context.Context, certID id.CertificateID, fileBytes []byte, extracted models.ExtractedFields) (*models.VerificationResult, error)
	Result(ctx context.Context, certID id.CertificateID) (*models.VerificationResult, error)
}

// CertificateRegistry is the certificate persistence the handler needs.
type CertificateRegistry interface {
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	ListCertificatesByOwner(ctx context.Context, ownerID id.SubjectID) ([]*models.Certificate, error)
	UpdateStatus(ctx context.Context, certID id.CertificateID, status models.CertificateStatus) error
}

// CertificateHandler exposes certificate upload and verification endpoints.
type CertificateHandler struct {
	certs    CertificateRegistry
	pipeline VerificationService
}

func NewCertificateHandler(certs CertificateRegistry, pipeline VerificationService) *CertificateHandler {
	return &CertificateHandler{certs: certs, pipeline: pipeline}
}

func (h *CertificateHandler) Register(r chi.Router) {
	r.Post("/certificates", h.handleCreate)
	r.Get("/certificates", h.handleList)
	r.Get("/certificates/{certificateID}", h.handleGet)
	r.Post("/certificates/{certificateID}/verify", h.handleVerify)
	r.Get("/certificates/{certificateID}/result", h.handleResult)
	r.Patch("/certificates/{certificateID}/status", h.handleOverrideStatus)
}

type createCertificateRequest struct {
	OwnerID     id.SubjectID `json:"owner_id"`
	Institution string       `json:"institution"`
	Title       string       `json:"title"`
	DateIssued  string       `json:"date_issued"`
	FileRef     string       `json:"file_ref"`
}

type certificateResponse struct {
	ID          id.CertificateID         `json:"id"`
	OwnerID     id.SubjectID             `json:"owner_id"`
	Institution string                   `json:"institution"`
	Title       string                   `json:"title"`
	DateIssued  string                   `json:"date_issued,omitempty"`
	FileRef     string                   `json:"file_ref,omitempty"`
	Status      models.CertificateStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func toCertificateResponse(cert *models.Certificate) certificateResponse {
	return certificateResponse{
		ID:          cert.ID,
		OwnerID:     cert.OwnerID,
		Institution: cert.Institution,
		Title:       cert.Title,
		DateIssued:  cert.DateIssued,
		FileRef:     cert.FileRef,
		Status:      cert.Status,
		CreatedAt:   cert.CreatedAt,
		UpdatedAt:   cert.UpdatedAt,
	}
}

func (h *CertificateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.OwnerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "owner_id is required"))
		return
	}

	now := time.Now().UTC()
	cert := &models.Certificate{
		ID:          id.CertificateID(uuid.New()),
		OwnerID:     req.OwnerID,
		Institution: req.Institution,
		Title:       req.Title,
		DateIssued:  req.DateIssued,
		FileRef:     req.FileRef,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.certs.CreateCertificate(r.Context(), cert); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCertificateResponse(cert))
}

func (h *CertificateHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.certs.GetCertificate(r.Context(), certID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(cert))
}

func (h *CertificateHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ownerID, err := id.ParseSubjectID(r.URL.Query().Get("owner_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	certs, err := h.certs.ListCertificatesByOwner(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	responses := make([]certificateResponse, 0, len(certs))
	for _, cert := range certs {
		responses = append(responses, toCertificateResponse(cert))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certificates": responses})
}

type verifyCertificateRequest struct {
	// File is the certificate image, base64-encoded by encoding/json.
	File      []byte                 `json:"file"`
	Extracted extractedFieldsRequest `json:"extracted"`
}

type extractedFieldsRequest struct {
	RawText     string  `json:"raw_text"`
	Confidence  float64 `json:"confidence"`
	Title       string  `json:"title"`
	Institution string  `json:"institution"`
	Date        string  `json:"date"`
	Recipient   string  `json:"recipient"`
	Description string  `json:"description"`
}

type verificationResultResponse struct {
	CertificateID        id.CertificateID         `json:"certificate_id"`
	ConfidenceScore      float64                  `json:"confidence_score"`
	Method               models.Method            `json:"method"`
	AutoApproved         bool                     `json:"auto_approved"`
	RequiresManualReview bool                     `json:"requires_manual_review"`
	Decision             models.CertificateStatus `json:"decision"`
	Details              models.SignalDetails     `json:"details"`
	CreatedAt            time.Time                `json:"created_at"`
}

func toResultResponse(result *models.VerificationResult) verificationResultResponse {
	return verificationResultResponse{
		CertificateID:        result.CertificateID,
		ConfidenceScore:      result.ConfidenceScore,
		Method:               result.Method,
		AutoApproved:         result.AutoApproved,
		RequiresManualReview: result.RequiresManualReview,
		Decision:             result.Decision,
		Details:              result.Details,
		CreatedAt:            result.CreatedAt,
	}
}

func (h *CertificateHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req verifyCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.pipeline.Verify(r.Context(), certID, req.File, models.ExtractedFields{
		RawText:     req.Extracted.RawText,
		Confidence:  req.Extracted.Confidence,
		Title:       req.Extracted.Title,
		Institution: req.Extracted.Institution,
		Date:        req.Extracted.Date,
		Recipient:   req.Extracted.Recipient,
		Description: req.Extracted.Description,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResultResponse(result))
}

type overrideStatusRequest struct {
	Status models.CertificateStatus `json:"status"`
}

// handleOverrideStatus lets an operator override the pipeline's decision,
// for example after reviewing a certificate flagged for manual review.
func (h *CertificateHandler) handleOverrideStatus(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req overrideStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	switch req.Status {
	case models.StatusPending, models.StatusVerified, models.StatusRejected:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown certificate status"))
		return
	}

	if err := h.certs.UpdateStatus(r.Context(), certID, req.Status); err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.certs.GetCertificate(r.Context(), certID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(cert))
}

func (h *CertificateHandler) handleResult(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.pipeline.Result(r.Context(), certID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResultResponse(result))
}
