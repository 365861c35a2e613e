package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	credmodels "veritas/internal/credential/models"
	credservice "veritas/internal/credential/service"
	credstore "veritas/internal/credential/store"
	"veritas/internal/keymanager"
	"veritas/internal/platform/config"
	"veritas/internal/platform/health"
	revservice "veritas/internal/revocation/service"
	revstore "veritas/internal/revocation/store"
	verservice "veritas/internal/verification/service"
	verstore "veritas/internal/verification/store"
)

const testIssuerDID = "did:web:veritas.example.edu"

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	certs  *verstore.InMemoryStore
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	keys, err := keymanager.NewInMemory()
	s.Require().NoError(err)

	s.certs = verstore.NewInMemory()
	pipeline, err := verservice.NewOrchestrator(config.VerificationConfig{
		LogoWeight:            0.20,
		TemplateWeight:        0.25,
		AIWeight:              0.35,
		MetadataWeight:        0.15,
		DuplicatePenalty:      0.40,
		AutoApproveThreshold:  0.90,
		ManualReviewThreshold: 0.70,
		DuplicateSimilarity:   0.95,
		RecentDocuments:       50,
	}, verstore.NewInMemoryIssuers(), s.certs, s.certs)
	s.Require().NoError(err)

	revocations := revservice.NewManager(revstore.NewInMemory())

	policies := credstore.NewInMemoryPolicies(credmodels.IssuancePolicy{
		Type:           "AcademicCredential",
		ValidityPeriod: 24 * time.Hour,
	})
	credentials := credstore.NewInMemoryCredentials()
	issuer := credservice.NewIssuer(testIssuerDID, config.IssuanceConfig{},
		policies, credstore.NewInMemoryIssuances(), credentials, keys)
	verifier := credservice.NewVerifier(keys, revocations, []string{testIssuerDID})

	router := NewRouter(Handlers{
		Certificates: NewCertificateHandler(s.certs, pipeline),
		Credentials:  NewCredentialHandler(issuer, verifier, credentials),
		Revocations:  NewRevocationHandler(revocations),
		Health:       health.New("veritas", "test"),
	}, logger)

	s.server = httptest.NewServer(router)
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
}

func (s *RouterSuite) postJSON(path string, body any) *http.Response {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(raw))
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, out any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *RouterSuite) TestCertificateLifecycle() {
	ownerID := uuid.NewString()
	resp := s.postJSON("/certificates", map[string]any{
		"owner_id":    ownerID,
		"institution": "Example University",
		"title":       "BSc Computer Science",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)

	var created certificateResponse
	s.decode(resp, &created)
	s.Equal("pending", string(created.Status))
	s.False(created.ID.IsNil())

	getResp, err := http.Get(s.server.URL + "/certificates/" + created.ID.String())
	s.Require().NoError(err)
	s.Equal(http.StatusOK, getResp.StatusCode)

	var fetched certificateResponse
	s.decode(getResp, &fetched)
	s.Equal(created.ID, fetched.ID)

	listResp, err := http.Get(s.server.URL + "/certificates?owner_id=" + ownerID)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, listResp.StatusCode)
}

func (s *RouterSuite) TestVerifyCertificateEndToEnd() {
	resp := s.postJSON("/certificates", map[string]any{
		"owner_id":    uuid.NewString(),
		"institution": "Example University",
		"title":       "BSc Computer Science",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created certificateResponse
	s.decode(resp, &created)

	// No registered issuers and no usable signals, so the run completes
	// with a rejection rather than an error.
	verifyResp := s.postJSON("/certificates/"+created.ID.String()+"/verify", map[string]any{
		"extracted": map[string]any{"raw_text": "short", "confidence": 0.2},
	})
	s.Equal(http.StatusOK, verifyResp.StatusCode)

	var result verificationResultResponse
	s.decode(verifyResp, &result)
	s.Equal("rejected", string(result.Decision))

	resultResp, err := http.Get(s.server.URL + "/certificates/" + created.ID.String() + "/result")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resultResp.StatusCode)
	resultResp.Body.Close()
}

func (s *RouterSuite) TestManualStatusOverride() {
	resp := s.postJSON("/certificates", map[string]any{
		"owner_id":    uuid.NewString(),
		"institution": "Example University",
		"title":       "BSc Computer Science",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created certificateResponse
	s.decode(resp, &created)

	raw, err := json.Marshal(map[string]any{"status": "verified"})
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPatch,
		s.server.URL+"/certificates/"+created.ID.String()+"/status", bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	patchResp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, patchResp.StatusCode)

	var updated certificateResponse
	s.decode(patchResp, &updated)
	s.Equal("verified", string(updated.Status))
}

func (s *RouterSuite) TestUnknownCertificateIs404() {
	resp, err := http.Get(s.server.URL + "/certificates/" + uuid.NewString())
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *RouterSuite) TestMalformedCertificateIDIs400() {
	resp, err := http.Get(s.server.URL + "/certificates/not-a-uuid")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *RouterSuite) issueCredential() credmodels.IssueResult {
	resp := s.postJSON("/credentials", map[string]any{
		"subject_id":      uuid.NewString(),
		"subject_did":     "did:example:subject",
		"credential_type": "AcademicCredential",
		"claims":          map[string]any{"degree": "BSc"},
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var issued credmodels.IssueResult
	s.decode(resp, &issued)
	return issued
}

func (s *RouterSuite) TestIssueAndVerifyCredential() {
	issued := s.issueCredential()
	s.Require().NotNil(issued.Credential)
	s.NotNil(issued.Credential.Proof)
	s.False(issued.IssuanceID.IsNil())
	s.False(issued.IssuedAt.IsZero())

	// Fetch the stored document and present it for verification.
	docResp, err := http.Get(s.server.URL + "/credentials/" + issued.Credential.ID)
	s.Require().NoError(err)
	document, err := io.ReadAll(docResp.Body)
	docResp.Body.Close()
	s.Require().NoError(err)

	verifyResp, err := http.Post(s.server.URL+"/credentials/verify", "application/json", bytes.NewReader(document))
	s.Require().NoError(err)
	s.Equal(http.StatusOK, verifyResp.StatusCode)

	var verdict credmodels.Verdict
	s.decode(verifyResp, &verdict)
	s.True(verdict.IsValid)
}

func (s *RouterSuite) TestVerifyOptionsOverWire() {
	issued := s.issueCredential()

	docResp, err := http.Get(s.server.URL + "/credentials/" + issued.Credential.ID)
	s.Require().NoError(err)
	document, err := io.ReadAll(docResp.Body)
	docResp.Body.Close()
	s.Require().NoError(err)

	// A per-call issuer allow-list that excludes the real issuer.
	verifyResp, err := http.Post(
		s.server.URL+"/credentials/verify?allowed_issuers=did:web:other.example.org",
		"application/json", bytes.NewReader(document))
	s.Require().NoError(err)
	s.Equal(http.StatusOK, verifyResp.StatusCode)

	var verdict credmodels.Verdict
	s.decode(verifyResp, &verdict)
	s.False(verdict.IsValid)

	// Revoke the credential, then skip the revocation lookup.
	resp := s.postJSON("/revocations/revoke", map[string]any{
		"issuer_id":     testIssuerDID,
		"credential_id": issued.Credential.ID,
		"reason":        "fraud",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	verifyResp, err = http.Post(
		s.server.URL+"/credentials/verify?skip_revocation=true",
		"application/json", bytes.NewReader(document))
	s.Require().NoError(err)
	s.decode(verifyResp, &verdict)
	s.True(verdict.IsValid)
}

func (s *RouterSuite) TestIssueWithoutPolicyIs412() {
	resp := s.postJSON("/credentials", map[string]any{
		"subject_id":      uuid.NewString(),
		"subject_did":     "did:example:subject",
		"credential_type": "UnknownType",
		"claims":          map[string]any{"x": "y"},
	})
	defer resp.Body.Close()
	s.Equal(http.StatusPreconditionFailed, resp.StatusCode)
}

func (s *RouterSuite) TestRevocationFlow() {
	credID := "urn:uuid:" + uuid.NewString()

	resp := s.postJSON("/revocations/revoke", map[string]any{
		"issuer_id":     testIssuerDID,
		"credential_id": credID,
		"reason":        "fraud",
		"revoked_by":    "did:example:registrar",
		"metadata":      map[string]string{"case": "INV-7"},
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	var record struct {
		RevokedBy string            `json:"revoked_by"`
		Metadata  map[string]string `json:"metadata"`
	}
	s.decode(resp, &record)
	s.Equal("did:example:registrar", record.RevokedBy)
	s.Equal("INV-7", record.Metadata["case"])

	statusResp, err := http.Get(fmt.Sprintf("%s/revocations/status?issuer_id=%s&credential_id=%s",
		s.server.URL, testIssuerDID, credID))
	s.Require().NoError(err)

	var status struct {
		Status string `json:"status"`
	}
	s.decode(statusResp, &status)
	s.Equal("revoked", status.Status)
}

func (s *RouterSuite) TestUnknownRevocationReasonIs400() {
	resp := s.postJSON("/revocations/revoke", map[string]any{
		"issuer_id":     testIssuerDID,
		"credential_id": "urn:uuid:" + uuid.NewString(),
		"reason":        "bogus",
	})
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *RouterSuite) TestReasonsEndpoint() {
	resp, err := http.Get(s.server.URL + "/revocations/reasons")
	s.Require().NoError(err)

	var body struct {
		Reasons []struct {
			Code string `json:"code"`
		} `json:"reasons"`
	}
	s.decode(resp, &body)
	s.NotEmpty(body.Reasons)
}

func (s *RouterSuite) TestHealthAndMetrics() {
	for _, path := range []string{"/health/live", "/metrics"} {
		resp, err := http.Get(s.server.URL + path)
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode, path)
	}
}

func (s *RouterSuite) TestWrongContentTypeIs415() {
	resp, err := http.Post(s.server.URL+"/credentials", "text/plain", bytes.NewReader([]byte("{}")))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}
