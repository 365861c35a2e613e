// Package proof creates and checks JsonWebSignature2020 proofs over
// credential documents.
//
// The proof's jws field is a compact ES256 JWS whose payload is the full
// credential document with the proof removed. Verification therefore binds
// the signature to every claim in the presented credential, not just a
// digest chosen at signing time.
package proof

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"veritas/internal/credential/models"
	"veritas/internal/keymanager"
	dErrors "veritas/pkg/domain-errors"
)

// KeyResolver resolves verification keys by kid.
type KeyResolver interface {
	KeyByID(ctx context.Context, kid string) (*keymanager.SigningKey, error)
}

// Sign produces a proof over the credential document. Any existing proof in
// the document is stripped before signing.
func Sign(credential []byte, key *keymanager.SigningKey, verificationMethod string, now time.Time) (*models.Proof, error) {
	if key == nil || key.Private == nil {
		return nil, dErrors.New(dErrors.CodeNoSigningKey, "signing key has no private part")
	}

	payload, err := sjson.DeleteBytes(credential, "proof")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "stripping proof")
	}

	header, err := json.Marshal(map[string]string{
		"alg": key.Alg,
		"kid": key.Kid,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encoding jws header")
	}

	signingInput := base64.RawURLEncoding.EncodeToString(header) +
		"." + base64.RawURLEncoding.EncodeToString(payload)

	sig, err := jwt.SigningMethodES256.Sign(signingInput, key.Private)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeCryptoFailure, "signing credential")
	}

	return &models.Proof{
		Type:               models.ProofTypeJWS,
		Created:            now.UTC().Format(time.RFC3339),
		ProofPurpose:       models.ProofPurposeAssertion,
		VerificationMethod: verificationMethod,
		JWS:                signingInput + "." + base64.RawURLEncoding.EncodeToString(sig),
	}, nil
}

// Verify checks the proof embedded in a presented credential document: the
// signature must verify under the key named in the JWS header, and the signed
// payload must equal the presented document with the proof removed.
func Verify(ctx context.Context, presented []byte, resolver KeyResolver) error {
	jws := gjson.GetBytes(presented, "proof.jws").String()
	if jws == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "credential has no proof")
	}

	parts := strings.Split(jws, ".")
	if len(parts) != 3 {
		return dErrors.New(dErrors.CodeInvalidInput, "malformed jws")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "malformed jws header")
	}
	alg := gjson.GetBytes(headerJSON, "alg").String()
	kid := gjson.GetBytes(headerJSON, "kid").String()
	if alg != keymanager.AlgES256 {
		return dErrors.New(dErrors.CodeInvalidInput, "unexpected signing algorithm")
	}
	if kid == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "jws header has no kid")
	}

	key, err := resolver.KeyByID(ctx, kid)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "resolving signing key")
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "malformed jws signature")
	}
	if err := jwt.SigningMethodES256.Verify(parts[0]+"."+parts[1], sig, key.Public); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid proof signature")
	}

	signedPayload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "malformed jws payload")
	}
	presentedPayload, err := sjson.DeleteBytes(presented, "proof")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "stripping proof")
	}

	var signed, current any
	if err := json.Unmarshal(signedPayload, &signed); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "signed payload is not valid json")
	}
	if err := json.Unmarshal(presentedPayload, &current); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "credential is not valid json")
	}
	if !reflect.DeepEqual(signed, current) {
		return dErrors.New(dErrors.CodeInvalidInput, "credential does not match signed payload")
	}
	return nil
}
