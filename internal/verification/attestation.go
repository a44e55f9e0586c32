package verification

import (
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"certus/internal/erasure"
	dErrors "certus/pkg/domain-errors"
)

// AttestationClaims is the payload of a verification attestation: a compact
// portable statement that a named verifier checked a proof and what it found.
type AttestationClaims struct {
	jwt.RegisteredClaims
	ProofID    string  `json:"proof_id"`
	TenantID   string  `json:"tenant_id"`
	ErasureID  string  `json:"erasure_id"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

// Attestor issues and checks signed verification attestations. Attestations
// use the same Ed25519 key as the proof state signatures, so one published
// public key validates both.
type Attestor struct {
	key    ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// AttestorOption configures the Attestor.
type AttestorOption func(*Attestor)

// WithTTL overrides the default one-year attestation validity.
func WithTTL(ttl time.Duration) AttestorOption {
	return func(a *Attestor) { a.ttl = ttl }
}

// WithAttestorClock overrides the time source, for deterministic tests.
func WithAttestorClock(now func() time.Time) AttestorOption {
	return func(a *Attestor) { a.now = now }
}

// NewAttestor constructs an attestor signing as issuer.
func NewAttestor(signer *erasure.Signer, issuer string, opts ...AttestorOption) *Attestor {
	a := &Attestor{
		key:    signer.AttestationKey(),
		pub:    signer.Public(),
		issuer: issuer,
		ttl:    365 * 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Issue signs an attestation for a proof that passed verification.
func (a *Attestor) Issue(proof *erasure.Proof) (string, error) {
	if proof == nil || proof.Verification == nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "attestation requires a verified proof")
	}
	if !proof.Verification.Result {
		return "", dErrors.New(dErrors.CodeVerificationFailed,
			"proof "+proof.ID.String()+" has not passed verification")
	}

	now := a.now().UTC()
	claims := AttestationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   proof.SubjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		ProofID:    proof.ID.String(),
		TenantID:   proof.TenantID.String(),
		ErasureID:  proof.ErasureID.String(),
		Strategy:   proof.Verification.Strategy,
		Confidence: proof.Verification.Confidence,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(a.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign attestation")
	}
	return token, nil
}

// Check parses and validates an attestation token.
func (a *Attestor) Check(token string) (*AttestationClaims, error) {
	claims := &AttestationClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.pub, nil },
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeVerificationFailed, "invalid attestation")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeVerificationFailed, "invalid attestation")
	}
	return claims, nil
}
