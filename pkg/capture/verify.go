package capture

import (
	"crypto/ed25519"
	"errors"
	"time"

	"intentd/internal/domain"
	cryptoinfra "intentd/internal/infra/crypto"
	"intentd/internal/infra/merkle"
)

type VerifyOptions struct {
	AuthorityPublicKey ed25519.PublicKey
	Now                func() time.Time
}

// VerifyToken is the offline counterpart of the authority's token
// verification: signature against the authority public key, then
// expiry. Embedders use it to pre-screen tokens without a network hop.
func VerifyToken(token domain.IntentToken, opts VerifyOptions) error {
	if len(opts.AuthorityPublicKey) != ed25519.PublicKeySize {
		return errors.New("authority public key is required")
	}
	svc := cryptoinfra.NewService()
	payload, err := svc.TokenSigningBytes(token)
	if err != nil {
		return err
	}
	if err := svc.VerifySignature(payload, token.Signature, opts.AuthorityPublicKey); err != nil {
		return domain.ErrTokenSignatureInvalid
	}
	now := time.Now()
	if opts.Now != nil {
		now = opts.Now()
	}
	if now.After(token.ExpiresAt) {
		return domain.ErrTokenExpired
	}
	return nil
}

// Authorize runs the invocation decision procedure offline, with the
// same gates and the same deny reasons the authority applies.
func Authorize(token domain.IntentToken, action string, stepIndex int, step domain.Step, opts VerifyOptions) domain.Decision {
	if err := VerifyToken(token, opts); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return domain.Deny(domain.DenyTokenExpired)
		}
		return domain.Deny(domain.DenyInvalidToken)
	}
	if !token.Policy.Allows(action) {
		return domain.Deny(domain.DenyActionNotAuthorized)
	}
	if stepIndex < 0 || stepIndex >= len(token.StepProofs) {
		return domain.Deny(domain.DenyNotALeaf)
	}
	if step.Action != action {
		return domain.Deny(domain.DenyProofMismatch)
	}
	leafHash, err := cryptoinfra.LeafHash(step)
	if err != nil {
		return domain.Deny(domain.DenyProofMismatch)
	}
	if !merkle.Verify(leafHash, token.StepProofs[stepIndex], token.MerkleRoot) {
		return domain.Deny(domain.DenyProofMismatch)
	}
	return domain.Allow()
}
