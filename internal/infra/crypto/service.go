package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"intentd/internal/domain"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) CanonicalizePlan(plan domain.Plan) ([]domain.Leaf, error) {
	return CanonicalizePlan(plan)
}

func (s *Service) PlanHash(plan domain.Plan) (string, error) {
	return PlanHash(plan)
}

func (s *Service) LeafHash(step domain.Step) ([]byte, error) {
	return LeafHash(step)
}

// TokenSigningBytes is the canonical byte-encoding the authority signs:
// every token field except the signature itself. Any field change after
// issuance invalidates the signature.
func (s *Service) TokenSigningBytes(token domain.IntentToken) ([]byte, error) {
	return CanonicalizeValue(tokenPayload(token))
}

// DelegationSigningBytes covers the fields that bind a delegation to its
// parent commitment: parent id, delegate key, narrowed actions, the
// inherited plan hash and merkle root, and the expiry.
func (s *Service) DelegationSigningBytes(token domain.DelegationToken) ([]byte, error) {
	return CanonicalizeValue(delegationPayload(token))
}

func (s *Service) VerifySignature(payload []byte, signatureB64 string, pubKey []byte) error {
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid ed25519 public key length: %d", len(pubKey))
	}
	if signatureB64 == "" {
		return errors.New("signature value is required")
	}
	sigBytes, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("invalid ed25519 signature length: %d", len(sigBytes))
	}
	if !ed25519.Verify(pubKey, payload, sigBytes) {
		return errors.New("signature verification failed")
	}
	return nil
}

func tokenPayload(token domain.IntentToken) map[string]any {
	return map[string]any{
		"token_id":    token.TokenID,
		"plan_hash":   token.PlanHash,
		"merkle_root": hex.EncodeToString(token.MerkleRoot),
		"subject": map[string]any{
			"user_id":    token.Subject.UserID,
			"agent_id":   token.Subject.AgentID,
			"context_id": token.Subject.ContextID,
		},
		"policy": map[string]any{
			"allowed_actions": sortedActions(token.Policy.AllowedActions),
		},
		"issued_at":  token.IssuedAt.UTC().Format(time.RFC3339),
		"expires_at": token.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func delegationPayload(token domain.DelegationToken) map[string]any {
	return map[string]any{
		"parent_token_id":     token.ParentTokenID,
		"delegate_public_key": hex.EncodeToString(token.DelegatePublicKey),
		"allowed_actions":     sortedActions(token.AllowedActions),
		"plan_hash":           token.PlanHash,
		"merkle_root":         hex.EncodeToString(token.MerkleRoot),
		"expires_at":          token.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// sortedActions fixes the set ordering inside signed payloads so that a
// policy built from a differently ordered slice still verifies.
func sortedActions(actions []string) []any {
	sorted := make([]string, len(actions))
	copy(sorted, actions)
	sort.Strings(sorted)
	out := make([]any, len(sorted))
	for i, a := range sorted {
		out[i] = a
	}
	return out
}
