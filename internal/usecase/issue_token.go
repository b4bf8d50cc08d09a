package usecase

import (
	"context"
	"fmt"
	"time"

	"intentd/internal/domain"

	"github.com/google/uuid"
)

type IssueTokenRequest struct {
	Plan     domain.Plan
	Subject  domain.Subject
	Actions  []string
	Validity time.Duration
}

// TokenAuthority issues intent tokens over plan commitments and
// verifies tokens presented back to it. Policy, Tokens and Audit are
// optional; issuance without them is pure in-process signing.
type TokenAuthority struct {
	Crypto CryptoService
	Merkle MerkleBuilder
	Keys   KeyManager
	Policy PolicyEngine
	Tokens TokenRepository
	Audit  *AuditEmitter

	DefaultValidity time.Duration
	Now             func() time.Time
	NewID           func() string
}

// MerkleBuilder turns the ordered leaf hashes of a canonicalized plan
// into a commitment root plus one inclusion proof per leaf.
type MerkleBuilder interface {
	Commit(leafHashes [][]byte) (root []byte, proofs []domain.MerkleProof, err error)
}

func (a *TokenAuthority) Issue(ctx context.Context, req IssueTokenRequest) (*domain.IntentToken, error) {
	if len(req.Plan.Steps) == 0 {
		return nil, fmt.Errorf("%w: plan has no steps", domain.ErrCanonicalize)
	}
	if len(req.Actions) == 0 {
		return nil, fmt.Errorf("%w: no actions requested", domain.ErrPolicyRejected)
	}

	allowedActions := req.Actions
	if a.Policy != nil {
		evaluation, err := a.Policy.Evaluate(ctx, domain.PolicyInput{
			Subject:          req.Subject,
			Plan:             req.Plan,
			RequestedActions: req.Actions,
		})
		if err != nil {
			return nil, fmt.Errorf("policy evaluation: %w", err)
		}
		if !evaluation.Result.Allow {
			return nil, fmt.Errorf("%w: %s", domain.ErrPolicyRejected, denySummary(evaluation.Result.Deny))
		}
		if len(evaluation.Result.AllowedActions) > 0 {
			allowedActions = evaluation.Result.AllowedActions
		}
	}

	leaves, err := a.Crypto.CanonicalizePlan(req.Plan)
	if err != nil {
		return nil, err
	}
	leafHashes := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		leafHashes[i] = leaf.Hash
	}
	root, proofs, err := a.Merkle.Commit(leafHashes)
	if err != nil {
		return nil, err
	}
	planHash, err := a.Crypto.PlanHash(req.Plan)
	if err != nil {
		return nil, err
	}

	validity := req.Validity
	if validity <= 0 {
		validity = a.defaultValidity()
	}
	issuedAt := a.now()
	token := domain.IntentToken{
		TokenID:    a.newID(),
		PlanHash:   planHash,
		MerkleRoot: root,
		Subject:    req.Subject,
		Policy:     domain.Policy{AllowedActions: allowedActions},
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(validity),
		StepProofs: proofs,
	}

	payload, err := a.Crypto.TokenSigningBytes(token)
	if err != nil {
		return nil, err
	}
	token.Signature, err = a.Keys.Sign(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if a.Tokens != nil {
		if err := a.Tokens.Create(ctx, token); err != nil {
			return nil, fmt.Errorf("persist token: %w", err)
		}
	}
	a.Audit.TokenIssued(ctx, token)
	return &token, nil
}

// Verify checks a presented token: signature first, then expiry, then
// structural completeness. Each failure maps to a distinct error kind
// so callers can tell a forged token from a stale one.
func (a *TokenAuthority) Verify(ctx context.Context, token domain.IntentToken) error {
	payload, err := a.Crypto.TokenSigningBytes(token)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
	if err := a.Crypto.VerifySignature(payload, token.Signature, a.Keys.PublicKey().PublicKey); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenSignatureInvalid, err)
	}
	if a.now().After(token.ExpiresAt) {
		return domain.ErrTokenExpired
	}
	if token.TokenID == "" || token.PlanHash == "" {
		return fmt.Errorf("%w: missing identity fields", domain.ErrTokenMalformed)
	}
	if len(token.MerkleRoot) == 0 {
		return fmt.Errorf("%w: missing merkle root", domain.ErrTokenMalformed)
	}
	if len(token.Policy.AllowedActions) == 0 {
		return fmt.Errorf("%w: empty policy", domain.ErrTokenMalformed)
	}
	if token.IssuedAt.IsZero() || token.ExpiresAt.IsZero() {
		return fmt.Errorf("%w: missing validity window", domain.ErrTokenMalformed)
	}
	return nil
}

func (a *TokenAuthority) defaultValidity() time.Duration {
	if a.DefaultValidity > 0 {
		return a.DefaultValidity
	}
	return 5 * time.Minute
}

func (a *TokenAuthority) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *TokenAuthority) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

func denySummary(deny []domain.PolicyDeny) string {
	if len(deny) == 0 {
		return "policy denied"
	}
	out := deny[0].Code
	for _, item := range deny[1:] {
		out += ", " + item.Code
	}
	return out
}
