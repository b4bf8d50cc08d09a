package usecase

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"intentd/internal/domain"

	"github.com/google/uuid"
)

const DefaultMaxDelegationDepth = 5

type DelegateRequest struct {
	Parent            domain.IntentToken
	DelegatePublicKey []byte
	Actions           []string
	Validity          time.Duration
}

type RedelegateRequest struct {
	Parent            domain.DelegationToken
	DelegatePublicKey []byte
	Actions           []string
	Validity          time.Duration
}

// DelegationService derives narrower tokens from existing ones. Every
// precondition violation is a hard error; nothing is silently clamped.
type DelegationService struct {
	Crypto      CryptoService
	Keys        KeyManager
	Verifier    TokenVerifier
	Delegations DelegationRepository
	Audit       *AuditEmitter

	MaxDepth int
	Now      func() time.Time
	NewID    func() string
}

// Delegate derives a first-level delegation from an intent token. The
// plan hash, merkle root and step proofs carry over unchanged: the
// delegation narrows who may act and which actions, not the plan.
func (s *DelegationService) Delegate(ctx context.Context, req DelegateRequest) (*domain.DelegationToken, error) {
	if s.Verifier != nil {
		if err := s.Verifier.Verify(ctx, req.Parent); err != nil {
			return nil, err
		}
	}
	if err := validateDelegateKey(req.DelegatePublicKey); err != nil {
		return nil, err
	}
	if err := validateScope(req.Actions, req.Parent.Policy.AllowedActions); err != nil {
		return nil, err
	}
	expiresAt, err := s.delegationExpiry(req.Validity, req.Parent.ExpiresAt)
	if err != nil {
		return nil, err
	}

	token := domain.DelegationToken{
		DelegationID:      s.newID(),
		ParentTokenID:     req.Parent.TokenID,
		DelegatePublicKey: append([]byte(nil), req.DelegatePublicKey...),
		AllowedActions:    append([]string(nil), req.Actions...),
		PlanHash:          req.Parent.PlanHash,
		MerkleRoot:        append([]byte(nil), req.Parent.MerkleRoot...),
		IssuedAt:          s.now(),
		ExpiresAt:         expiresAt,
		Depth:             1,
		StepProofs:        req.Parent.StepProofs,
	}
	return s.finalize(ctx, token)
}

// Redelegate derives a delegation from an existing delegation, one
// level deeper. Depth is capped to bound verification cost.
func (s *DelegationService) Redelegate(ctx context.Context, req RedelegateRequest) (*domain.DelegationToken, error) {
	if err := s.VerifyDelegation(ctx, req.Parent); err != nil {
		return nil, err
	}
	if req.Parent.Depth >= s.maxDepth() {
		return nil, fmt.Errorf("%w: depth %d reached the cap of %d", domain.ErrDelegationDepth, req.Parent.Depth, s.maxDepth())
	}
	if err := validateDelegateKey(req.DelegatePublicKey); err != nil {
		return nil, err
	}
	if err := validateScope(req.Actions, req.Parent.AllowedActions); err != nil {
		return nil, err
	}
	expiresAt, err := s.delegationExpiry(req.Validity, req.Parent.ExpiresAt)
	if err != nil {
		return nil, err
	}

	token := domain.DelegationToken{
		DelegationID:      s.newID(),
		ParentTokenID:     req.Parent.DelegationID,
		DelegatePublicKey: append([]byte(nil), req.DelegatePublicKey...),
		AllowedActions:    append([]string(nil), req.Actions...),
		PlanHash:          req.Parent.PlanHash,
		MerkleRoot:        append([]byte(nil), req.Parent.MerkleRoot...),
		IssuedAt:          s.now(),
		ExpiresAt:         expiresAt,
		Depth:             req.Parent.Depth + 1,
		StepProofs:        req.Parent.StepProofs,
	}
	return s.finalize(ctx, token)
}

// VerifyDelegation checks the authority signature and expiry of a
// delegation token presented at invocation time.
func (s *DelegationService) VerifyDelegation(ctx context.Context, token domain.DelegationToken) error {
	payload, err := s.Crypto.DelegationSigningBytes(token)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
	if err := s.Crypto.VerifySignature(payload, token.Signature, s.Keys.PublicKey().PublicKey); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenSignatureInvalid, err)
	}
	if s.now().After(token.ExpiresAt) {
		return domain.ErrTokenExpired
	}
	if token.DelegationID == "" || token.ParentTokenID == "" || token.PlanHash == "" {
		return fmt.Errorf("%w: missing identity fields", domain.ErrTokenMalformed)
	}
	return nil
}

func (s *DelegationService) finalize(ctx context.Context, token domain.DelegationToken) (*domain.DelegationToken, error) {
	payload, err := s.Crypto.DelegationSigningBytes(token)
	if err != nil {
		return nil, err
	}
	token.Signature, err = s.Keys.Sign(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("sign delegation: %w", err)
	}
	if s.Delegations != nil {
		if err := s.Delegations.Create(ctx, token); err != nil {
			return nil, fmt.Errorf("persist delegation: %w", err)
		}
	}
	s.Audit.DelegationCreated(ctx, token)
	return &token, nil
}

func (s *DelegationService) delegationExpiry(validity time.Duration, parentExpiry time.Time) (time.Time, error) {
	if validity <= 0 {
		return time.Time{}, fmt.Errorf("%w: validity must be positive", domain.ErrDelegationScope)
	}
	expiresAt := s.now().Add(validity)
	if expiresAt.After(parentExpiry) {
		return time.Time{}, fmt.Errorf("%w: requested expiry exceeds parent validity", domain.ErrDelegationScope)
	}
	return expiresAt, nil
}

func (s *DelegationService) maxDepth() int {
	if s.MaxDepth > 0 {
		return s.MaxDepth
	}
	return DefaultMaxDelegationDepth
}

func (s *DelegationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *DelegationService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func validateDelegateKey(key []byte) error {
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: delegate public key must be %d bytes", domain.ErrDelegationScope, ed25519.PublicKeySize)
	}
	return nil
}

func validateScope(requested, parent []string) error {
	if len(requested) == 0 {
		return fmt.Errorf("%w: delegated action set is empty", domain.ErrDelegationScope)
	}
	allowed := make(map[string]struct{}, len(parent))
	for _, action := range parent {
		allowed[action] = struct{}{}
	}
	for _, action := range requested {
		if _, ok := allowed[action]; !ok {
			return fmt.Errorf("%w: action %q is not in the parent scope", domain.ErrDelegationScope, action)
		}
	}
	return nil
}
