package usecase

import (
	"context"
	"errors"

	"intentd/internal/domain"
)

type AuthorizeRequest struct {
	Token     domain.IntentToken
	Action    string
	StepIndex int
	Step      domain.Step
}

type AuthorizeDelegatedRequest struct {
	Token     domain.DelegationToken
	Action    string
	StepIndex int
	Step      domain.Step
}

// AuthorizeInvocation is the per-invocation decision procedure. Each
// gate is hard: the first failure short-circuits to a deny, and every
// deny carries a reason from the closed set a gateway can branch on.
// Gate failures are values, never errors; the procedure is re-run for
// every invocation attempt.
type AuthorizeInvocation struct {
	Verifier    TokenVerifier
	Delegations *DelegationService
	Crypto      CryptoService
	Merkle      MerkleVerifier
	Audit       *AuditEmitter
}

func (a *AuthorizeInvocation) Authorize(ctx context.Context, req AuthorizeRequest) domain.Decision {
	decision := a.decide(ctx, req)
	a.Audit.InvocationDecided(ctx, req.Token.TokenID, req.Token.PlanHash, req.Action, decision)
	return decision
}

func (a *AuthorizeInvocation) decide(ctx context.Context, req AuthorizeRequest) domain.Decision {
	if err := a.Verifier.Verify(ctx, req.Token); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return domain.Deny(domain.DenyTokenExpired)
		}
		return domain.Deny(domain.DenyInvalidToken)
	}
	if !req.Token.Policy.Allows(req.Action) {
		return domain.Deny(domain.DenyActionNotAuthorized)
	}
	return a.verifyLeaf(req.Action, req.StepIndex, req.Step, req.Token.StepProofs, req.Token.MerkleRoot)
}

// AuthorizeDelegated applies the same gate sequence to a delegation
// token: the delegate may invoke only the narrowed action set, but the
// plan commitment it is checked against is the parent's, unchanged.
func (a *AuthorizeInvocation) AuthorizeDelegated(ctx context.Context, req AuthorizeDelegatedRequest) domain.Decision {
	decision := a.decideDelegated(ctx, req)
	a.Audit.InvocationDecided(ctx, req.Token.DelegationID, req.Token.PlanHash, req.Action, decision)
	return decision
}

func (a *AuthorizeInvocation) decideDelegated(ctx context.Context, req AuthorizeDelegatedRequest) domain.Decision {
	if err := a.Delegations.VerifyDelegation(ctx, req.Token); err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return domain.Deny(domain.DenyTokenExpired)
		}
		return domain.Deny(domain.DenyInvalidToken)
	}
	if !req.Token.Allows(req.Action) {
		return domain.Deny(domain.DenyActionNotAuthorized)
	}
	return a.verifyLeaf(req.Action, req.StepIndex, req.Step, req.Token.StepProofs, req.Token.MerkleRoot)
}

// verifyLeaf covers the structural gate and the proof gate. The step
// index must name a leaf the token carries a proof for; an index into
// anything else would let a caller verify an aggregate node, which
// multiple differing leaf sets can satisfy.
func (a *AuthorizeInvocation) verifyLeaf(action string, stepIndex int, step domain.Step, proofs []domain.MerkleProof, root []byte) domain.Decision {
	if stepIndex < 0 || stepIndex >= len(proofs) {
		return domain.Deny(domain.DenyNotALeaf)
	}
	if step.Action != action {
		return domain.Deny(domain.DenyProofMismatch)
	}
	leafHash, err := a.Crypto.LeafHash(step)
	if err != nil {
		return domain.Deny(domain.DenyProofMismatch)
	}
	if !a.Merkle.Verify(leafHash, proofs[stepIndex], root) {
		return domain.Deny(domain.DenyProofMismatch)
	}
	return domain.Allow()
}
