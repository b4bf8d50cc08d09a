package usecase

import (
	"context"
	"time"

	"intentd/internal/domain"
)

type CryptoService interface {
	CanonicalizePlan(plan domain.Plan) ([]domain.Leaf, error)
	PlanHash(plan domain.Plan) (string, error)
	LeafHash(step domain.Step) ([]byte, error)
	TokenSigningBytes(token domain.IntentToken) ([]byte, error)
	DelegationSigningBytes(token domain.DelegationToken) ([]byte, error)
	VerifySignature(payload []byte, signatureB64 string, pubKey []byte) error
}

type MerkleVerifier interface {
	Verify(leafHash []byte, proof domain.MerkleProof, root []byte) bool
}

type KeyManager interface {
	Sign(ctx context.Context, payload []byte) (string, error)
	PublicKey() domain.SigningKey
}

type TokenRepository interface {
	Create(ctx context.Context, token domain.IntentToken) error
	GetByID(ctx context.Context, tokenID string) (*domain.IntentToken, error)
}

type DelegationRepository interface {
	Create(ctx context.Context, token domain.DelegationToken) error
	GetByID(ctx context.Context, delegationID string) (*domain.DelegationToken, error)
}

type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
	ListByToken(ctx context.Context, tokenID string) ([]domain.AuditEvent, error)
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

type TokenIssuer interface {
	Issue(ctx context.Context, req IssueTokenRequest) (*domain.IntentToken, error)
}

type TokenVerifier interface {
	Verify(ctx context.Context, token domain.IntentToken) error
}

type TokenCacheStore interface {
	Get(ctx context.Context, key string) (*domain.IntentToken, bool, error)
	Put(ctx context.Context, key string, token domain.IntentToken, ttl time.Duration) error
}
