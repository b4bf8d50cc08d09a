package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"intentd/internal/domain"
	cryptoinfra "intentd/internal/infra/crypto"
	"intentd/internal/infra/keys/soft"
	"intentd/internal/infra/merkle"
)

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.IntentToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]domain.IntentToken)}
}

func (r *fakeTokenRepo) Create(ctx context.Context, token domain.IntentToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.TokenID] = token
	return nil
}

func (r *fakeTokenRepo) GetByID(ctx context.Context, tokenID string) (*domain.IntentToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &token, nil
}

type fakeDelegationRepo struct {
	mu          sync.Mutex
	delegations map[string]domain.DelegationToken
}

func newFakeDelegationRepo() *fakeDelegationRepo {
	return &fakeDelegationRepo{delegations: make(map[string]domain.DelegationToken)}
}

func (r *fakeDelegationRepo) Create(ctx context.Context, token domain.DelegationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delegations[token.DelegationID] = token
	return nil
}

func (r *fakeDelegationRepo) GetByID(ctx context.Context, delegationID string) (*domain.DelegationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.delegations[delegationID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &token, nil
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *fakeAuditRepo) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return event, nil
}

func (r *fakeAuditRepo) ListByToken(ctx context.Context, tokenID string) ([]domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditEvent
	for _, event := range r.events {
		if event.TokenID == tokenID {
			out = append(out, event)
		}
	}
	return out, nil
}

type fakePolicyEngine struct {
	result domain.PolicyResult
	err    error
}

func (e *fakePolicyEngine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error) {
	if e.err != nil {
		return domain.PolicyEvaluation{}, e.err
	}
	return domain.PolicyEvaluation{BundleHash: "test", Result: e.result}, nil
}

type testEnv struct {
	authority   *TokenAuthority
	delegations *DelegationService
	authorize   *AuthorizeInvocation
	tokens      *fakeTokenRepo
	audit       *fakeAuditRepo
	now         time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	manager, err := soft.NewEphemeralManager("test-kid")
	if err != nil {
		t.Fatalf("ephemeral key manager: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := &testEnv{
		tokens: newFakeTokenRepo(),
		audit:  &fakeAuditRepo{},
		now:    now,
	}
	nowFn := func() time.Time { return env.now }
	emitter := &AuditEmitter{Repo: env.audit, Now: nowFn}
	cryptoSvc := cryptoinfra.NewService()
	merkleSvc := &merkle.Service{}
	env.authority = &TokenAuthority{
		Crypto: cryptoSvc,
		Merkle: merkleSvc,
		Keys:   manager,
		Tokens: env.tokens,
		Audit:  emitter,
		Now:    nowFn,
	}
	env.delegations = &DelegationService{
		Crypto:      cryptoSvc,
		Keys:        manager,
		Verifier:    env.authority,
		Delegations: newFakeDelegationRepo(),
		Audit:       emitter,
		Now:         nowFn,
	}
	env.authorize = &AuthorizeInvocation{
		Verifier:    env.authority,
		Delegations: env.delegations,
		Crypto:      cryptoSvc,
		Merkle:      merkleSvc,
		Audit:       emitter,
	}
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func travelPlan() domain.Plan {
	return domain.Plan{
		Goal: "book a trip",
		Steps: []domain.Step{
			{Action: "search_flights", MCP: "travel-mcp", Params: map[string]any{"dest": "CDG", "max_price": 900}},
			{Action: "book_flight", MCP: "travel-mcp", Params: map[string]any{"flight_id": "AF123"}},
			{Action: "notify_user", Params: map[string]any{"channel": "email"}},
		},
	}
}

func travelSubject() domain.Subject {
	return domain.Subject{UserID: "user-1", AgentID: "agent-1", ContextID: "ctx-1"}
}

func issueTravelToken(t *testing.T, env *testEnv) *domain.IntentToken {
	t.Helper()
	token, err := env.authority.Issue(context.Background(), IssueTokenRequest{
		Plan:     travelPlan(),
		Subject:  travelSubject(),
		Actions:  []string{"search_flights", "book_flight", "notify_user"},
		Validity: time.Hour,
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

type countingIssuer struct {
	mu    sync.Mutex
	calls int
	inner TokenIssuer
	err   error
}

func (i *countingIssuer) Issue(ctx context.Context, req IssueTokenRequest) (*domain.IntentToken, error) {
	i.mu.Lock()
	i.calls++
	i.mu.Unlock()
	if i.err != nil {
		return nil, i.err
	}
	return i.inner.Issue(ctx, req)
}

func (i *countingIssuer) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

var errIssuanceBoom = fmt.Errorf("issuance backend unavailable")
