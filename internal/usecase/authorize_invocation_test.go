package usecase

import (
	"context"
	"testing"
	"time"

	"intentd/internal/domain"
)

func TestAuthorizeAllowsCommittedStep(t *testing.T) {
	env := newTestEnv(t)
	token := issueTravelToken(t, env)
	plan := travelPlan()

	decision := env.authorize.Authorize(context.Background(), AuthorizeRequest{
		Token:     *token,
		Action:    "book_flight",
		StepIndex: 1,
		Step:      plan.Steps[1],
	})
	if !decision.Allowed {
		t.Fatalf("expected allow, got deny(%s)", decision.Reason)
	}
}

func TestAuthorizeDeniesTamperedParams(t *testing.T) {
	env := newTestEnv(t)
	token := issueTravelToken(t, env)
	plan := travelPlan()

	step := plan.Steps[1]
	step.Params = map[string]any{"flight_id": "AF999"}
	decision := env.authorize.Authorize(context.Background(), AuthorizeRequest{
		Token:     *token,
		Action:    "book_flight",
		StepIndex: 1,
		Step:      step,
	})
	if decision.Allowed || decision.Reason != domain.DenyProofMismatch {
		t.Fatalf("expected DENY(PROOF_MISMATCH), got %+v", decision)
	}
}

func TestAuthorizeDeniesActionOutsidePolicy(t *testing.T) {
	env := newTestEnv(t)
	narrowed, err := env.authority.Issue(context.Background(), IssueTokenRequest{
		Plan:     travelPlan(),
		Subject:  travelSubject(),
		Actions:  []string{"search_flights"},
		Validity: time.Hour,
	})
	if err != nil {
		t.Fatalf("issue narrowed token: %v", err)
	}

	decision := env.authorize.Authorize(context.Background(), AuthorizeRequest{
		Token:     *narrowed,
		Action:    "book_flight",
		StepIndex: 1,
		Step:      travelPlan().Steps[1],
	})
	if decision.Allowed || decision.Reason != domain.DenyActionNotAuthorized {
		t.Fatalf("expected DENY(ACTION_NOT_AUTHORIZED), got %+v", decision)
	}
}

func TestAuthorizeDeniesNonLeafIndex(t *testing.T) {
	env := newTestEnv(t)
	token := issueTravelToken(t, env)

	for _, index := range []int{-1, len(token.StepProofs)} {
		decision := env.authorize.Authorize(context.Background(), AuthorizeRequest{
			Token:     *token,
			Action:    "book_flight",
			StepIndex: index,
			Step:      travelPlan().Steps[1],
		})
		if decision.Allowed || decision.Reason != domain.DenyNotALeaf {
			t.Fatalf("index %d: expected DENY(NOT_A_LEAF), got %+v", index, decision)
		}
	}
}

func TestAuthorizeDeniesExpiredTokenDespiteValidProof(t *testing.T) {
	env := newTestEnv(t)
	token := issueTravelToken(t, env)
	env.advance(2 * time.Hour)

	decision := env.authorize.Authorize(context.Background(), AuthorizeRequest{
		Token:     *token,
		Action:    "book_flight",
		StepIndex: 1,
		Step:      travelPlan().Steps[1],
	})
	if decision.Allowed || decision.Reason != domain.DenyTokenExpired {
		t.Fatalf("expected DENY(TOKEN_EXPIRED), got %+v", decision)
	}
}

func TestAuthorizeDeniesForgedToken(t *testing.T) {
	env := newTestEnv(t)
	token := issueTravelToken(t, env)
	token.PlanHash = "0000"

	decision := env.authorize.Authorize(context.Background(), AuthorizeRequest{
		Token:     *token,
		Action:    "book_flight",
		StepIndex: 1,
		Step:      travelPlan().Steps[1],
	})
	if decision.Allowed || decision.Reason != domain.DenyInvalidToken {
		t.Fatalf("expected DENY(INVALID_TOKEN), got %+v", decision)
	}
}

func TestAuthorizeDeniesStepActionMismatch(t *testing.T) {
	env := newTestEnv(t)
	token := issueTravelToken(t, env)
	plan := travelPlan()

	// valid proof for step 1, but the invoked action names step 2
	decision := env.authorize.Authorize(context.Background(), AuthorizeRequest{
		Token:     *token,
		Action:    "notify_user",
		StepIndex: 1,
		Step:      plan.Steps[1],
	})
	if decision.Allowed || decision.Reason != domain.DenyProofMismatch {
		t.Fatalf("expected DENY(PROOF_MISMATCH), got %+v", decision)
	}
}

func TestAuthorizeDelegatedHonorsNarrowedScope(t *testing.T) {
	env := newTestEnv(t)
	parent := issueTravelToken(t, env)
	plan := travelPlan()

	delegated, err := env.delegations.Delegate(context.Background(), DelegateRequest{
		Parent:            *parent,
		DelegatePublicKey: delegateKey(t),
		Actions:           []string{"book_flight"},
		Validity:          10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("delegate: %v", err)
	}

	allowed := env.authorize.AuthorizeDelegated(context.Background(), AuthorizeDelegatedRequest{
		Token:     *delegated,
		Action:    "book_flight",
		StepIndex: 1,
		Step:      plan.Steps[1],
	})
	if !allowed.Allowed {
		t.Fatalf("expected allow for delegated action, got deny(%s)", allowed.Reason)
	}

	denied := env.authorize.AuthorizeDelegated(context.Background(), AuthorizeDelegatedRequest{
		Token:     *delegated,
		Action:    "search_flights",
		StepIndex: 0,
		Step:      plan.Steps[0],
	})
	if denied.Allowed || denied.Reason != domain.DenyActionNotAuthorized {
		t.Fatalf("expected DENY(ACTION_NOT_AUTHORIZED), got %+v", denied)
	}
}

func TestAuthorizeEmitsDecisionAuditEvents(t *testing.T) {
	env := newTestEnv(t)
	token := issueTravelToken(t, env)

	env.authorize.Authorize(context.Background(), AuthorizeRequest{
		Token:     *token,
		Action:    "book_flight",
		StepIndex: 1,
		Step:      travelPlan().Steps[1],
	})

	events, err := env.audit.ListByToken(context.Background(), token.TokenID)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	var decided int
	for _, event := range events {
		if event.EventType == domain.AuditInvocationDecided {
			decided++
			if event.Result != domain.AuditResultOK {
				t.Fatalf("expected ok result, got %s", event.Result)
			}
		}
	}
	if decided != 1 {
		t.Fatalf("expected one invocation.decided event, got %d", decided)
	}
}
