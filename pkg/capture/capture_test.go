package capture

import (
	"bytes"
	"context"
	"testing"
	"time"

	"intentd/internal/domain"
	"intentd/internal/infra/crypto"
	"intentd/internal/infra/keys/soft"
	"intentd/internal/infra/merkle"
	"intentd/internal/usecase"
)

func tripPlan() domain.Plan {
	return domain.Plan{
		Goal: "book a trip",
		Steps: []domain.Step{
			{Action: "search_flights", Params: map[string]any{"dest": "CDG"}},
			{Action: "book_flight", Params: map[string]any{"flight_id": "AF123"}},
			{Action: "notify_user", Params: map[string]any{"channel": "email"}},
		},
	}
}

func TestCapturePlanMatchesAuthorityCommitment(t *testing.T) {
	manager, err := soft.NewEphemeralManager("test-kid")
	if err != nil {
		t.Fatalf("key manager: %v", err)
	}
	authority := &usecase.TokenAuthority{
		Crypto: crypto.NewService(),
		Merkle: &merkle.Service{},
		Keys:   manager,
	}
	token, err := authority.Issue(context.Background(), usecase.IssueTokenRequest{
		Plan:     tripPlan(),
		Subject:  domain.Subject{UserID: "u", AgentID: "a", ContextID: "c"},
		Actions:  []string{"book_flight"},
		Validity: time.Hour,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cap, err := CapturePlan(tripPlan())
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if cap.PlanHash != token.PlanHash {
		t.Fatalf("client plan hash %s differs from authority %s", cap.PlanHash, token.PlanHash)
	}
	if !bytes.Equal(cap.MerkleRoot, token.MerkleRoot) {
		t.Fatal("client merkle root differs from authority root")
	}
	if len(cap.StepProofs) != len(token.StepProofs) {
		t.Fatalf("proof count %d differs from authority %d", len(cap.StepProofs), len(token.StepProofs))
	}
}

func TestOfflineAuthorizeMirrorsServerDecision(t *testing.T) {
	manager, err := soft.NewEphemeralManager("test-kid")
	if err != nil {
		t.Fatalf("key manager: %v", err)
	}
	authority := &usecase.TokenAuthority{
		Crypto: crypto.NewService(),
		Merkle: &merkle.Service{},
		Keys:   manager,
	}
	token, err := authority.Issue(context.Background(), usecase.IssueTokenRequest{
		Plan:     tripPlan(),
		Subject:  domain.Subject{UserID: "u", AgentID: "a", ContextID: "c"},
		Actions:  []string{"search_flights", "book_flight", "notify_user"},
		Validity: time.Hour,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	opts := VerifyOptions{AuthorityPublicKey: manager.PublicKey().PublicKey}

	decision := Authorize(*token, "book_flight", 1, tripPlan().Steps[1], opts)
	if !decision.Allowed {
		t.Fatalf("expected allow, got deny(%s)", decision.Reason)
	}

	tampered := tripPlan().Steps[1]
	tampered.Params = map[string]any{"flight_id": "AF999"}
	decision = Authorize(*token, "book_flight", 1, tampered, opts)
	if decision.Allowed || decision.Reason != domain.DenyProofMismatch {
		t.Fatalf("expected DENY(PROOF_MISMATCH), got %+v", decision)
	}

	forged := *token
	forged.Policy.AllowedActions = append(forged.Policy.AllowedActions, "transfer_funds")
	decision = Authorize(forged, "book_flight", 1, tripPlan().Steps[1], opts)
	if decision.Allowed || decision.Reason != domain.DenyInvalidToken {
		t.Fatalf("expected DENY(INVALID_TOKEN), got %+v", decision)
	}
}
