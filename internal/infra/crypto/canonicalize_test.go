package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"

	"intentd/internal/domain"
)

func samplePlan() domain.Plan {
	return domain.Plan{
		Goal: "book a trip",
		Steps: []domain.Step{
			{Action: "search_flights", MCP: "travel-mcp", Params: map[string]any{"dest": "CDG", "max_price": 900}},
			{Action: "book_flight", MCP: "travel-mcp", Params: map[string]any{"flight_id": "AF123"}},
			{Action: "notify_user", Params: map[string]any{"channel": "email"}},
		},
	}
}

func TestCanonicalizePlanOneLeafPerStep(t *testing.T) {
	leaves, err := CanonicalizePlan(samplePlan())
	if err != nil {
		t.Fatalf("canonicalize plan: %v", err)
	}
	if len(leaves) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(leaves))
	}
	for i, leaf := range leaves {
		if leaf.Path != StepLeafPath(i) {
			t.Fatalf("leaf %d path %q, want %q", i, leaf.Path, StepLeafPath(i))
		}
		sum := sha256.Sum256(leaf.CanonicalBytes)
		if !bytes.Equal(leaf.Hash, sum[:]) {
			t.Fatalf("leaf %d hash is not the digest of its canonical bytes", i)
		}
	}
}

func TestCanonicalizePlanKeyOrderIndependent(t *testing.T) {
	a := domain.Plan{Goal: "g", Steps: []domain.Step{
		{Action: "pay", Params: map[string]any{"amount": 10, "currency": "EUR"}},
	}}
	b := domain.Plan{Goal: "g", Steps: []domain.Step{
		{Action: "pay", Params: map[string]any{"currency": "EUR", "amount": 10}},
	}}

	la, err := CanonicalizePlan(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	lb, err := CanonicalizePlan(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if !bytes.Equal(la[0].CanonicalBytes, lb[0].CanonicalBytes) {
		t.Fatalf("equal steps serialized differently: %s vs %s", la[0].CanonicalBytes, lb[0].CanonicalBytes)
	}
	if !bytes.Equal(la[0].Hash, lb[0].Hash) {
		t.Fatal("equal steps hashed differently")
	}
}

func TestCanonicalizeStepOmitsEmptyMCP(t *testing.T) {
	with, err := CanonicalizeStep(domain.Step{Action: "a", Params: map[string]any{}})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"action":"a","params":{}}`
	if string(with) != want {
		t.Fatalf("got %s, want %s", with, want)
	}
}

func TestCanonicalizeStepNilParamsEqualsEmptyParams(t *testing.T) {
	a, err := CanonicalizeStep(domain.Step{Action: "a"})
	if err != nil {
		t.Fatalf("canonicalize nil params: %v", err)
	}
	b, err := CanonicalizeStep(domain.Step{Action: "a", Params: map[string]any{}})
	if err != nil {
		t.Fatalf("canonicalize empty params: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("nil and empty params differ: %s vs %s", a, b)
	}
}

func TestCanonicalizePlanRejectsBinaryParam(t *testing.T) {
	plan := domain.Plan{Goal: "g", Steps: []domain.Step{
		{Action: "upload", Params: map[string]any{"payload": []byte{0xde, 0xad}}},
	}}
	if _, err := CanonicalizePlan(plan); !errors.Is(err, domain.ErrCanonicalize) {
		t.Fatalf("expected ErrCanonicalize, got %v", err)
	}
}

func TestPlanHashStable(t *testing.T) {
	h1, err := PlanHash(samplePlan())
	if err != nil {
		t.Fatalf("plan hash: %v", err)
	}
	h2, err := PlanHash(samplePlan())
	if err != nil {
		t.Fatalf("plan hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("plan hash not stable: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("plan hash must be 32 bytes hex, got %d chars", len(h1))
	}
}

func TestPlanHashOrderSignificant(t *testing.T) {
	plan := samplePlan()
	reordered := domain.Plan{Goal: plan.Goal, Steps: []domain.Step{plan.Steps[1], plan.Steps[0], plan.Steps[2]}}

	h1, err := PlanHash(plan)
	if err != nil {
		t.Fatalf("plan hash: %v", err)
	}
	h2, err := PlanHash(reordered)
	if err != nil {
		t.Fatalf("plan hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("reordering steps must change the plan hash")
	}
}
