package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"intentd/internal/domain"
)

func TestEngineDeterministic(t *testing.T) {
	engine := newEngine(t)
	input := basePolicyInput()

	first, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate first: %v", err)
	}
	second, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate second: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic policy evaluation")
	}
	if !first.Result.Allow {
		t.Fatalf("expected allow for baseline input, got %+v", first.Result)
	}
	if len(first.Result.Deny) != 0 {
		t.Fatalf("expected empty deny list")
	}
	if first.BundleHash == "" {
		t.Fatalf("expected bundle hash to be set")
	}
}

func TestEngineNarrowsToSortedActions(t *testing.T) {
	engine := newEngine(t)
	input := basePolicyInput()
	input.RequestedActions = []string{"notify_user", "book_flight"}

	out, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Result.Allow {
		t.Fatalf("expected allow, got %+v", out.Result)
	}
	want := []string{"book_flight", "notify_user"}
	if !reflect.DeepEqual(out.Result.AllowedActions, want) {
		t.Fatalf("allowed actions %v, want %v", out.Result.AllowedActions, want)
	}
}

func TestEnginePolicyDenies(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name   string
		mutate func(input *domain.PolicyInput)
		want   []string
	}{
		{
			name: "action outside plan",
			mutate: func(input *domain.PolicyInput) {
				input.RequestedActions = append(input.RequestedActions, "transfer_funds")
			},
			want: []string{"ACTION_NOT_IN_PLAN"},
		},
		{
			name: "empty plan",
			mutate: func(input *domain.PolicyInput) {
				input.Plan.Steps = nil
			},
			want: []string{"ACTION_NOT_IN_PLAN", "EMPTY_PLAN"},
		},
		{
			name: "no actions requested",
			mutate: func(input *domain.PolicyInput) {
				input.RequestedActions = nil
			},
			want: []string{"NO_ACTIONS"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			input := basePolicyInput()
			tt.mutate(&input)
			out, err := engine.Evaluate(context.Background(), input)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out.Result.Allow {
				t.Fatalf("expected deny")
			}
			got := denyCodes(out.Result.Deny)
			for _, code := range tt.want {
				if !got[code] {
					t.Fatalf("expected deny code %s, got %+v", code, out.Result.Deny)
				}
			}
		})
	}
}

func TestEngineRejectsTimeBuiltin(t *testing.T) {
	rejectBuiltin(t, "time.now_ns()")
}

func TestEngineRejectsHttpSend(t *testing.T) {
	rejectBuiltin(t, "http.send({\"method\": \"get\", \"url\": \"https://example.com\"})")
}

func TestEngineRejectsRand(t *testing.T) {
	rejectBuiltin(t, "rand.intn(10)")
}

func rejectBuiltin(t *testing.T, expr string) {
	t.Helper()
	dir := t.TempDir()
	regoContent := `package intent.policy
result := {"allow": true, "allowed_actions": [], "deny": []} {
  ` + expr + `
}`
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(regoContent), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}

	_, err := NewEngineFromBundlePath(context.Background(), dir, "test")
	if err == nil {
		t.Fatalf("expected builtin to be rejected")
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join("..", "..", "..", "policy", "bundles", "issuance_v1")
	engine, err := NewEngineFromBundlePath(context.Background(), path, "issuance_v1")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func basePolicyInput() domain.PolicyInput {
	return domain.PolicyInput{
		Subject: domain.Subject{
			UserID:    "user-1",
			AgentID:   "agent-1",
			ContextID: "ctx-1",
		},
		Plan: domain.Plan{
			Goal: "book a trip",
			Steps: []domain.Step{
				{Action: "search_flights", Params: map[string]any{"dest": "CDG"}},
				{Action: "book_flight", Params: map[string]any{"flight_id": "AF123"}},
				{Action: "notify_user", Params: map[string]any{"channel": "email"}},
			},
		},
		RequestedActions: []string{"search_flights", "book_flight"},
	}
}

func denyCodes(deny []domain.PolicyDeny) map[string]bool {
	out := make(map[string]bool, len(deny))
	for _, item := range deny {
		out[item.Code] = true
	}
	return out
}
