package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"intentd/internal/domain"
)

// StepLeafPath is the structural identifier of the leaf holding step i.
// The path names only the step index; the action name and parameters are
// the payload inside the step's canonical bytes.
func StepLeafPath(index int) string {
	return fmt.Sprintf("/steps/[%d]", index)
}

// CanonicalizeStep produces the canonical bytes of exactly one step.
// The mcp field is omitted when empty so that a step written with and
// without an explicit empty mcp hashes identically.
func CanonicalizeStep(step domain.Step) ([]byte, error) {
	return CanonicalizeValue(stepValue(step))
}

// CanonicalizePlan converts a plan into its ordered leaf sequence, one
// leaf per step. Pure: equal plans yield byte-identical leaves whatever
// the original key insertion order was.
func CanonicalizePlan(plan domain.Plan) ([]domain.Leaf, error) {
	leaves := make([]domain.Leaf, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		canonical, err := CanonicalizeStep(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		sum := sha256.Sum256(canonical)
		leaves = append(leaves, domain.Leaf{
			Path:           StepLeafPath(i),
			CanonicalBytes: canonical,
			Hash:           sum[:],
		})
	}
	return leaves, nil
}

// PlanHash is the digest of the whole canonical plan, goal included.
func PlanHash(plan domain.Plan) (string, error) {
	canonical, err := CanonicalizeValue(planValue(plan))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// LeafHash recomputes the digest a verifier expects for a claimed step
// value. It is the same computation issuance performs.
func LeafHash(step domain.Step) ([]byte, error) {
	canonical, err := CanonicalizeStep(step)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	return sum[:], nil
}

func stepValue(step domain.Step) map[string]any {
	params := step.Params
	if params == nil {
		params = map[string]any{}
	}
	value := map[string]any{
		"action": step.Action,
		"params": params,
	}
	if step.MCP != "" {
		value["mcp"] = step.MCP
	}
	return value
}

func planValue(plan domain.Plan) map[string]any {
	steps := make([]any, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		steps = append(steps, stepValue(step))
	}
	return map[string]any{
		"goal":  plan.Goal,
		"steps": steps,
	}
}
