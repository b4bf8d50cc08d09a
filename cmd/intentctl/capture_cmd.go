package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"intentd/internal/domain"
	"intentd/pkg/capture"
)

type captureOutput struct {
	PlanHash   string                    `json:"plan_hash"`
	MerkleRoot string                    `json:"merkle_root"`
	Leaves     []captureLeaf             `json:"leaves"`
	StepProofs [][]capture.ProofStepJSON `json:"step_proofs"`
}

type captureLeaf struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

func runCapture(args []string) int {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var planPath string
	var outPath string
	fs.StringVar(&planPath, "plan", "", "plan JSON path")
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if planPath == "" {
		fmt.Fprintln(os.Stderr, "capture requires --plan")
		return 1
	}

	plan, err := readPlan(planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read plan: %v\n", err)
		return 1
	}

	cap, err := capture.CapturePlan(plan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture plan: %v\n", err)
		return 1
	}

	out := captureOutput{
		PlanHash:   cap.PlanHash,
		MerkleRoot: hex.EncodeToString(cap.MerkleRoot),
		Leaves:     make([]captureLeaf, len(cap.Leaves)),
		StepProofs: proofsJSON(cap.StepProofs),
	}
	for i, leaf := range cap.Leaves {
		out.Leaves[i] = captureLeaf{Path: leaf.Path, Hash: hex.EncodeToString(leaf.Hash)}
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func readPlan(path string) (domain.Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Plan{}, err
	}
	var plan domain.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

func proofsJSON(proofs []domain.MerkleProof) [][]capture.ProofStepJSON {
	out := make([][]capture.ProofStepJSON, len(proofs))
	for i, proof := range proofs {
		steps := make([]capture.ProofStepJSON, len(proof))
		for j, step := range proof {
			steps[j] = capture.ProofStepJSON{
				SiblingHash: hex.EncodeToString(step.SiblingHash),
				Position:    string(step.Position),
			}
		}
		out[i] = steps
	}
	return out
}
