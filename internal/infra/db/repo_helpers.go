package db

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"intentd/internal/domain"
)

var errDBUnavailable = errors.New("db unavailable")

type proofStepRecord struct {
	SiblingHash string `json:"sibling_hash"`
	Position    string `json:"position"`
}

func proofsToJSON(proofs []domain.MerkleProof) ([]byte, error) {
	out := make([][]proofStepRecord, len(proofs))
	for i, proof := range proofs {
		steps := make([]proofStepRecord, len(proof))
		for j, step := range proof {
			steps[j] = proofStepRecord{
				SiblingHash: hex.EncodeToString(step.SiblingHash),
				Position:    string(step.Position),
			}
		}
		out[i] = steps
	}
	return json.Marshal(out)
}

func proofsFromJSON(raw []byte) ([]domain.MerkleProof, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records [][]proofStepRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	out := make([]domain.MerkleProof, len(records))
	for i, steps := range records {
		proof := make(domain.MerkleProof, len(steps))
		for j, step := range steps {
			sibling, err := hex.DecodeString(step.SiblingHash)
			if err != nil {
				return nil, fmt.Errorf("proof %d step %d: %w", i, j, err)
			}
			proof[j] = domain.ProofStep{
				SiblingHash: sibling,
				Position:    domain.ProofPosition(step.Position),
			}
		}
		out[i] = proof
	}
	return out, nil
}

func actionsToJSON(actions []string) ([]byte, error) {
	if actions == nil {
		actions = []string{}
	}
	return json.Marshal(actions)
}

func actionsFromJSON(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func copyBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
