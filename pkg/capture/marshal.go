package capture

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intentd/internal/domain"
)

// TokenJSON is the interchange form of an intent token: hashes in hex,
// signature in base64, timestamps in RFC3339. It matches what the
// authority's HTTP API emits, so tokens can move between online and
// offline verification unchanged.
type TokenJSON struct {
	TokenID        string            `json:"token_id"`
	PlanHash       string            `json:"plan_hash"`
	MerkleRoot     string            `json:"merkle_root"`
	Subject        SubjectJSON       `json:"subject"`
	AllowedActions []string          `json:"allowed_actions"`
	IssuedAt       string            `json:"issued_at"`
	ExpiresAt      string            `json:"expires_at"`
	Signature      string            `json:"signature"`
	StepProofs     [][]ProofStepJSON `json:"step_proofs"`
}

type SubjectJSON struct {
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	ContextID string `json:"context_id"`
}

type ProofStepJSON struct {
	SiblingHash string `json:"sibling_hash"`
	Position    string `json:"position"`
}

func EncodeToken(token domain.IntentToken) ([]byte, error) {
	out := TokenJSON{
		TokenID:    token.TokenID,
		PlanHash:   token.PlanHash,
		MerkleRoot: hex.EncodeToString(token.MerkleRoot),
		Subject: SubjectJSON{
			UserID:    token.Subject.UserID,
			AgentID:   token.Subject.AgentID,
			ContextID: token.Subject.ContextID,
		},
		AllowedActions: token.Policy.AllowedActions,
		IssuedAt:       token.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:      token.ExpiresAt.UTC().Format(time.RFC3339),
		Signature:      token.Signature,
		StepProofs:     encodeProofs(token.StepProofs),
	}
	return json.MarshalIndent(out, "", "  ")
}

func DecodeToken(raw []byte) (domain.IntentToken, error) {
	var payload TokenJSON
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.IntentToken{}, err
	}
	root, err := hex.DecodeString(payload.MerkleRoot)
	if err != nil {
		return domain.IntentToken{}, fmt.Errorf("merkle_root: %w", err)
	}
	if payload.IssuedAt == "" || payload.ExpiresAt == "" {
		return domain.IntentToken{}, errors.New("issued_at and expires_at are required")
	}
	issuedAt, err := time.Parse(time.RFC3339, payload.IssuedAt)
	if err != nil {
		return domain.IntentToken{}, fmt.Errorf("issued_at: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, payload.ExpiresAt)
	if err != nil {
		return domain.IntentToken{}, fmt.Errorf("expires_at: %w", err)
	}
	proofs, err := decodeProofs(payload.StepProofs)
	if err != nil {
		return domain.IntentToken{}, err
	}
	return domain.IntentToken{
		TokenID:    payload.TokenID,
		PlanHash:   payload.PlanHash,
		MerkleRoot: root,
		Subject: domain.Subject{
			UserID:    payload.Subject.UserID,
			AgentID:   payload.Subject.AgentID,
			ContextID: payload.Subject.ContextID,
		},
		Policy:     domain.Policy{AllowedActions: payload.AllowedActions},
		IssuedAt:   issuedAt.UTC(),
		ExpiresAt:  expiresAt.UTC(),
		Signature:  payload.Signature,
		StepProofs: proofs,
	}, nil
}

func encodeProofs(proofs []domain.MerkleProof) [][]ProofStepJSON {
	out := make([][]ProofStepJSON, len(proofs))
	for i, proof := range proofs {
		steps := make([]ProofStepJSON, len(proof))
		for j, step := range proof {
			steps[j] = ProofStepJSON{
				SiblingHash: hex.EncodeToString(step.SiblingHash),
				Position:    string(step.Position),
			}
		}
		out[i] = steps
	}
	return out
}

func decodeProofs(payload [][]ProofStepJSON) ([]domain.MerkleProof, error) {
	out := make([]domain.MerkleProof, len(payload))
	for i, steps := range payload {
		proof := make(domain.MerkleProof, len(steps))
		for j, step := range steps {
			sibling, err := hex.DecodeString(step.SiblingHash)
			if err != nil {
				return nil, fmt.Errorf("step_proofs[%d][%d]: %w", i, j, err)
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
