package http

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"intentd/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type subjectPayload struct {
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	ContextID string `json:"context_id"`
}

type stepPayload struct {
	Action string         `json:"action"`
	MCP    string         `json:"mcp,omitempty"`
	Params map[string]any `json:"params"`
}

type planPayload struct {
	Goal  string        `json:"goal"`
	Steps []stepPayload `json:"steps"`
}

type proofStepPayload struct {
	SiblingHash string `json:"sibling_hash"`
	Position    string `json:"position"`
}

type tokenPayload struct {
	TokenID        string               `json:"token_id"`
	PlanHash       string               `json:"plan_hash"`
	MerkleRoot     string               `json:"merkle_root"`
	Subject        subjectPayload       `json:"subject"`
	AllowedActions []string             `json:"allowed_actions"`
	IssuedAt       string               `json:"issued_at"`
	ExpiresAt      string               `json:"expires_at"`
	Signature      string               `json:"signature"`
	StepProofs     [][]proofStepPayload `json:"step_proofs"`
}

type delegationPayload struct {
	DelegationID      string               `json:"delegation_id"`
	ParentTokenID     string               `json:"parent_token_id"`
	DelegatePublicKey string               `json:"delegate_public_key"`
	AllowedActions    []string             `json:"allowed_actions"`
	PlanHash          string               `json:"plan_hash"`
	MerkleRoot        string               `json:"merkle_root"`
	IssuedAt          string               `json:"issued_at"`
	ExpiresAt         string               `json:"expires_at"`
	Depth             int                  `json:"depth"`
	Signature         string               `json:"signature"`
	StepProofs        [][]proofStepPayload `json:"step_proofs"`
}

func planFromPayload(payload planPayload) domain.Plan {
	steps := make([]domain.Step, len(payload.Steps))
	for i, step := range payload.Steps {
		steps[i] = domain.Step{Action: step.Action, MCP: step.MCP, Params: step.Params}
	}
	return domain.Plan{Goal: payload.Goal, Steps: steps}
}

func subjectFromPayload(payload subjectPayload) domain.Subject {
	return domain.Subject{
		UserID:    payload.UserID,
		AgentID:   payload.AgentID,
		ContextID: payload.ContextID,
	}
}

func tokenToPayload(token domain.IntentToken) tokenPayload {
	return tokenPayload{
		TokenID:        token.TokenID,
		PlanHash:       token.PlanHash,
		MerkleRoot:     hex.EncodeToString(token.MerkleRoot),
		Subject:        subjectPayload{UserID: token.Subject.UserID, AgentID: token.Subject.AgentID, ContextID: token.Subject.ContextID},
		AllowedActions: token.Policy.AllowedActions,
		IssuedAt:       token.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:      token.ExpiresAt.UTC().Format(time.RFC3339),
		Signature:      token.Signature,
		StepProofs:     proofsToPayload(token.StepProofs),
	}
}

func tokenFromPayload(payload tokenPayload) (domain.IntentToken, error) {
	root, err := hex.DecodeString(payload.MerkleRoot)
	if err != nil {
		return domain.IntentToken{}, fmt.Errorf("merkle_root: %w", err)
	}
	issuedAt, expiresAt, err := parseWindow(payload.IssuedAt, payload.ExpiresAt)
	if err != nil {
		return domain.IntentToken{}, err
	}
	proofs, err := proofsFromPayload(payload.StepProofs)
	if err != nil {
		return domain.IntentToken{}, err
	}
	return domain.IntentToken{
		TokenID:    payload.TokenID,
		PlanHash:   payload.PlanHash,
		MerkleRoot: root,
		Subject:    subjectFromPayload(payload.Subject),
		Policy:     domain.Policy{AllowedActions: payload.AllowedActions},
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		Signature:  payload.Signature,
		StepProofs: proofs,
	}, nil
}

func delegationToPayload(token domain.DelegationToken) delegationPayload {
	return delegationPayload{
		DelegationID:      token.DelegationID,
		ParentTokenID:     token.ParentTokenID,
		DelegatePublicKey: base64.StdEncoding.EncodeToString(token.DelegatePublicKey),
		AllowedActions:    token.AllowedActions,
		PlanHash:          token.PlanHash,
		MerkleRoot:        hex.EncodeToString(token.MerkleRoot),
		IssuedAt:          token.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:         token.ExpiresAt.UTC().Format(time.RFC3339),
		Depth:             token.Depth,
		Signature:         token.Signature,
		StepProofs:        proofsToPayload(token.StepProofs),
	}
}

func delegationFromPayload(payload delegationPayload) (domain.DelegationToken, error) {
	key, err := base64.StdEncoding.DecodeString(payload.DelegatePublicKey)
	if err != nil {
		return domain.DelegationToken{}, fmt.Errorf("delegate_public_key: %w", err)
	}
	root, err := hex.DecodeString(payload.MerkleRoot)
	if err != nil {
		return domain.DelegationToken{}, fmt.Errorf("merkle_root: %w", err)
	}
	issuedAt, expiresAt, err := parseWindow(payload.IssuedAt, payload.ExpiresAt)
	if err != nil {
		return domain.DelegationToken{}, err
	}
	proofs, err := proofsFromPayload(payload.StepProofs)
	if err != nil {
		return domain.DelegationToken{}, err
	}
	return domain.DelegationToken{
		DelegationID:      payload.DelegationID,
		ParentTokenID:     payload.ParentTokenID,
		DelegatePublicKey: key,
		AllowedActions:    payload.AllowedActions,
		PlanHash:          payload.PlanHash,
		MerkleRoot:        root,
		IssuedAt:          issuedAt,
		ExpiresAt:         expiresAt,
		Depth:             payload.Depth,
		Signature:         payload.Signature,
		StepProofs:        proofs,
	}, nil
}

func proofsToPayload(proofs []domain.MerkleProof) [][]proofStepPayload {
	out := make([][]proofStepPayload, len(proofs))
	for i, proof := range proofs {
		steps := make([]proofStepPayload, len(proof))
		for j, step := range proof {
			steps[j] = proofStepPayload{
				SiblingHash: hex.EncodeToString(step.SiblingHash),
				Position:    string(step.Position),
			}
		}
		out[i] = steps
	}
	return out
}

func proofsFromPayload(payload [][]proofStepPayload) ([]domain.MerkleProof, error) {
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

func parseWindow(issuedAt, expiresAt string) (time.Time, time.Time, error) {
	if issuedAt == "" || expiresAt == "" {
		return time.Time{}, time.Time{}, errors.New("issued_at and expires_at are required")
	}
	issued, err := time.Parse(time.RFC3339, issuedAt)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("issued_at: %w", err)
	}
	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("expires_at: %w", err)
	}
	return issued.UTC(), expires.UTC(), nil
}
