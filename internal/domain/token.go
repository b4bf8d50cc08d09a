package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type ProofPosition string

const (
	PositionLeft  ProofPosition = "LEFT"
	PositionRight ProofPosition = "RIGHT"
)

// ProofStep is one hop of an inclusion proof: the sibling hash and the
// concatenation side the sibling occupies.
type ProofStep struct {
	SiblingHash []byte
	Position    ProofPosition
}

// MerkleProof is the ordered sibling path from a leaf to the root.
type MerkleProof []ProofStep

// Subject is the composite identity a token is bound to.
type Subject struct {
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	ContextID string `json:"context_id"`
}

// CompositeID collapses the subject into a single stable identity hash.
func (s Subject) CompositeID() string {
	sum := sha256.Sum256([]byte(s.UserID + "|" + s.AgentID + "|" + s.ContextID))
	return hex.EncodeToString(sum[:])
}

// Policy is the set of action names a token holder may invoke.
type Policy struct {
	AllowedActions []string `json:"allowed_actions"`
}

func (p Policy) Allows(action string) bool {
	for _, a := range p.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

// IntentToken is a signed, time-bounded authorization bound to a plan
// commitment. Immutable once issued: any field change invalidates the
// signature.
type IntentToken struct {
	TokenID    string
	PlanHash   string
	MerkleRoot []byte
	Subject    Subject
	Policy     Policy
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Signature  string
	StepProofs []MerkleProof
}

// DelegationToken narrows who may act and which actions, against the
// same committed plan. PlanHash, MerkleRoot and StepProofs are inherited
// from the parent unchanged.
type DelegationToken struct {
	DelegationID      string
	ParentTokenID     string
	DelegatePublicKey []byte
	AllowedActions    []string
	PlanHash          string
	MerkleRoot        []byte
	IssuedAt          time.Time
	ExpiresAt         time.Time
	Depth             int
	Signature         string
	StepProofs        []MerkleProof
}

func (t DelegationToken) Allows(action string) bool {
	for _, a := range t.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}
