// Package capture computes plan commitments on the client side, before
// any request reaches the authority. A gateway embedding this package
// can pre-compute the plan hash and merkle root, and verify step
// proofs offline against a token it already holds.
package capture

import (
	"intentd/internal/domain"
	cryptoinfra "intentd/internal/infra/crypto"
	"intentd/internal/infra/merkle"
)

// PlanCapture is the full commitment for one plan: the plan hash, the
// merkle root, and one inclusion proof per step.
type PlanCapture struct {
	PlanHash   string
	MerkleRoot []byte
	Leaves     []domain.Leaf
	StepProofs []domain.MerkleProof
}

func CapturePlan(plan domain.Plan) (PlanCapture, error) {
	leaves, err := cryptoinfra.CanonicalizePlan(plan)
	if err != nil {
		return PlanCapture{}, err
	}
	leafHashes := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		leafHashes[i] = leaf.Hash
	}
	tree, err := merkle.Build(leafHashes)
	if err != nil {
		return PlanCapture{}, err
	}
	proofs := make([]domain.MerkleProof, tree.Size())
	for i := range proofs {
		proof, err := tree.ProofFor(i)
		if err != nil {
			return PlanCapture{}, err
		}
		proofs[i] = proof
	}
	planHash, err := cryptoinfra.PlanHash(plan)
	if err != nil {
		return PlanCapture{}, err
	}
	return PlanCapture{
		PlanHash:   planHash,
		MerkleRoot: tree.Root(),
		Leaves:     leaves,
		StepProofs: proofs,
	}, nil
}
