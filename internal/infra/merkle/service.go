package merkle

import "intentd/internal/domain"

type Service struct{}

// Commit builds the tree once and extracts every inclusion proof, so an
// issued token carries its per-step proofs without re-deriving the tree
// at invocation time.
func (s *Service) Commit(leafHashes [][]byte) ([]byte, []domain.MerkleProof, error) {
	tree, err := Build(leafHashes)
	if err != nil {
		return nil, nil, err
	}
	proofs := make([]domain.MerkleProof, tree.Size())
	for i := range proofs {
		proof, err := tree.ProofFor(i)
		if err != nil {
			return nil, nil, err
		}
		proofs[i] = proof
	}
	return tree.Root(), proofs, nil
}

func (s *Service) Verify(leafHash []byte, proof domain.MerkleProof, root []byte) bool {
	return Verify(leafHash, proof, root)
}
