package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"intentd/internal/domain"
)

const HashSize = 32

var (
	ErrEmptyTree      = errors.New("empty merkle tree")
	ErrInvalidHashLen = errors.New("invalid hash length")
	ErrInvalidIndex   = errors.New("invalid leaf index")
)

// Tree is a binary Merkle tree over leaf hashes. When a level holds an
// odd number of nodes the last node is paired with itself; the rule is
// part of the commitment and must match between committer and verifier.
type Tree struct {
	levels [][][]byte
}

// NodeHash combines two child hashes. Concatenation order is the order
// used during verification; left always comes first.
func NodeHash(left, right []byte) []byte {
	hasher := sha256.New()
	hasher.Write(left)
	hasher.Write(right)
	return hasher.Sum(nil)
}

// Build constructs the full tree bottom-up from leaf hashes.
func Build(leaves [][]byte) (*Tree, error) {
	level, err := cloneAndValidateLeaves(leaves)
	if err != nil {
		return nil, err
	}

	levels := [][][]byte{level}
	for len(level) > 1 {
		level = nextLevel(level)
		levels = append(levels, level)
	}
	return &Tree{levels: levels}, nil
}

// Size is the number of leaves the tree commits to.
func (t *Tree) Size() int {
	return len(t.levels[0])
}

// Root returns the commitment hash. A single-leaf tree's root is the
// leaf hash itself.
func (t *Tree) Root() []byte {
	top := t.levels[len(t.levels)-1]
	return cloneHash(top[0])
}

// ProofFor returns the sibling path from leaf i to the root. Each step
// records the side the sibling occupies in the parent concatenation.
func (t *Tree) ProofFor(index int) (domain.MerkleProof, error) {
	if index < 0 || index >= t.Size() {
		return nil, ErrInvalidIndex
	}

	proof := make(domain.MerkleProof, 0, len(t.levels)-1)
	current := index
	for depth := 0; depth < len(t.levels)-1; depth++ {
		level := t.levels[depth]
		var sibling int
		var position domain.ProofPosition
		if current%2 == 0 {
			sibling = current + 1
			if sibling >= len(level) {
				// odd node: paired with itself
				sibling = current
			}
			position = domain.PositionRight
		} else {
			sibling = current - 1
			position = domain.PositionLeft
		}
		proof = append(proof, domain.ProofStep{
			SiblingHash: cloneHash(level[sibling]),
			Position:    position,
		})
		current /= 2
	}
	return proof, nil
}

// Verify recomputes the climb from leafHash using proof and compares the
// result to root. It returns false on any mismatch or malformed proof;
// it never panics and never reports an error a caller could ignore.
func Verify(leafHash []byte, proof domain.MerkleProof, root []byte) bool {
	if len(leafHash) != HashSize || len(root) != HashSize {
		return false
	}
	current := leafHash
	for _, step := range proof {
		if len(step.SiblingHash) != HashSize {
			return false
		}
		switch step.Position {
		case domain.PositionLeft:
			current = NodeHash(step.SiblingHash, current)
		case domain.PositionRight:
			current = NodeHash(current, step.SiblingHash)
		default:
			return false
		}
	}
	return bytes.Equal(current, root)
}

func nextLevel(level [][]byte) [][]byte {
	if len(level)%2 == 1 {
		level = append(level, level[len(level)-1])
	}
	next := make([][]byte, len(level)/2)
	for i := 0; i < len(level); i += 2 {
		next[i/2] = NodeHash(level[i], level[i+1])
	}
	return next
}

func cloneAndValidateLeaves(leaves [][]byte) ([][]byte, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	out := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		if len(leaf) != HashSize {
			return nil, fmt.Errorf("leaf %d: %w", i, ErrInvalidHashLen)
		}
		out[i] = cloneHash(leaf)
	}
	return out, nil
}

func cloneHash(hash []byte) []byte {
	out := make([]byte, len(hash))
	copy(out, hash)
	return out
}
