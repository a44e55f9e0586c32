package erasure

import (
	"certus/pkg/platform/canonical"
)

// MerkleTree is a binary hash tree over destruction evidence. Leaves are
// canonical hashes of Evidence entries in execution order; interior nodes
// hash the concatenation of their children. An odd node at any level is
// paired with itself.
type MerkleTree struct {
	Leaves []string `json:"leaves"`
	Root   string   `json:"root"`
}

// BuildMerkleTree constructs the tree for the given leaf hashes. An empty
// leaf set yields the zero root.
func BuildMerkleTree(leaves []string) *MerkleTree {
	copied := make([]string, len(leaves))
	copy(copied, leaves)
	return &MerkleTree{
		Leaves: copied,
		Root:   MerkleRoot(copied),
	}
}

// MerkleRoot folds the leaf hashes up to a single root. Deterministic:
// rebuilding from the same leaves always yields the same root.
func MerkleRoot(leaves []string) string {
	if len(leaves) == 0 {
		return canonical.ZeroHash
	}
	level := leaves
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, canonical.HashBytes([]byte(left+right)))
		}
		level = next
	}
	return level[0]
}

// Consistent reports whether the stored root matches a rebuild from the
// stored leaves.
func (t *MerkleTree) Consistent() bool {
	if t == nil {
		return false
	}
	return MerkleRoot(t.Leaves) == t.Root
}

// EvidenceLeaves hashes each evidence entry into its leaf value.
func EvidenceLeaves(evidence []Evidence) ([]string, error) {
	leaves := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		leaf, err := canonical.SHA256Hex(ev)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}
