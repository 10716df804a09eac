package tree

import (
	"fmt"
	"math"

	"github.com/siamics/siamics/internal/tensor"
)

// MapLeaves returns a tree with t's structure and fn applied to every leaf.
func MapLeaves(t *Tree, fn func(*tensor.Tensor) (*tensor.Tensor, error)) (*Tree, error) {
	leaves := t.Leaves()
	out := make([]*tensor.Tensor, len(leaves))
	for i, leaf := range leaves {
		mapped, err := fn(leaf)
		if err != nil {
			return nil, err
		}
		out[i] = mapped
	}
	return t.Unflatten(out)
}

// MapN applies fn to corresponding leaves of several trees that share one
// structure. fn receives the leaves in argument order.
//
// Returns ErrEmpty when no trees are given and an error wrapping
// ErrStructureMismatch when any tree differs from the first.
func MapN(fn func(leaves []*tensor.Tensor) (*tensor.Tensor, error), trees ...*Tree) (*Tree, error) {
	if len(trees) == 0 {
		return nil, ErrEmpty
	}
	columns := make([][]*tensor.Tensor, len(trees))
	for i, t := range trees {
		if t == nil {
			return nil, fmt.Errorf("tree %d is nil: %w", i, ErrStructureMismatch)
		}
		if err := trees[0].SameStructure(t); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		columns[i] = t.Leaves()
	}

	n := len(columns[0])
	out := make([]*tensor.Tensor, n)
	args := make([]*tensor.Tensor, len(trees))
	for j := 0; j < n; j++ {
		for i := range trees {
			args[i] = columns[i][j]
		}
		mapped, err := fn(args)
		if err != nil {
			return nil, err
		}
		out[j] = mapped
	}
	return trees[0].Unflatten(out)
}

// Map2 applies fn to corresponding leaves of a and b.
func Map2(a, b *Tree, fn func(x, y *tensor.Tensor) (*tensor.Tensor, error)) (*Tree, error) {
	return MapN(func(leaves []*tensor.Tensor) (*tensor.Tensor, error) {
		return fn(leaves[0], leaves[1])
	}, a, b)
}

// ZerosLike returns a tree with t's structure and zero leaves of the same shapes.
func ZerosLike(t *Tree) *Tree {
	leaves := t.Leaves()
	zeros := make([]*tensor.Tensor, len(leaves))
	for i, leaf := range leaves {
		zeros[i] = leaf.ZerosLike()
	}
	out, _ := t.Unflatten(zeros) // leaf count matches by construction
	return out
}

// Add returns the leafwise sum a + b.
func Add(a, b *Tree) (*Tree, error) {
	return Map2(a, b, tensor.Add)
}

// Scale returns c times every leaf of t.
func Scale(t *Tree, c float64) *Tree {
	out, _ := MapLeaves(t, func(leaf *tensor.Tensor) (*tensor.Tensor, error) {
		return tensor.Scale(leaf, c), nil
	})
	return out
}

// Mean returns the leafwise mean of trees.
func Mean(trees []*Tree) (*Tree, error) {
	if len(trees) == 0 {
		return nil, ErrEmpty
	}
	return MapN(tensor.Mean, trees...)
}

// GlobalNorm returns the L2 norm of all leaves taken together.
func GlobalNorm(t *Tree) float64 {
	var sum float64
	for _, leaf := range t.Leaves() {
		sum += tensor.SumSquares(leaf)
	}
	return math.Sqrt(sum)
}
