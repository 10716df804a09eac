package optim

import (
	"github.com/siamics/siamics/internal/tree"
)

// AverageGradients returns the leafwise mean of gradient trees that share
// one structure, e.g. the gradients of several micro-batches.
//
// Returns tree.ErrEmpty for an empty list, an error wrapping
// tree.ErrStructureMismatch for differing structures, and an error wrapping
// tensor.ErrShapeMismatch for differing leaf shapes.
func AverageGradients(grads []*tree.Tree) (*tree.Tree, error) {
	return tree.Mean(grads)
}

// CountParameters returns the total number of scalar parameters in params.
func CountParameters(params *tree.Tree) int {
	return params.NumElements()
}
