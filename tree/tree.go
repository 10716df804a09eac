// Copyright 2026 The Siamics Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tree provides parameter and gradient trees: nested maps and lists
// whose leaves are tensors.
//
// # Basic Usage
//
//	params := tree.Map(map[string]*tree.Tree{
//	    "encoder": tree.Map(map[string]*tree.Tree{
//	        "weight": tree.Leaf(w),
//	        "bias":   tree.Leaf(b),
//	    }),
//	    "heads": tree.List(tree.Leaf(h0), tree.Leaf(h1)),
//	})
//
//	for _, e := range params.Flatten() {
//	    fmt.Println(e.Path, e.Tensor.Shape()) // encoder/bias, encoder/weight, heads/0, heads/1
//	}
package tree

import (
	"github.com/siamics/siamics/internal/tensor"
	"github.com/siamics/siamics/internal/tree"
)

// Tree is an immutable nested container of tensors.
type Tree = tree.Tree

// Kind identifies the node type.
type Kind = tree.Kind

// Entry is a leaf together with its path from the root.
type Entry = tree.Entry

// Node kinds.
const (
	KindLeaf = tree.KindLeaf
	KindMap  = tree.KindMap
	KindList = tree.KindList
)

// Common errors.
var (
	ErrEmpty             = tree.ErrEmpty
	ErrStructureMismatch = tree.ErrStructureMismatch
	ErrLeafCount         = tree.ErrLeafCount
)

// Leaf wraps a tensor as a tree leaf.
func Leaf(t *tensor.Tensor) *Tree {
	return tree.Leaf(t)
}

// Map creates a node with named children.
func Map(fields map[string]*Tree) *Tree {
	return tree.Map(fields)
}

// List creates a node with ordered children.
func List(items ...*Tree) *Tree {
	return tree.List(items...)
}

// MapLeaves returns a tree with t's structure and fn applied to every leaf.
func MapLeaves(t *Tree, fn func(*tensor.Tensor) (*tensor.Tensor, error)) (*Tree, error) {
	return tree.MapLeaves(t, fn)
}

// MapN applies fn to corresponding leaves of trees sharing one structure.
func MapN(fn func(leaves []*tensor.Tensor) (*tensor.Tensor, error), trees ...*Tree) (*Tree, error) {
	return tree.MapN(fn, trees...)
}

// ZerosLike returns a zero tree with t's structure and leaf shapes.
func ZerosLike(t *Tree) *Tree {
	return tree.ZerosLike(t)
}

// Mean returns the leafwise mean of trees.
func Mean(trees []*Tree) (*Tree, error) {
	return tree.Mean(trees)
}

// GlobalNorm returns the L2 norm of all leaves taken together.
func GlobalNorm(t *Tree) float64 {
	return tree.GlobalNorm(t)
}
