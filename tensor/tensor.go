// Copyright 2026 The Siamics Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense float64 tensors carried by parameter and
// gradient trees.
//
// Example:
//
//	w, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	if err != nil {
//	    return err
//	}
//	doubled := tensor.Scale(w, 2)
package tensor

import (
	"github.com/siamics/siamics/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a dense row-major float64 array.
type Tensor = tensor.Tensor

// ErrShapeMismatch is returned by elementwise operations on tensors of different shapes.
var ErrShapeMismatch = tensor.ErrShapeMismatch

// Creation functions

// New creates a zero-filled tensor after validating shape.
func New(shape Shape) (*Tensor, error) {
	return tensor.New(shape)
}

// Zeros creates a zero-filled tensor. It panics on an invalid shape.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float64) *Tensor {
	return tensor.Full(shape, value)
}

// Scalar creates a rank-0 tensor.
func Scalar(value float64) *Tensor {
	return tensor.Scalar(value)
}

// FromSlice creates a tensor from a Go slice (copied).
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Elementwise operations

// Add returns a + b.
func Add(a, b *Tensor) (*Tensor, error) {
	return tensor.Add(a, b)
}

// Sub returns a - b.
func Sub(a, b *Tensor) (*Tensor, error) {
	return tensor.Sub(a, b)
}

// Mul returns the elementwise product a * b.
func Mul(a, b *Tensor) (*Tensor, error) {
	return tensor.Mul(a, b)
}

// Scale returns c * a.
func Scale(a *Tensor, c float64) *Tensor {
	return tensor.Scale(a, c)
}

// Apply returns fn applied to every element of a.
func Apply(a *Tensor, fn func(float64) float64) *Tensor {
	return tensor.Apply(a, fn)
}
