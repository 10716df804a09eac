// Package tensor implements the dense float64 tensors that parameter and
// gradient trees carry as leaves.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// ErrShapeMismatch is returned when an elementwise operation receives
// tensors of different shapes.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")

// Tensor is a dense row-major float64 array.
//
// Operations in this package never modify their inputs; every result is a
// freshly allocated tensor.
type Tensor struct {
	shape Shape
	data  []float64
}

// New creates a zero-filled tensor after validating shape.
func New(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Tensor{
		shape: shape.Clone(),
		data:  make([]float64, shape.NumElements()),
	}, nil
}

// Zeros creates a zero-filled tensor. It panics on an invalid shape.
func Zeros(shape Shape) *Tensor {
	t, err := New(shape)
	if err != nil {
		panic(fmt.Sprintf("tensor.Zeros: %v", err))
	}
	return t
}

// Full creates a tensor with every element set to value.
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Scalar creates a rank-0 tensor.
func Scalar(value float64) *Tensor {
	return &Tensor{shape: Shape{}, data: []float64{value}}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := &Tensor{shape: shape.Clone(), data: make([]float64, len(data))}
	copy(t.data, data)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying element slice.
//
// The slice aliases the tensor's storage.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Item returns the single value of a one-element tensor.
func (t *Tensor) Item() float64 {
	if len(t.data) != 1 {
		panic(fmt.Sprintf("tensor.Item: tensor has %d elements", len(t.data)))
	}
	return t.data[0]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// ZerosLike returns a zero tensor with t's shape.
func (t *Tensor) ZerosLike() *Tensor {
	return &Tensor{shape: t.shape.Clone(), data: make([]float64, len(t.data))}
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v)", []int(t.shape))
}

// Equal reports whether both tensors have the same shape and identical elements.
func (t *Tensor) Equal(other *Tensor) bool {
	return t.AllClose(other, 0)
}

// AllClose reports whether shapes match and every pair of elements differs by at most tol.
func (t *Tensor) AllClose(other *Tensor, tol float64) bool {
	if other == nil || !t.shape.Equal(other.shape) {
		return false
	}
	for i, v := range t.data {
		if math.Abs(v-other.data[i]) > tol {
			return false
		}
	}
	return true
}

func checkShapes(op string, a, b *Tensor) error {
	if !a.shape.Equal(b.shape) {
		return fmt.Errorf("%s: %w: %v vs %v", op, ErrShapeMismatch, a.shape, b.shape)
	}
	return nil
}
