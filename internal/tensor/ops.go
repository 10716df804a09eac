package tensor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/siamics/siamics/internal/parallel"
)

// Parallel controls how elementwise kernels split large tensors.
//
// It is read on every call; replace it before starting work, not during.
var Parallel = parallel.DefaultConfig()

// Add returns a + b.
func Add(a, b *Tensor) (*Tensor, error) {
	if err := checkShapes("add", a, b); err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	parallel.ForChunks(len(out.data), func(s, e int) {
		floats.AddTo(out.data[s:e], a.data[s:e], b.data[s:e])
	}, Parallel)
	return out, nil
}

// Sub returns a - b.
func Sub(a, b *Tensor) (*Tensor, error) {
	if err := checkShapes("sub", a, b); err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	parallel.ForChunks(len(out.data), func(s, e int) {
		floats.SubTo(out.data[s:e], a.data[s:e], b.data[s:e])
	}, Parallel)
	return out, nil
}

// Mul returns the elementwise product a * b.
func Mul(a, b *Tensor) (*Tensor, error) {
	if err := checkShapes("mul", a, b); err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	parallel.ForChunks(len(out.data), func(s, e int) {
		floats.MulTo(out.data[s:e], a.data[s:e], b.data[s:e])
	}, Parallel)
	return out, nil
}

// Scale returns c * a.
func Scale(a *Tensor, c float64) *Tensor {
	out := a.ZerosLike()
	parallel.ForChunks(len(out.data), func(s, e int) {
		floats.ScaleTo(out.data[s:e], c, a.data[s:e])
	}, Parallel)
	return out
}

// AddScaled returns a + alpha*b.
func AddScaled(a *Tensor, alpha float64, b *Tensor) (*Tensor, error) {
	if err := checkShapes("add scaled", a, b); err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	parallel.ForChunks(len(out.data), func(s, e int) {
		floats.AddScaledTo(out.data[s:e], a.data[s:e], alpha, b.data[s:e])
	}, Parallel)
	return out, nil
}

// Lerp returns beta*a + (1-beta)*b, the exponential moving average update.
func Lerp(a, b *Tensor, beta float64) (*Tensor, error) {
	if err := checkShapes("lerp", a, b); err != nil {
		return nil, err
	}
	out := a.ZerosLike()
	parallel.ForChunks(len(out.data), func(s, e int) {
		floats.ScaleTo(out.data[s:e], beta, a.data[s:e])
		floats.AddScaled(out.data[s:e], 1-beta, b.data[s:e])
	}, Parallel)
	return out, nil
}

// Apply returns a tensor with fn applied to every element of a.
func Apply(a *Tensor, fn func(float64) float64) *Tensor {
	out := a.ZerosLike()
	parallel.ForChunks(len(out.data), func(s, e int) {
		for i := s; i < e; i++ {
			out.data[i] = fn(a.data[i])
		}
	}, Parallel)
	return out
}

// Sqrt returns the elementwise square root.
func Sqrt(a *Tensor) *Tensor {
	return Apply(a, math.Sqrt)
}

// Sum returns the sum of all elements.
func Sum(a *Tensor) float64 {
	return floats.Sum(a.data)
}

// SumSquares returns the sum of squared elements.
func SumSquares(a *Tensor) float64 {
	return floats.Dot(a.data, a.data)
}

// Mean returns the elementwise mean of ts.
//
// All tensors must share one shape. The inputs are not modified.
func Mean(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, errors.New("mean: no tensors")
	}
	for i, t := range ts[1:] {
		if !t.shape.Equal(ts[0].shape) {
			return nil, fmt.Errorf("mean: tensor %d: %w: %v vs %v", i+1, ErrShapeMismatch, t.shape, ts[0].shape)
		}
	}

	out := ts[0].Clone()
	if len(ts) == 1 {
		return out, nil
	}
	inv := 1 / float64(len(ts))
	parallel.ForChunks(len(out.data), func(s, e int) {
		dst := out.data[s:e]
		for _, t := range ts[1:] {
			floats.Add(dst, t.data[s:e])
		}
		floats.Scale(inv, dst)
	}, Parallel)
	return out, nil
}
