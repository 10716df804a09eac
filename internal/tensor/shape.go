package tensor

import (
	"fmt"
	"slices"
)

// Shape lists tensor dimensions, outermost first. An empty Shape is a scalar.
type Shape []int

// NumElements returns the product of the dimensions (1 for a scalar).
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// CountUpTo returns NumElements when every dimension is positive and the
// product does not exceed limit. ok is false otherwise, including when the
// product would overflow int.
func (s Shape) CountUpTo(limit int) (n int, ok bool) {
	n = 1
	for _, dim := range s {
		if dim <= 0 || n > limit/dim {
			return 0, false
		}
		n *= dim
	}
	return n, n <= limit
}

// Validate rejects non-positive dimensions.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(dim int) bool { return dim <= 0 }); i >= 0 {
		return fmt.Errorf("shape %v: dimension %d is %d, want > 0", []int(s), i, s[i])
	}
	return nil
}

// Equal reports whether both shapes list the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns an independent copy; a nil shape clones to an empty scalar shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return Shape{}
	}
	return slices.Clone(s)
}
