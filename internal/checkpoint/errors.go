package checkpoint

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch  = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidHeader     = errors.New("invalid safetensors header")
	ErrUnsupportedDType  = errors.New("unsupported tensor dtype")
	ErrUnsupportedState  = errors.New("unsupported optimizer state type")
	ErrMissingTensor     = errors.New("tensor missing from checkpoint")
	ErrShapeMismatch     = errors.New("checkpoint tensor shape does not match")
	ErrInvalidTensorName = errors.New("invalid tensor name")
	ErrDuplicateTensor   = errors.New("two tree leaves flatten to the same tensor name")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Tensor  string // Primary tensor name involved
	Tensor2 string // Secondary tensor name (for overlap errors)
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap lets errors.Is match ValidationError against ErrInvalidHeader.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidHeader
}
