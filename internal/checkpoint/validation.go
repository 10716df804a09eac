package checkpoint

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// tensorSpan is the byte range [Offset, Offset+Size) of one tensor in the
// data section.
type tensorSpan struct {
	Name   string
	Offset int64
	Size   int64
}

func (s tensorSpan) end() int64 { return s.Offset + s.Size }

// checkDataLayout verifies that every tensor lies inside the data section
// and that no two tensors share bytes.
func checkDataLayout(spans []tensorSpan, dataSize int64) error {
	if len(spans) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(spans), MaxTensorCount),
		}
	}

	ordered := slices.Clone(spans)
	slices.SortFunc(ordered, func(a, b tensorSpan) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	var prev *tensorSpan
	for i := range ordered {
		cur := &ordered[i]
		switch {
		case cur.Offset < 0 || cur.Size < 0:
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  cur.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", cur.Offset, cur.Size),
			}
		case cur.end() > dataSize:
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  cur.Name,
				Details: fmt.Sprintf("ends at byte %d of %d", cur.end(), dataSize),
			}
		case prev != nil && prev.end() > cur.Offset:
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  prev.Name,
				Tensor2: cur.Name,
				Details: fmt.Sprintf("[%d, %d) and [%d, %d)", prev.Offset, prev.end(), cur.Offset, cur.end()),
			}
		}
		prev = cur
	}
	return nil
}

// validateTensorName rejects names that cannot come from a tree path.
func validateTensorName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTensorName)
	}
	if len(name) > MaxTensorNameLen {
		return fmt.Errorf("%w: length %d > max %d", ErrInvalidTensorName, len(name), MaxTensorNameLen)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.Contains(name, "//") {
		return fmt.Errorf("%w: %q has an empty path segment", ErrInvalidTensorName, name)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "\\\x00") {
		return fmt.Errorf("%w: %q contains a forbidden sequence", ErrInvalidTensorName, name)
	}
	return nil
}
