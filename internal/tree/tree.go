// Package tree implements parameter and gradient trees.
//
// A tree mirrors the structure of a model: every node is either a leaf
// holding a tensor, a map of named subtrees, or an ordered list of subtrees.
// Map children are always visited in sorted key order, so flattening two
// trees with the same structure yields leaves that line up index by index.
//
// Example:
//
//	params := tree.Map(map[string]*tree.Tree{
//	    "encoder": tree.Map(map[string]*tree.Tree{
//	        "weight": tree.Leaf(w),
//	        "bias":   tree.Leaf(b),
//	    }),
//	    "heads": tree.List(tree.Leaf(h0), tree.Leaf(h1)),
//	})
//	n := params.NumElements()
package tree

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/siamics/siamics/internal/tensor"
)

// Common errors.
var (
	ErrEmpty             = errors.New("tree: empty tree list")
	ErrStructureMismatch = errors.New("tree: structure mismatch")
	ErrLeafCount         = errors.New("tree: leaf count mismatch")
)

// PathSeparator joins node names in flattened paths.
const PathSeparator = "/"

// Kind identifies the node type.
type Kind uint8

// Node kinds.
const (
	KindLeaf Kind = iota
	KindMap
	KindList
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Tree is an immutable nested container of tensors.
type Tree struct {
	kind   Kind
	leaf   *tensor.Tensor
	keys   []string // sorted
	fields map[string]*Tree
	items  []*Tree
}

// Leaf wraps a tensor as a tree leaf. It panics on a nil tensor.
func Leaf(t *tensor.Tensor) *Tree {
	if t == nil {
		panic("tree.Leaf: nil tensor")
	}
	return &Tree{kind: KindLeaf, leaf: t}
}

// Map creates a node with named children. The map is copied.
func Map(fields map[string]*Tree) *Tree {
	t := &Tree{
		kind:   KindMap,
		keys:   make([]string, 0, len(fields)),
		fields: make(map[string]*Tree, len(fields)),
	}
	for k, v := range fields {
		if v == nil {
			panic(fmt.Sprintf("tree.Map: nil child %q", k))
		}
		t.keys = append(t.keys, k)
		t.fields[k] = v
	}
	slices.Sort(t.keys)
	return t
}

// List creates a node with ordered children.
func List(items ...*Tree) *Tree {
	for i, v := range items {
		if v == nil {
			panic(fmt.Sprintf("tree.List: nil child %d", i))
		}
	}
	return &Tree{kind: KindList, items: slices.Clone(items)}
}

// Kind returns the node type.
func (t *Tree) Kind() Kind {
	return t.kind
}

// Tensor returns the tensor of a leaf node, nil otherwise.
func (t *Tree) Tensor() *tensor.Tensor {
	return t.leaf
}

// Keys returns the sorted child names of a map node.
func (t *Tree) Keys() []string {
	return slices.Clone(t.keys)
}

// Field returns the named child of a map node.
func (t *Tree) Field(name string) (*Tree, bool) {
	child, ok := t.fields[name]
	return child, ok
}

// Items returns the children of a list node.
func (t *Tree) Items() []*Tree {
	return slices.Clone(t.items)
}

// Len returns the number of direct children (0 for leaves).
func (t *Tree) Len() int {
	switch t.kind {
	case KindMap:
		return len(t.keys)
	case KindList:
		return len(t.items)
	default:
		return 0
	}
}

// Leaves returns every leaf tensor in depth-first canonical order.
func (t *Tree) Leaves() []*tensor.Tensor {
	var out []*tensor.Tensor
	t.walk("", func(_ string, leaf *tensor.Tensor) {
		out = append(out, leaf)
	})
	return out
}

// Entry is a leaf together with its path from the root.
type Entry struct {
	Path   string
	Tensor *tensor.Tensor
}

// Flatten returns every leaf with its slash-separated path, e.g.
// "encoder/weight" or "heads/1". A root leaf has the empty path.
func (t *Tree) Flatten() []Entry {
	var out []Entry
	t.walk("", func(path string, leaf *tensor.Tensor) {
		out = append(out, Entry{Path: path, Tensor: leaf})
	})
	return out
}

func (t *Tree) walk(prefix string, visit func(path string, leaf *tensor.Tensor)) {
	switch t.kind {
	case KindLeaf:
		visit(prefix, t.leaf)
	case KindMap:
		for _, k := range t.keys {
			t.fields[k].walk(joinPath(prefix, k), visit)
		}
	case KindList:
		for i, item := range t.items {
			item.walk(joinPath(prefix, strconv.Itoa(i)), visit)
		}
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + PathSeparator + name
}

// NumElements returns the total element count over all leaves.
func (t *Tree) NumElements() int {
	n := 0
	for _, leaf := range t.Leaves() {
		n += leaf.NumElements()
	}
	return n
}

// SameStructure reports, as an error wrapping ErrStructureMismatch, the first
// place where other differs from t in node kind, map keys, or list length.
// Leaf shapes are not compared.
func (t *Tree) SameStructure(other *Tree) error {
	return sameStructure("", t, other)
}

func sameStructure(path string, a, b *Tree) error {
	if a.kind != b.kind {
		return fmt.Errorf("%w at %q: %s vs %s", ErrStructureMismatch, path, a.kind, b.kind)
	}
	switch a.kind {
	case KindMap:
		if !slices.Equal(a.keys, b.keys) {
			return fmt.Errorf("%w at %q: keys %v vs %v", ErrStructureMismatch, path, a.keys, b.keys)
		}
		for _, k := range a.keys {
			if err := sameStructure(joinPath(path, k), a.fields[k], b.fields[k]); err != nil {
				return err
			}
		}
	case KindList:
		if len(a.items) != len(b.items) {
			return fmt.Errorf("%w at %q: length %d vs %d", ErrStructureMismatch, path, len(a.items), len(b.items))
		}
		for i := range a.items {
			if err := sameStructure(joinPath(path, strconv.Itoa(i)), a.items[i], b.items[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unflatten builds a tree with t's structure whose leaves are taken, in
// canonical order, from leaves.
func (t *Tree) Unflatten(leaves []*tensor.Tensor) (*Tree, error) {
	want := len(t.Leaves())
	if len(leaves) != want {
		return nil, fmt.Errorf("%w: structure has %d leaves, got %d", ErrLeafCount, want, len(leaves))
	}
	next := 0
	return t.rebuild(func() *tensor.Tensor {
		leaf := leaves[next]
		next++
		return leaf
	}), nil
}

func (t *Tree) rebuild(nextLeaf func() *tensor.Tensor) *Tree {
	switch t.kind {
	case KindMap:
		fields := make(map[string]*Tree, len(t.keys))
		for _, k := range t.keys {
			fields[k] = t.fields[k].rebuild(nextLeaf)
		}
		return &Tree{kind: KindMap, keys: slices.Clone(t.keys), fields: fields}
	case KindList:
		items := make([]*Tree, len(t.items))
		for i, item := range t.items {
			items[i] = item.rebuild(nextLeaf)
		}
		return &Tree{kind: KindList, items: items}
	default:
		return Leaf(nextLeaf())
	}
}

// Equal reports whether both trees have the same structure and equal leaves.
func (t *Tree) Equal(other *Tree) bool {
	return t.AllClose(other, 0)
}

// AllClose reports whether both trees have the same structure and every
// leaf pair is within tol elementwise.
func (t *Tree) AllClose(other *Tree, tol float64) bool {
	if other == nil || t.SameStructure(other) != nil {
		return false
	}
	a, b := t.Leaves(), other.Leaves()
	for i := range a {
		if !a[i].AllClose(b[i], tol) {
			return false
		}
	}
	return true
}
