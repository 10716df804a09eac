package tree

import (
	"math"
	"testing"

	"github.com/siamics/siamics/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, data []float64, shape ...int) *Tree {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return Leaf(x)
}

// sample builds {"b": [leaf(2x2), leaf(3)], "a": leaf(2)}.
func sample(t *testing.T, scale float64) *Tree {
	t.Helper()
	return Map(map[string]*Tree{
		"b": List(
			leaf(t, []float64{1 * scale, 2 * scale, 3 * scale, 4 * scale}, 2, 2),
			leaf(t, []float64{5 * scale, 6 * scale, 7 * scale}, 3),
		),
		"a": leaf(t, []float64{8 * scale, 9 * scale}, 2),
	})
}

func TestFlatten_CanonicalOrder(t *testing.T) {
	entries := sample(t, 1).Flatten()
	require.Len(t, entries, 3)

	assert.Equal(t, "a", entries[0].Path)
	assert.Equal(t, "b/0", entries[1].Path)
	assert.Equal(t, "b/1", entries[2].Path)
	assert.Equal(t, []float64{8, 9}, entries[0].Tensor.Data())
}

func TestFlatten_RootLeaf(t *testing.T) {
	entries := leaf(t, []float64{1}, 1).Flatten()
	require.Len(t, entries, 1)
	assert.Equal(t, "", entries[0].Path)
}

func TestNumElements(t *testing.T) {
	params := Map(map[string]*Tree{
		"w": Leaf(tensor.Zeros(tensor.Shape{2, 2})),
		"v": Leaf(tensor.Zeros(tensor.Shape{3, 3})),
	})
	assert.Equal(t, 13, params.NumElements())
}

func TestAccessors(t *testing.T) {
	s := sample(t, 1)
	assert.Equal(t, KindMap, s.Kind())
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	b, ok := s.Field("b")
	require.True(t, ok)
	assert.Equal(t, KindList, b.Kind())
	assert.Len(t, b.Items(), 2)

	_, ok = s.Field("missing")
	assert.False(t, ok)
}

func TestSameStructure(t *testing.T) {
	require.NoError(t, sample(t, 1).SameStructure(sample(t, 2)))

	other := Map(map[string]*Tree{
		"a": leaf(t, []float64{1, 2}, 2),
		"c": leaf(t, []float64{1}, 1),
	})
	err := sample(t, 1).SameStructure(other)
	require.ErrorIs(t, err, ErrStructureMismatch)

	short := Map(map[string]*Tree{
		"a": leaf(t, []float64{1, 2}, 2),
		"b": List(leaf(t, []float64{1}, 1)),
	})
	err = sample(t, 1).SameStructure(short)
	require.ErrorIs(t, err, ErrStructureMismatch)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestUnflatten(t *testing.T) {
	s := sample(t, 1)
	leaves := s.Leaves()
	for i := range leaves {
		leaves[i] = tensor.Scale(leaves[i], 10)
	}

	rebuilt, err := s.Unflatten(leaves)
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(sample(t, 10)))

	_, err = s.Unflatten(leaves[:1])
	require.ErrorIs(t, err, ErrLeafCount)
}

func TestMapN(t *testing.T) {
	sum, err := Add(sample(t, 1), sample(t, 2))
	require.NoError(t, err)
	assert.True(t, sum.Equal(sample(t, 3)))

	_, err = MapN(tensor.Mean)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Add(sample(t, 1), leaf(t, []float64{1}, 1))
	require.ErrorIs(t, err, ErrStructureMismatch)
}

func TestMean(t *testing.T) {
	g := sample(t, 1)

	single, err := Mean([]*Tree{g})
	require.NoError(t, err)
	assert.True(t, single.Equal(g))

	twice, err := Mean([]*Tree{g, g})
	require.NoError(t, err)
	assert.True(t, twice.Equal(g))

	avg, err := Mean([]*Tree{sample(t, 1), sample(t, 3)})
	require.NoError(t, err)
	assert.True(t, avg.AllClose(sample(t, 2), 1e-12))

	_, err = Mean(nil)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestMean_ShapeMismatch(t *testing.T) {
	a := Map(map[string]*Tree{"w": leaf(t, []float64{1, 2}, 2)})
	b := Map(map[string]*Tree{"w": leaf(t, []float64{1, 2, 3}, 3)})

	_, err := Mean([]*Tree{a, b})
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestZerosLikeAndScale(t *testing.T) {
	z := ZerosLike(sample(t, 1))
	assert.True(t, z.Equal(sample(t, 0)))

	assert.True(t, Scale(sample(t, 1), 4).Equal(sample(t, 4)))
}

func TestGlobalNorm(t *testing.T) {
	g := List(leaf(t, []float64{3}, 1), leaf(t, []float64{4}, 1))
	assert.InDelta(t, 5.0, GlobalNorm(g), 1e-12)

	var want float64
	for i := 1; i <= 9; i++ {
		want += float64(i * i)
	}
	assert.InDelta(t, math.Sqrt(want), GlobalNorm(sample(t, 1)), 1e-12)
}
