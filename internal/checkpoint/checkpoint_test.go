package checkpoint

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/siamics/siamics/internal/optim"
	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tensor"
	"github.com/siamics/siamics/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTensor(t *testing.T, data []float64, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

func testParams(t *testing.T) *tree.Tree {
	t.Helper()
	return tree.Map(map[string]*tree.Tree{
		"encoder": tree.Map(map[string]*tree.Tree{
			"weight": tree.Leaf(mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)),
			"bias":   tree.Leaf(mustTensor(t, []float64{0.1, 0.2, 0.3}, 3)),
		}),
		"heads": tree.List(tree.Leaf(mustTensor(t, []float64{-1.5}, 1))),
	})
}

// TestWriteRead_RoundTrip tests round-trip: write → read → verify.
func TestWriteRead_RoundTrip(t *testing.T) {
	tensors := map[string]*tensor.Tensor{
		"weight": mustTensor(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3),
		"bias":   mustTensor(t, []float64{0.1, 0.2, 0.3}, 3),
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tensors, map[string]string{"format": "siamics"}))

	f, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, "siamics", f.Metadata["format"])
	assert.NotEmpty(t, f.Metadata[checksumKey])
	assert.Equal(t, []string{"bias", "weight"}, f.Names())
	for name, want := range tensors {
		assert.True(t, want.Equal(f.Tensors[name]), "tensor %s mismatch after round-trip", name)
	}
}

func TestRead_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]*tensor.Tensor{
		"x": mustTensor(t, []float64{1, 2}, 2),
	}, nil))

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF // flip bits in the last data byte

	_, err := Read(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func rawFile(t *testing.T, header string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}

func TestRead_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header string
		data   []byte
		want   error
	}{
		{"not json", `{oops`, nil, ErrInvalidHeader},
		{"wrong dtype", `{"x":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`, make([]byte, 4), ErrUnsupportedDType},
		{"out of bounds", `{"x":{"dtype":"F64","shape":[2],"data_offsets":[0,16]}}`, make([]byte, 8), ErrInvalidHeader},
		{"overlap", `{"a":{"dtype":"F64","shape":[2],"data_offsets":[0,16]},"b":{"dtype":"F64","shape":[1],"data_offsets":[8,16]}}`, make([]byte, 16), ErrInvalidHeader},
		{"size mismatch", `{"x":{"dtype":"F64","shape":[3],"data_offsets":[0,16]}}`, make([]byte, 16), ErrInvalidHeader},
		{"element count overflows", `{"params":{"dtype":"F64","shape":[2305843009213693952],"data_offsets":[0,0]}}`, nil, ErrInvalidHeader},
		{"dims overflow together", `{"x":{"dtype":"F64","shape":[4294967296,4294967296],"data_offsets":[0,8]}}`, make([]byte, 8), ErrInvalidHeader},
		{"bad name", `{"../x":{"dtype":"F64","shape":[1],"data_offsets":[0,8]}}`, make([]byte, 8), ErrInvalidTensorName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(rawFile(t, tt.header, tt.data)))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRead_ValidationErrorDetails(t *testing.T) {
	header := `{"a":{"dtype":"F64","shape":[2],"data_offsets":[0,16]},"b":{"dtype":"F64","shape":[1],"data_offsets":[8,16]}}`
	_, err := Read(bytes.NewReader(rawFile(t, header, make([]byte, 16))))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "offset_overlap", verr.Type)
	assert.Equal(t, "a", verr.Tensor)
	assert.Equal(t, "b", verr.Tensor2)
}

func TestRead_HugeShapeIsSizeMismatch(t *testing.T) {
	header := `{"params":{"dtype":"F64","shape":[2305843009213693952],"data_offsets":[0,0]}}`
	_, err := Read(bytes.NewReader(rawFile(t, header, nil)))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "size_mismatch", verr.Type)
	assert.Equal(t, "params", verr.Tensor)
}

func TestSaveLoad_Params(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.safetensors")
	params := testParams(t)

	require.NoError(t, Save(path, Checkpoint{Params: params, Step: 42, Metadata: map[string]string{"model": "siamese"}}))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"params/encoder/bias", "params/encoder/weight", "params/heads/0"}, f.Names())
	assert.Equal(t, 10, CountParameters(f))

	_, err = uuid.Parse(f.Metadata[RunIDKey])
	require.NoError(t, err, "run_id must be a uuid")

	ck, err := Load(path, Checkpoint{Params: tree.ZerosLike(params)})
	require.NoError(t, err)
	assert.True(t, ck.Params.Equal(params))
	assert.Equal(t, 42, ck.Step)
	assert.Equal(t, "siamese", ck.Metadata["model"])
	assert.Nil(t, ck.State)
}

func TestSave_KeepsRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.safetensors")
	require.NoError(t, Save(path, Checkpoint{
		Params:   testParams(t),
		Metadata: map[string]string{RunIDKey: "run-7"},
	}))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "run-7", f.Metadata[RunIDKey])
}

// TestSaveLoad_OptimizerState resumes training from a checkpoint and checks
// it matches an uninterrupted run.
func TestSaveLoad_OptimizerState(t *testing.T) {
	params := testParams(t)
	cfg := optim.Config{Epochs: 2, StepsPerEpoch: 10, BaseRate: 0.05, Kind: schedule.KindCosine}

	grads := func(p *tree.Tree) *tree.Tree {
		g, err := tree.MapLeaves(p, func(x *tensor.Tensor) (*tensor.Tensor, error) {
			return tensor.Apply(x, func(v float64) float64 { return 2*v - 1 }), nil
		})
		require.NoError(t, err)
		return g
	}

	setup, err := optim.Initialize(params, cfg)
	require.NoError(t, err)
	full := optim.NewOptimizer(params, setup)
	for i := 0; i < 6; i++ {
		require.NoError(t, full.Step(grads(full.Params())))
	}

	setup, err = optim.Initialize(params, cfg)
	require.NoError(t, err)
	first := optim.NewOptimizer(params, setup)
	for i := 0; i < 3; i++ {
		require.NoError(t, first.Step(grads(first.Params())))
	}

	path := filepath.Join(t.TempDir(), "resume.safetensors")
	require.NoError(t, Save(path, Checkpoint{Params: first.Params(), State: first.State(), Step: first.GetTimestep()}))

	fresh, err := optim.Initialize(params, cfg)
	require.NoError(t, err)
	ck, err := Load(path, Checkpoint{Params: params, State: fresh.State})
	require.NoError(t, err)
	assert.Equal(t, 3, ck.Step)

	resumed := optim.NewOptimizer(params, fresh)
	resumed.Restore(ck.Params, ck.State, ck.Step)
	for i := 0; i < 3; i++ {
		require.NoError(t, resumed.Step(grads(resumed.Params())))
	}

	assert.True(t, resumed.Params().AllClose(full.Params(), 1e-15))
	assert.Equal(t, full.GetTimestep(), resumed.GetTimestep())
}

func TestLoad_StructureMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.safetensors")
	require.NoError(t, Save(path, Checkpoint{Params: testParams(t)}))

	other := tree.Map(map[string]*tree.Tree{"missing": tree.Leaf(tensor.Zeros(tensor.Shape{1}))})
	_, err := Load(path, Checkpoint{Params: other})
	require.ErrorIs(t, err, ErrMissingTensor)

	wrongShape := tree.Map(map[string]*tree.Tree{
		"encoder": tree.Map(map[string]*tree.Tree{
			"weight": tree.Leaf(tensor.Zeros(tensor.Shape{3, 2})),
			"bias":   tree.Leaf(tensor.Zeros(tensor.Shape{3})),
		}),
		"heads": tree.List(tree.Leaf(tensor.Zeros(tensor.Shape{1}))),
	})
	_, err = Load(path, Checkpoint{Params: wrongShape})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSave_CollidingPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.safetensors")
	params := tree.Map(map[string]*tree.Tree{
		"a/b": tree.Leaf(mustTensor(t, []float64{1}, 1)),
		"a": tree.Map(map[string]*tree.Tree{
			"b": tree.Leaf(mustTensor(t, []float64{2}, 1)),
		}),
	})

	err := Save(path, Checkpoint{Params: params})
	require.ErrorIs(t, err, ErrDuplicateTensor)
	assert.Contains(t, err.Error(), "params/a/b")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSave_SeparatorInKeyRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.safetensors")
	params := tree.Map(map[string]*tree.Tree{
		"enc/w": tree.Leaf(mustTensor(t, []float64{1, 2}, 2)),
		"dec":   tree.Leaf(mustTensor(t, []float64{3}, 1)),
	})
	require.NoError(t, Save(path, Checkpoint{Params: params}))

	ck, err := Load(path, Checkpoint{Params: tree.ZerosLike(params)})
	require.NoError(t, err)
	assert.True(t, ck.Params.Equal(params))
}

func TestSave_UnsupportedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.safetensors")
	err := Save(path, Checkpoint{Params: testParams(t), State: struct{ X int }{1}})
	require.ErrorIs(t, err, ErrUnsupportedState)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is written on encode failure")
}
