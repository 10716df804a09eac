package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siamics/siamics/internal/checkpoint"
	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tensor"
	"github.com/siamics/siamics/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPlan(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runPlan(&out, []string{"-epochs", "10", "-steps", "1000"}))

	got := out.String()
	assert.Contains(t, got, "Total:    10000")
	assert.Contains(t, got, "Warmup:   2000")
	assert.Contains(t, got, "Constant: 3000")
	assert.Contains(t, got, "Cosine:   5000")
}

func TestRunPlan_Const(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runPlan(&out, []string{"-kind", "const", "-epochs", "1", "-steps", "100"}))

	got := out.String()
	assert.Contains(t, got, "Warmup:   20")
	assert.NotContains(t, got, "Cosine")
}

func TestRunPlan_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	yml := "optimizer:\n  kind: cosine\n  epochs: 100\n  steps_per_epoch: 1000\n  base_rate: 0.001\nschedule:\n  warmup_cap: 500\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	var out bytes.Buffer
	require.NoError(t, runPlan(&out, []string{"-config", path}))
	assert.Contains(t, out.String(), "Warmup:   500")
	assert.Contains(t, out.String(), "Constant: 49500")
}

func TestRunPlan_Invalid(t *testing.T) {
	var out bytes.Buffer
	err := runPlan(&out, []string{"-kind", "linear"})
	require.ErrorIs(t, err, schedule.ErrInvalidConfig)
}

func TestRunSchedule(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runSchedule(&out, []string{"-kind", "const", "-epochs", "1", "-steps", "10", "-lr", "0.5", "-every", "4"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0\t1e-07", lines[0])
	assert.Equal(t, "4\t0.5", lines[1])
	assert.Equal(t, "10\t0.5", lines[3])
}

func TestRunSchedule_InvalidEvery(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, runSchedule(&out, []string{"-every", "0"}))
}

func TestRunCount(t *testing.T) {
	w, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "ck.safetensors")
	require.NoError(t, checkpoint.Save(path, checkpoint.Checkpoint{
		Params: tree.Map(map[string]*tree.Tree{"w": tree.Leaf(w)}),
	}))

	var out bytes.Buffer
	require.NoError(t, runCount(&out, []string{path}))
	assert.Equal(t, "6\n", out.String())

	require.Error(t, runCount(&out, nil))
}

func TestRunCount_MalformedHeader(t *testing.T) {
	header := `{"params":{"dtype":"F64","shape":[2305843009213693952],"data_offsets":[0,0]}}`
	var raw bytes.Buffer
	require.NoError(t, binary.Write(&raw, binary.LittleEndian, uint64(len(header))))
	raw.WriteString(header)
	path := filepath.Join(t.TempDir(), "bad.safetensors")
	require.NoError(t, os.WriteFile(path, raw.Bytes(), 0o600))

	var out bytes.Buffer
	err := runCount(&out, []string{path})
	require.ErrorIs(t, err, checkpoint.ErrInvalidHeader)
	assert.Empty(t, out.String())
}
