package checkpoint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/siamics/siamics/internal/optim"
	"github.com/siamics/siamics/internal/tensor"
	"github.com/siamics/siamics/internal/tree"
)

// Section prefixes and reserved metadata keys.
const (
	ParamsPrefix = "params"
	StatePrefix  = "state"

	RunIDKey = "run_id"
	StepKey  = "step"
)

// Checkpoint is a snapshot of a training run.
type Checkpoint struct {
	Params   *tree.Tree
	State    optim.State // optional
	Step     int
	Metadata map[string]string
}

// Save writes ck to path.
//
// A random run_id is recorded when ck.Metadata does not carry one.
func Save(path string, ck Checkpoint) error {
	tensors, meta, err := encode(ck)
	if err != nil {
		return err
	}
	return WriteFile(path, tensors, meta)
}

// Load reads a checkpoint written by Save. The params tree and optimizer
// state of like give the expected structure; their values are ignored.
// like.State may be nil to skip restoring optimizer state.
func Load(path string, like Checkpoint) (Checkpoint, error) {
	f, err := ReadFile(path)
	if err != nil {
		return Checkpoint{}, err
	}
	return decode(f, like)
}

// CountParameters returns the number of scalar parameters stored in the
// params section of f.
func CountParameters(f *File) int {
	n := 0
	for name, t := range f.Tensors {
		if name == ParamsPrefix || strings.HasPrefix(name, ParamsPrefix+"/") {
			n += t.NumElements()
		}
	}
	return n
}

func encode(ck Checkpoint) (map[string]*tensor.Tensor, map[string]string, error) {
	if ck.Params == nil {
		return nil, nil, errors.New("checkpoint: nil params")
	}
	tensors := make(map[string]*tensor.Tensor)
	meta := make(map[string]string, len(ck.Metadata)+2)
	for k, v := range ck.Metadata {
		meta[k] = v
	}
	if meta[RunIDKey] == "" {
		meta[RunIDKey] = uuid.NewString()
	}
	meta[StepKey] = strconv.Itoa(ck.Step)

	if err := addTree(tensors, ParamsPrefix, ck.Params); err != nil {
		return nil, nil, err
	}
	if ck.State != nil {
		if err := encodeState(StatePrefix, ck.State, tensors, meta); err != nil {
			return nil, nil, err
		}
	}
	return tensors, meta, nil
}

func decode(f *File, like Checkpoint) (Checkpoint, error) {
	if like.Params == nil {
		return Checkpoint{}, errors.New("checkpoint: nil params template")
	}
	params, err := restoreTree(f, ParamsPrefix, like.Params)
	if err != nil {
		return Checkpoint{}, err
	}
	step, err := metaInt(f.Metadata, StepKey)
	if err != nil {
		return Checkpoint{}, err
	}

	ck := Checkpoint{Params: params, Step: step, Metadata: f.Metadata}
	if like.State != nil {
		ck.State, err = decodeState(StatePrefix, like.State, f)
		if err != nil {
			return Checkpoint{}, err
		}
	}
	return ck, nil
}

func join(prefix, name string) string {
	if name == "" {
		return prefix
	}
	return prefix + tree.PathSeparator + name
}

// addTree stores the leaves of t under prefix. Map keys containing the path
// separator can make two leaves share a name; that is an error.
func addTree(dst map[string]*tensor.Tensor, prefix string, t *tree.Tree) error {
	for _, e := range t.Flatten() {
		name := join(prefix, e.Path)
		if _, taken := dst[name]; taken {
			return fmt.Errorf("%w: %q", ErrDuplicateTensor, name)
		}
		dst[name] = e.Tensor
	}
	return nil
}

func restoreTree(f *File, prefix string, like *tree.Tree) (*tree.Tree, error) {
	entries := like.Flatten()
	leaves := make([]*tensor.Tensor, len(entries))
	for i, e := range entries {
		name := join(prefix, e.Path)
		t, ok := f.Tensors[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingTensor, name)
		}
		if !t.Shape().Equal(e.Tensor.Shape()) {
			return nil, fmt.Errorf("%w: %q is %v, want %v", ErrShapeMismatch, name, t.Shape(), e.Tensor.Shape())
		}
		leaves[i] = t
	}
	return like.Unflatten(leaves)
}

func metaInt(meta map[string]string, key string) (int, error) {
	s, ok := meta[key]
	if !ok {
		return 0, fmt.Errorf("%w: metadata %q missing", ErrInvalidHeader, key)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: metadata %q: %w", ErrInvalidHeader, key, err)
	}
	return n, nil
}

// encodeState flattens a (possibly chained) optimizer state. Tensors go to
// dst, counters to meta.
func encodeState(prefix string, s optim.State, dst map[string]*tensor.Tensor, meta map[string]string) error {
	switch st := s.(type) {
	case optim.EmptyState:
	case optim.ScheduleState:
		meta[join(prefix, "count")] = strconv.Itoa(st.Count)
	case optim.AdamState:
		meta[join(prefix, "count")] = strconv.Itoa(st.Count)
		if err := addTree(dst, join(prefix, "mu"), st.Mu); err != nil {
			return err
		}
		return addTree(dst, join(prefix, "nu"), st.Nu)
	case optim.TraceState:
		return addTree(dst, join(prefix, "momentum"), st.Momentum)
	case optim.ChainState:
		for i, inner := range st {
			if err := encodeState(join(prefix, strconv.Itoa(i)), inner, dst, meta); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedState, s)
	}
	return nil
}

// decodeState rebuilds a state with the shape of like from f.
func decodeState(prefix string, like optim.State, f *File) (optim.State, error) {
	switch st := like.(type) {
	case optim.EmptyState:
		return optim.EmptyState{}, nil
	case optim.ScheduleState:
		count, err := metaInt(f.Metadata, join(prefix, "count"))
		if err != nil {
			return nil, err
		}
		return optim.ScheduleState{Count: count}, nil
	case optim.AdamState:
		count, err := metaInt(f.Metadata, join(prefix, "count"))
		if err != nil {
			return nil, err
		}
		mu, err := restoreTree(f, join(prefix, "mu"), st.Mu)
		if err != nil {
			return nil, err
		}
		nu, err := restoreTree(f, join(prefix, "nu"), st.Nu)
		if err != nil {
			return nil, err
		}
		return optim.AdamState{Count: count, Mu: mu, Nu: nu}, nil
	case optim.TraceState:
		momentum, err := restoreTree(f, join(prefix, "momentum"), st.Momentum)
		if err != nil {
			return nil, err
		}
		return optim.TraceState{Momentum: momentum}, nil
	case optim.ChainState:
		out := make(optim.ChainState, len(st))
		for i, inner := range st {
			s, err := decodeState(join(prefix, strconv.Itoa(i)), inner, f)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedState, like)
	}
}
