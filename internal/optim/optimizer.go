// Package optim implements composable gradient transformations for training
// neural networks.
//
// This package provides:
//   - Transform interface: Init/Update pair threading an explicit State
//   - ClipByGlobalNorm, ScaleByAdam, AddDecayedWeights, ScaleBySchedule, Trace
//   - Chain: sequential composition of transforms
//   - AdamW and SGD: the usual optimizers expressed as chains
//   - Initialize: global-norm clipping followed by AdamW on a warmup/cosine schedule
//   - Optimizer: a stateful wrapper for simple training loops
//
// Transforms are pure: Update never mutates its arguments and returns fresh
// updates and a fresh state, so one transform may serve independent runs
// concurrently.
//
// Example usage:
//
//	setup, err := optim.Initialize(params, optim.Config{
//	    Epochs:        10,
//	    StepsPerEpoch: 500,
//	    BaseRate:      1e-3,
//	    Kind:          schedule.KindCosine,
//	})
//	if err != nil {
//	    return err
//	}
//
//	state := setup.State
//	for range total {
//	    grads := computeGradients(params, batch)
//
//	    updates, next, err := setup.Transform.Update(grads, state, params)
//	    if err != nil {
//	        return err
//	    }
//	    state = next
//	    params, err = optim.ApplyUpdates(params, updates)
//	}
package optim

import (
	"errors"
	"fmt"

	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tree"
)

// Common errors.
var (
	// ErrInvalidConfig is the schedule package's configuration error, so a
	// single errors.Is check covers both packages.
	ErrInvalidConfig = schedule.ErrInvalidConfig

	ErrInvalidState   = errors.New("optim: invalid optimizer state")
	ErrParamsRequired = errors.New("optim: transform requires params")
)

// State is the opaque per-transform state threaded through Update calls.
//
// Concrete states are EmptyState, ScheduleState, AdamState, TraceState and
// ChainState.
type State any

// Transform is a gradient transformation.
//
// All transforms must implement:
//   - Init: Build the initial state from the parameter tree's structure
//   - Update: Map incoming updates (gradients for the first transform of a
//     chain) to outgoing updates and the next state
type Transform interface {
	// Init returns the initial state for params.
	Init(params *tree.Tree) (State, error)

	// Update transforms updates given the current state.
	//
	// params may be nil for transforms that do not read them.
	Update(updates *tree.Tree, state State, params *tree.Tree) (*tree.Tree, State, error)
}

// EmptyState is the state of stateless transforms.
type EmptyState struct{}

// ApplyUpdates returns params + updates.
func ApplyUpdates(params, updates *tree.Tree) (*tree.Tree, error) {
	out, err := tree.Add(params, updates)
	if err != nil {
		return nil, fmt.Errorf("apply updates: %w", err)
	}
	return out, nil
}

func stateAs[S State](state State, transform string) (S, error) {
	s, ok := state.(S)
	if !ok {
		var zero S
		return zero, fmt.Errorf("%w: %s got %T, want %T", ErrInvalidState, transform, state, zero)
	}
	return s, nil
}
