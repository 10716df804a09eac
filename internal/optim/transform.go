package optim

import (
	"fmt"

	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tensor"
	"github.com/siamics/siamics/internal/tree"
)

// clipByGlobalNorm rescales updates whose global L2 norm exceeds maxNorm.
type clipByGlobalNorm struct {
	maxNorm float64
}

// ClipByGlobalNorm returns a transform that rescales the whole update tree
// so its global L2 norm does not exceed maxNorm:
//
//	norm = sqrt(sum over leaves of sum(g²))
//	g    = g                  if norm < maxNorm
//	g    = g * maxNorm/norm   otherwise
func ClipByGlobalNorm(maxNorm float64) Transform {
	return clipByGlobalNorm{maxNorm: maxNorm}
}

func (c clipByGlobalNorm) Init(*tree.Tree) (State, error) {
	if c.maxNorm <= 0 {
		return nil, fmt.Errorf("%w: clip norm must be positive, got %g", ErrInvalidConfig, c.maxNorm)
	}
	return EmptyState{}, nil
}

func (c clipByGlobalNorm) Update(updates *tree.Tree, state State, _ *tree.Tree) (*tree.Tree, State, error) {
	if _, err := stateAs[EmptyState](state, "clip by global norm"); err != nil {
		return nil, nil, err
	}
	norm := tree.GlobalNorm(updates)
	if norm < c.maxNorm {
		return updates, state, nil
	}
	return tree.Scale(updates, c.maxNorm/norm), state, nil
}

// ScheduleState counts the steps taken by ScaleBySchedule.
type ScheduleState struct {
	Count int
}

type scaleBySchedule struct {
	fn schedule.Schedule
}

// ScaleBySchedule multiplies updates by fn(count), where count is the number
// of updates applied so far (starting at 0).
func ScaleBySchedule(fn schedule.Schedule) Transform {
	return scaleBySchedule{fn: fn}
}

// ScaleByLearningRate multiplies updates by -lr(count), turning descent
// directions into parameter deltas.
func ScaleByLearningRate(lr schedule.Schedule) Transform {
	return scaleBySchedule{fn: func(step int) float64 {
		return -lr(step)
	}}
}

func (s scaleBySchedule) Init(*tree.Tree) (State, error) {
	return ScheduleState{}, nil
}

func (s scaleBySchedule) Update(updates *tree.Tree, state State, _ *tree.Tree) (*tree.Tree, State, error) {
	st, err := stateAs[ScheduleState](state, "scale by schedule")
	if err != nil {
		return nil, nil, err
	}
	out := tree.Scale(updates, s.fn(st.Count))
	return out, ScheduleState{Count: st.Count + 1}, nil
}

type addDecayedWeights struct {
	weightDecay float64
}

// AddDecayedWeights adds weightDecay * params to updates. This is the
// decoupled weight decay of AdamW.
func AddDecayedWeights(weightDecay float64) Transform {
	return addDecayedWeights{weightDecay: weightDecay}
}

func (a addDecayedWeights) Init(*tree.Tree) (State, error) {
	return EmptyState{}, nil
}

func (a addDecayedWeights) Update(updates *tree.Tree, state State, params *tree.Tree) (*tree.Tree, State, error) {
	if _, err := stateAs[EmptyState](state, "add decayed weights"); err != nil {
		return nil, nil, err
	}
	if a.weightDecay == 0 {
		return updates, state, nil
	}
	if params == nil {
		return nil, nil, ErrParamsRequired
	}
	out, err := tree.Map2(updates, params, func(u, p *tensor.Tensor) (*tensor.Tensor, error) {
		return tensor.AddScaled(u, a.weightDecay, p)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("add decayed weights: %w", err)
	}
	return out, state, nil
}

// ChainState holds one state per transform of a Chain, in order.
type ChainState []State

type chain []Transform

// Chain composes transforms left to right: the output updates of each
// transform are the input updates of the next.
func Chain(transforms ...Transform) Transform {
	return chain(append([]Transform(nil), transforms...))
}

func (c chain) Init(params *tree.Tree) (State, error) {
	states := make(ChainState, len(c))
	for i, t := range c {
		s, err := t.Init(params)
		if err != nil {
			return nil, err
		}
		states[i] = s
	}
	return states, nil
}

func (c chain) Update(updates *tree.Tree, state State, params *tree.Tree) (*tree.Tree, State, error) {
	states, err := stateAs[ChainState](state, "chain")
	if err != nil {
		return nil, nil, err
	}
	if len(states) != len(c) {
		return nil, nil, fmt.Errorf("%w: chain of %d transforms got %d states", ErrInvalidState, len(c), len(states))
	}

	next := make(ChainState, len(c))
	for i, t := range c {
		updates, next[i], err = t.Update(updates, states[i], params)
		if err != nil {
			return nil, nil, err
		}
	}
	return updates, next, nil
}
