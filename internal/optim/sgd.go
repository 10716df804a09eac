package optim

import (
	"fmt"

	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tensor"
	"github.com/siamics/siamics/internal/tree"
)

// TraceState holds the momentum buffer of Trace.
type TraceState struct {
	Momentum *tree.Tree
}

type trace struct {
	decay float64
}

// Trace accumulates a momentum buffer:
//
//	velocity = decay * velocity + g
//	u        = velocity
func Trace(decay float64) Transform {
	return trace{decay: decay}
}

func (t trace) Init(params *tree.Tree) (State, error) {
	if params == nil {
		return nil, ErrParamsRequired
	}
	if t.decay < 0 || t.decay >= 1 {
		return nil, fmt.Errorf("%w: momentum must be in [0, 1), got %g", ErrInvalidConfig, t.decay)
	}
	return TraceState{Momentum: tree.ZerosLike(params)}, nil
}

func (t trace) Update(updates *tree.Tree, state State, _ *tree.Tree) (*tree.Tree, State, error) {
	st, err := stateAs[TraceState](state, "trace")
	if err != nil {
		return nil, nil, err
	}
	if st.Momentum == nil {
		return nil, nil, fmt.Errorf("%w: momentum not initialized", ErrInvalidState)
	}
	velocity, err := tree.Map2(st.Momentum, updates, func(v, g *tensor.Tensor) (*tensor.Tensor, error) {
		return tensor.AddScaled(g, t.decay, v)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("trace: %w", err)
	}
	return velocity, TraceState{Momentum: velocity}, nil
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// SGD returns stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
func SGD(lr schedule.Schedule, config SGDConfig) Transform {
	if config.Momentum == 0 {
		return ScaleByLearningRate(lr)
	}
	return Chain(Trace(config.Momentum), ScaleByLearningRate(lr))
}
