package optim

import (
	"fmt"

	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tree"
)

// Optimizer owns a parameter tree and advances it one step per Step call.
//
// It is a convenience over the pure Transform API for simple training
// loops. An Optimizer is not safe for concurrent use.
//
// Example:
//
//	setup, _ := optim.Initialize(params, cfg)
//	opt := optim.NewOptimizer(params, setup)
//	for range setup.Plan.Total {
//	    if err := opt.Step(computeGradients(opt.Params())); err != nil {
//	        return err
//	    }
//	}
type Optimizer struct {
	params    *tree.Tree
	transform Transform
	state     State
	lr        schedule.Schedule
	t         int // Steps taken
}

// NewOptimizer wraps params with the transform, state and schedule of setup.
func NewOptimizer(params *tree.Tree, setup *Setup) *Optimizer {
	return &Optimizer{
		params:    params,
		transform: setup.Transform,
		state:     setup.State,
		lr:        setup.Schedule,
	}
}

// Step applies one update computed from grads.
//
// On error the optimizer is left unchanged.
func (o *Optimizer) Step(grads *tree.Tree) error {
	updates, state, err := o.transform.Update(grads, o.state, o.params)
	if err != nil {
		return fmt.Errorf("step %d: %w", o.t, err)
	}
	params, err := ApplyUpdates(o.params, updates)
	if err != nil {
		return fmt.Errorf("step %d: %w", o.t, err)
	}
	o.params, o.state = params, state
	o.t++
	return nil
}

// Params returns the current parameters.
func (o *Optimizer) Params() *tree.Tree {
	return o.params
}

// State returns the current transform state.
func (o *Optimizer) State() State {
	return o.state
}

// Restore replaces parameters, state and step counter, e.g. after loading a
// checkpoint.
func (o *Optimizer) Restore(params *tree.Tree, state State, timestep int) {
	o.params, o.state, o.t = params, state, timestep
}

// GetLR returns the learning rate the next Step will use.
//
// Useful for monitoring and logging.
func (o *Optimizer) GetLR() float64 {
	if o.lr == nil {
		return 0
	}
	return o.lr(o.t)
}

// GetTimestep returns the number of steps taken.
func (o *Optimizer) GetTimestep() int {
	return o.t
}
