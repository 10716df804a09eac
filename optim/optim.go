// Copyright 2026 The Siamics Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/siamics/siamics/internal/optim"
	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tree"
)

// Transform is a gradient transformation.
type Transform = optim.Transform

// State is the opaque per-transform state threaded through Update calls.
type State = optim.State

// State types.
type (
	EmptyState    = optim.EmptyState
	ScheduleState = optim.ScheduleState
	AdamState     = optim.AdamState
	TraceState    = optim.TraceState
	ChainState    = optim.ChainState
)

// Configuration types.
type (
	Config      = optim.Config
	AdamConfig  = optim.AdamConfig
	AdamWConfig = optim.AdamWConfig
	SGDConfig   = optim.SGDConfig
)

// Setup is everything Initialize produces for a training run.
type Setup = optim.Setup

// Optimizer owns a parameter tree and advances it one step per Step call.
type Optimizer = optim.Optimizer

// Defaults.
const (
	DefaultClipNorm    = optim.DefaultClipNorm
	DefaultWeightDecay = optim.DefaultWeightDecay
)

// Common errors.
var (
	ErrInvalidConfig  = optim.ErrInvalidConfig
	ErrInvalidState   = optim.ErrInvalidState
	ErrParamsRequired = optim.ErrParamsRequired
)

// Optimizer setup

// Initialize builds Chain(ClipByGlobalNorm(cfg.ClipNorm), AdamW(schedule))
// for params and returns it with its initial state and schedule.
//
// Example:
//
//	setup, err := optim.Initialize(params, optim.Config{
//	    Epochs:        10,
//	    StepsPerEpoch: 500,
//	    BaseRate:      1e-3,
//	    Kind:          schedule.KindCosine,
//	    ClipNorm:      1.0,
//	})
func Initialize(params *tree.Tree, cfg Config) (*Setup, error) {
	return optim.Initialize(params, cfg)
}

// InitOptimizer is Initialize in positional form. A non-positive clipNorm
// selects DefaultClipNorm.
func InitOptimizer(params *tree.Tree, epochs, stepsPerEpoch int, baseRate float64, kind schedule.Kind, clipNorm float64) (Transform, State, schedule.Schedule, error) {
	return optim.InitOptimizer(params, epochs, stepsPerEpoch, baseRate, kind, clipNorm)
}

// NewOptimizer wraps params with the transform, state and schedule of setup.
func NewOptimizer(params *tree.Tree, setup *Setup) *Optimizer {
	return optim.NewOptimizer(params, setup)
}

// Transforms

// ClipByGlobalNorm rescales updates so their global L2 norm is at most maxNorm.
func ClipByGlobalNorm(maxNorm float64) Transform {
	return optim.ClipByGlobalNorm(maxNorm)
}

// ScaleByAdam rescales updates by bias-corrected Adam moment estimates.
func ScaleByAdam(config AdamConfig) Transform {
	return optim.ScaleByAdam(config)
}

// AddDecayedWeights adds weightDecay * params to updates.
func AddDecayedWeights(weightDecay float64) Transform {
	return optim.AddDecayedWeights(weightDecay)
}

// ScaleBySchedule multiplies updates by fn(count).
func ScaleBySchedule(fn schedule.Schedule) Transform {
	return optim.ScaleBySchedule(fn)
}

// ScaleByLearningRate multiplies updates by -lr(count).
func ScaleByLearningRate(lr schedule.Schedule) Transform {
	return optim.ScaleByLearningRate(lr)
}

// Trace accumulates a momentum buffer.
func Trace(decay float64) Transform {
	return optim.Trace(decay)
}

// Chain composes transforms left to right.
func Chain(transforms ...Transform) Transform {
	return optim.Chain(transforms...)
}

// AdamW returns Adam with decoupled weight decay.
//
// Example:
//
//	lr, _ := schedule.Build(schedule.KindConst, 5, 3e-4, 100)
//	adamw := optim.AdamW(lr, optim.AdamWConfig{WeightDecay: 0.01})
func AdamW(lr schedule.Schedule, config AdamWConfig) Transform {
	return optim.AdamW(lr, config)
}

// SGD returns stochastic gradient descent with optional momentum.
//
// Example:
//
//	sgd := optim.SGD(schedule.Constant(0.01), optim.SGDConfig{Momentum: 0.9})
func SGD(lr schedule.Schedule, config SGDConfig) Transform {
	return optim.SGD(lr, config)
}

// Tree helpers

// ApplyUpdates returns params + updates.
func ApplyUpdates(params, updates *tree.Tree) (*tree.Tree, error) {
	return optim.ApplyUpdates(params, updates)
}

// AverageGradients returns the leafwise mean of gradient trees.
func AverageGradients(grads []*tree.Tree) (*tree.Tree, error) {
	return optim.AverageGradients(grads)
}

// CountParameters returns the total number of scalar parameters in params.
func CountParameters(params *tree.Tree) int {
	return optim.CountParameters(params)
}
