// Copyright 2026 The Siamics Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides gradient transformations and optimizer setup for
// training neural networks.
//
// # Overview
//
// This package contains:
//   - Transform interface: Init/Update over parameter trees with explicit State
//   - ClipByGlobalNorm, ScaleByAdam, AddDecayedWeights, ScaleBySchedule, Trace, Chain
//   - AdamW and SGD built from those transforms
//   - Initialize: gradient clipping followed by AdamW on a warmup/cosine schedule
//   - AverageGradients and CountParameters helpers
//
// # Basic Usage
//
//	import (
//	    "github.com/siamics/siamics/optim"
//	    "github.com/siamics/siamics/schedule"
//	)
//
//	func train(params *tree.Tree) error {
//	    setup, err := optim.Initialize(params, optim.Config{
//	        Epochs:        10,
//	        StepsPerEpoch: 500,
//	        BaseRate:      1e-3,
//	        Kind:          schedule.KindCosine,
//	    })
//	    if err != nil {
//	        return err
//	    }
//
//	    opt := optim.NewOptimizer(params, setup)
//	    for range setup.Plan.Total {
//	        grads := computeGradients(opt.Params())
//	        if err := opt.Step(grads); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	}
//
// # Gradient Accumulation
//
//	micro := make([]*tree.Tree, 0, accumSteps)
//	for _, batch := range batches {
//	    micro = append(micro, computeGradients(params, batch))
//	}
//	grads, err := optim.AverageGradients(micro)
//
// # Functional Loop
//
//	state := setup.State
//	for range setup.Plan.Total {
//	    updates, next, err := setup.Transform.Update(grads, state, params)
//	    if err != nil {
//	        return err
//	    }
//	    state = next
//	    if params, err = optim.ApplyUpdates(params, updates); err != nil {
//	        return err
//	    }
//	}
package optim
