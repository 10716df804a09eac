// Copyright 2026 The Siamics Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package schedule provides learning-rate schedules.
//
// # Overview
//
// Primitives:
//   - Constant, Linear, CosineDecay
//   - Join: run schedules back to back at step boundaries
//
// Built-in shapes, selected by Kind:
//   - KindCosine: linear warmup, constant until half the run, cosine decay to 0.1x
//   - KindConst: linear warmup, then constant
//
// # Basic Usage
//
//	lr, err := schedule.Build(schedule.KindCosine, epochs, 1e-3, stepsPerEpoch)
//	if err != nil {
//	    return err // wraps schedule.ErrInvalidConfig
//	}
//	fmt.Println(lr(0), lr(2500), lr(epochs*stepsPerEpoch))
package schedule

import (
	"github.com/siamics/siamics/internal/schedule"
)

// Schedule returns the learning rate for a given step.
type Schedule = schedule.Schedule

// Kind selects a learning-rate schedule shape.
type Kind = schedule.Kind

// Options holds the fixed shape parameters of the built-in schedules.
type Options = schedule.Options

// Plan splits a training run into schedule phases.
type Plan = schedule.Plan

// Point is one sampled (step, rate) pair.
type Point = schedule.Point

// Supported schedule kinds.
const (
	KindCosine = schedule.KindCosine
	KindConst  = schedule.KindConst
)

// ErrInvalidConfig is returned for unsupported or out-of-range configuration.
var ErrInvalidConfig = schedule.ErrInvalidConfig

// Constant returns a schedule that always yields value.
func Constant(value float64) Schedule {
	return schedule.Constant(value)
}

// Linear interpolates from init to end over transitionSteps steps.
func Linear(init, end float64, transitionSteps int) Schedule {
	return schedule.Linear(init, end, transitionSteps)
}

// CosineDecay decays init along a half cosine to alpha*init over decaySteps.
func CosineDecay(init float64, decaySteps int, alpha float64) (Schedule, error) {
	return schedule.CosineDecay(init, decaySteps, alpha)
}

// Join runs schedules back to back at the given boundaries.
func Join(schedules []Schedule, boundaries []int) (Schedule, error) {
	return schedule.Join(schedules, boundaries)
}

// ParseKind validates a schedule kind name.
func ParseKind(s string) (Kind, error) {
	return schedule.ParseKind(s)
}

// DefaultOptions returns the standard schedule shape.
func DefaultOptions() Options {
	return schedule.DefaultOptions()
}

// NewPlan computes the phase lengths for a run.
func NewPlan(epochs, stepsPerEpoch int) (Plan, error) {
	return schedule.NewPlan(epochs, stepsPerEpoch)
}

// Build returns the schedule of the given kind.
func Build(kind Kind, epochs int, baseRate float64, stepsPerEpoch int) (Schedule, error) {
	return schedule.Build(kind, epochs, baseRate, stepsPerEpoch)
}

// BuildWithOptions is Build with an explicit schedule shape.
func BuildWithOptions(kind Kind, epochs int, baseRate float64, stepsPerEpoch int, opts Options) (Schedule, error) {
	return schedule.BuildWithOptions(kind, epochs, baseRate, stepsPerEpoch, opts)
}

// Sample evaluates s every `every` steps from 0 through last.
func Sample(s Schedule, last, every int) []Point {
	return schedule.Sample(s, last, every)
}
