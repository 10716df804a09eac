// Package schedule implements learning-rate schedules.
//
// A Schedule maps a zero-based step count to a learning rate. The
// primitives here (Constant, Linear, CosineDecay, Join) compose into the
// warmup/constant/cosine schedules built by Build.
package schedule

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned for unsupported or out-of-range schedule
// configuration.
var ErrInvalidConfig = errors.New("unsupported configuration")

// Schedule returns the learning rate for a given step.
type Schedule func(step int) float64

// Constant returns a schedule that always yields value.
func Constant(value float64) Schedule {
	return func(int) float64 {
		return value
	}
}

// Linear interpolates from init to end over transitionSteps steps and holds
// end afterwards. Steps before zero yield init.
//
// A non-positive transitionSteps yields Constant(init).
func Linear(init, end float64, transitionSteps int) Schedule {
	if transitionSteps <= 0 {
		return Constant(init)
	}
	return func(step int) float64 {
		count := min(max(step, 0), transitionSteps)
		frac := 1 - float64(count)/float64(transitionSteps)
		return (init-end)*frac + end
	}
}

// CosineDecay decays init along a half cosine over decaySteps down to
// alpha*init, then holds that floor.
//
//	rate(step) = init * ((1-alpha) * 0.5 * (1 + cos(pi * step/decaySteps)) + alpha)
func CosineDecay(init float64, decaySteps int, alpha float64) (Schedule, error) {
	if decaySteps <= 0 {
		return nil, fmt.Errorf("%w: cosine decay requires positive decay steps, got %d", ErrInvalidConfig, decaySteps)
	}
	return func(step int) float64 {
		count := min(max(step, 0), decaySteps)
		cosine := 0.5 * (1 + math.Cos(math.Pi*float64(count)/float64(decaySteps)))
		return init * ((1-alpha)*cosine + alpha)
	}, nil
}

// Join runs schedules back to back. At step >= boundaries[i] the rate comes
// from schedules[i+1], evaluated at step - boundaries[i].
func Join(schedules []Schedule, boundaries []int) (Schedule, error) {
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%w: join requires at least one schedule", ErrInvalidConfig)
	}
	if len(schedules) != len(boundaries)+1 {
		return nil, fmt.Errorf("%w: join got %d schedules for %d boundaries", ErrInvalidConfig, len(schedules), len(boundaries))
	}
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] < boundaries[i-1] {
			return nil, fmt.Errorf("%w: join boundaries must be non-decreasing, got %v", ErrInvalidConfig, boundaries)
		}
	}

	// Callers may reuse their slices.
	ss := append([]Schedule(nil), schedules...)
	bs := append([]int(nil), boundaries...)
	return func(step int) float64 {
		rate := ss[0](step)
		for i, b := range bs {
			if step >= b {
				rate = ss[i+1](step - b)
			}
		}
		return rate
	}, nil
}

// Point is one sampled (step, rate) pair.
type Point struct {
	Step int
	Rate float64
}

// Sample evaluates s at every `every` steps from 0 through last, always
// including last itself.
func Sample(s Schedule, last, every int) []Point {
	if every <= 0 {
		every = 1
	}
	var out []Point
	for step := 0; step < last; step += every {
		out = append(out, Point{Step: step, Rate: s(step)})
	}
	if last >= 0 {
		out = append(out, Point{Step: last, Rate: s(last)})
	}
	return out
}
