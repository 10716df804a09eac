package schedule

import (
	"fmt"
	"math"
)

// Kind selects a learning-rate schedule shape.
type Kind string

// Supported schedule kinds.
const (
	KindCosine Kind = "cosine" // warmup, constant, then cosine decay
	KindConst  Kind = "const"  // warmup, then constant
)

// ParseKind validates a schedule kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCosine, KindConst:
		return k, nil
	default:
		return "", fmt.Errorf("%w: invalid scheduler type %q", ErrInvalidConfig, s)
	}
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Options holds the fixed shape parameters of the built-in schedules.
//
// A zero field selects its default. A negative field selects zero: no
// warmup, a warmup ramp starting at 0, or decay all the way to 0.
type Options struct {
	WarmupCap  int     // Upper bound on warmup steps (default: 2500)
	WarmupInit float64 // Rate at step 0 of the warmup ramp (default: 1e-7)
	DecayFloor float64 // Final cosine rate as a fraction of the base rate (default: 0.1)
}

// DefaultOptions returns the standard schedule shape.
func DefaultOptions() Options {
	return Options{
		WarmupCap:  2500,
		WarmupInit: 1e-7,
		DecayFloor: 0.1,
	}
}

// resolve applies the zero and negative field rules.
func (o Options) resolve() Options {
	d := DefaultOptions()
	switch {
	case o.WarmupCap == 0:
		o.WarmupCap = d.WarmupCap
	case o.WarmupCap < 0:
		o.WarmupCap = 0
	}
	switch {
	case o.WarmupInit == 0:
		o.WarmupInit = d.WarmupInit
	case o.WarmupInit < 0:
		o.WarmupInit = 0
	}
	switch {
	case o.DecayFloor == 0:
		o.DecayFloor = d.DecayFloor
	case o.DecayFloor < 0:
		o.DecayFloor = 0
	}
	return o
}

// Plan splits a training run into schedule phases.
type Plan struct {
	Total    int // epochs * steps per epoch
	Warmup   int // min(WarmupCap, Total/5)
	Constant int // max(0, Total/2 - Warmup)
	Cosine   int // max(0, Total - (Warmup + Constant))
}

// NewPlan computes the phase lengths for a run with the default warmup cap.
func NewPlan(epochs, stepsPerEpoch int) (Plan, error) {
	return DefaultOptions().Plan(epochs, stepsPerEpoch)
}

// Plan computes the phase lengths for a run using o.WarmupCap.
func (o Options) Plan(epochs, stepsPerEpoch int) (Plan, error) {
	return o.resolve().plan(epochs, stepsPerEpoch)
}

func (o Options) plan(epochs, stepsPerEpoch int) (Plan, error) {
	if epochs <= 0 {
		return Plan{}, fmt.Errorf("%w: epochs must be positive, got %d", ErrInvalidConfig, epochs)
	}
	if stepsPerEpoch <= 0 {
		return Plan{}, fmt.Errorf("%w: steps per epoch must be positive, got %d", ErrInvalidConfig, stepsPerEpoch)
	}
	if epochs > math.MaxInt/stepsPerEpoch {
		return Plan{}, fmt.Errorf("%w: %d epochs of %d steps overflows the step counter", ErrInvalidConfig, epochs, stepsPerEpoch)
	}

	total := epochs * stepsPerEpoch
	warmup := min(o.WarmupCap, total/5)
	constant := max(0, total/2-warmup)
	return Plan{
		Total:    total,
		Warmup:   warmup,
		Constant: constant,
		Cosine:   max(0, total-(warmup+constant)),
	}, nil
}

// String implements fmt.Stringer.
func (p Plan) String() string {
	return fmt.Sprintf("total=%d warmup=%d constant=%d cosine=%d", p.Total, p.Warmup, p.Constant, p.Cosine)
}

// Build returns the schedule of the given kind with DefaultOptions.
//
// Example:
//
//	lr, err := schedule.Build(schedule.KindCosine, 10, 1e-3, 500)
//	if err != nil {
//	    return err
//	}
//	rate := lr(step)
func Build(kind Kind, epochs int, baseRate float64, stepsPerEpoch int) (Schedule, error) {
	return BuildWithOptions(kind, epochs, baseRate, stepsPerEpoch, DefaultOptions())
}

// BuildWithOptions is Build with an explicit schedule shape.
func BuildWithOptions(kind Kind, epochs int, baseRate float64, stepsPerEpoch int, opts Options) (Schedule, error) {
	switch kind {
	case KindCosine:
		return Cosine(epochs, baseRate, stepsPerEpoch, opts)
	case KindConst:
		return Const(epochs, baseRate, stepsPerEpoch, opts)
	default:
		return nil, fmt.Errorf("%w: invalid scheduler type %q", ErrInvalidConfig, string(kind))
	}
}

// Cosine warms up linearly to baseRate, holds it until half of the run, then
// decays along a cosine to opts.DecayFloor*baseRate at the final step.
func Cosine(epochs int, baseRate float64, stepsPerEpoch int, opts Options) (Schedule, error) {
	opts = opts.resolve()
	plan, err := opts.plan(epochs, stepsPerEpoch)
	if err != nil {
		return nil, err
	}
	decay, err := CosineDecay(baseRate, plan.Cosine, opts.DecayFloor)
	if err != nil {
		return nil, err
	}
	return Join(
		[]Schedule{
			Linear(opts.WarmupInit, baseRate, plan.Warmup),
			Constant(baseRate),
			decay,
		},
		[]int{plan.Warmup, plan.Warmup + plan.Constant},
	)
}

// Const warms up linearly to baseRate and holds it for the rest of the run.
func Const(epochs int, baseRate float64, stepsPerEpoch int, opts Options) (Schedule, error) {
	opts = opts.resolve()
	plan, err := opts.plan(epochs, stepsPerEpoch)
	if err != nil {
		return nil, err
	}
	return Join(
		[]Schedule{
			Linear(opts.WarmupInit, baseRate, plan.Warmup),
			Constant(baseRate),
		},
		[]int{plan.Warmup},
	)
}
