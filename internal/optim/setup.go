package optim

import (
	"fmt"

	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tree"
)

// DefaultClipNorm is the global gradient norm limit used when Config.ClipNorm is unset.
const DefaultClipNorm = 100.0

// Config describes the optimizer for one training run.
type Config struct {
	Epochs        int           // Number of training epochs
	StepsPerEpoch int           // Optimizer steps per epoch
	BaseRate      float64       // Peak learning rate
	Kind          schedule.Kind // Schedule shape: cosine or const
	ClipNorm      float64       // Maximum global gradient norm (default: 100)

	// WeightDecay is AdamW's decoupled weight decay (default: 1e-4).
	WeightDecay float64

	// Schedule overrides the schedule shape field by field. Zero fields
	// take their schedule.DefaultOptions value, negative fields mean zero.
	Schedule schedule.Options
}

func (c Config) withDefaults() Config {
	if c.ClipNorm <= 0 {
		c.ClipNorm = DefaultClipNorm
	}
	return c
}

// Setup is everything Initialize produces for a training run.
type Setup struct {
	Transform Transform         // Clip then AdamW
	State     State             // Initial state for Transform
	Schedule  schedule.Schedule // Learning rate per step, for logging
	Plan      schedule.Plan     // Phase lengths of Schedule
}

// Initialize builds the optimizer pipeline for params:
//
//	Chain(ClipByGlobalNorm(cfg.ClipNorm), AdamW(schedule))
//
// where schedule is selected by cfg.Kind. The returned state is seeded from
// params' structure.
//
// Returns an error wrapping ErrInvalidConfig for an unknown schedule kind or
// non-positive epochs, steps, or base rate.
func Initialize(params *tree.Tree, cfg Config) (*Setup, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseRate <= 0 {
		return nil, fmt.Errorf("%w: base rate must be positive, got %g", ErrInvalidConfig, cfg.BaseRate)
	}

	lr, err := schedule.BuildWithOptions(cfg.Kind, cfg.Epochs, cfg.BaseRate, cfg.StepsPerEpoch, cfg.Schedule)
	if err != nil {
		return nil, err
	}
	plan, err := cfg.Schedule.Plan(cfg.Epochs, cfg.StepsPerEpoch)
	if err != nil {
		return nil, err
	}

	transform := Chain(
		ClipByGlobalNorm(cfg.ClipNorm),
		AdamW(lr, AdamWConfig{WeightDecay: cfg.WeightDecay}),
	)
	state, err := transform.Init(params)
	if err != nil {
		return nil, fmt.Errorf("init optimizer: %w", err)
	}

	return &Setup{
		Transform: transform,
		State:     state,
		Schedule:  lr,
		Plan:      plan,
	}, nil
}

// InitOptimizer is Initialize in positional form. A non-positive clipNorm
// selects DefaultClipNorm.
func InitOptimizer(params *tree.Tree, epochs, stepsPerEpoch int, baseRate float64, kind schedule.Kind, clipNorm float64) (Transform, State, schedule.Schedule, error) {
	setup, err := Initialize(params, Config{
		Epochs:        epochs,
		StepsPerEpoch: stepsPerEpoch,
		BaseRate:      baseRate,
		Kind:          kind,
		ClipNorm:      clipNorm,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return setup.Transform, setup.State, setup.Schedule, nil
}
