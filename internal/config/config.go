// Package config loads training-run configuration files.
//
// Example file:
//
//	optimizer:
//	  kind: cosine
//	  epochs: 10
//	  steps_per_epoch: 500
//	  base_rate: 0.001
//	  clip_norm: 100
//	  weight_decay: 0.0001
//	schedule:
//	  warmup_cap: 2500
//	  warmup_init: 1.0e-7
//	  decay_floor: 0.1
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/siamics/siamics/internal/optim"
	"github.com/siamics/siamics/internal/schedule"
)

// ErrInvalidConfig aliases the schedule configuration error.
var ErrInvalidConfig = schedule.ErrInvalidConfig

// Optimizer is the optimizer section of a config file.
type Optimizer struct {
	Kind          string  `yaml:"kind"`
	Epochs        int     `yaml:"epochs"`
	StepsPerEpoch int     `yaml:"steps_per_epoch"`
	BaseRate      float64 `yaml:"base_rate"`
	ClipNorm      float64 `yaml:"clip_norm"`
	WeightDecay   float64 `yaml:"weight_decay"`
}

// Schedule is the optional schedule-shape section of a config file.
type Schedule struct {
	WarmupCap  *int     `yaml:"warmup_cap"`
	WarmupInit *float64 `yaml:"warmup_init"`
	DecayFloor *float64 `yaml:"decay_floor"`
}

// Config is a whole config file.
type Config struct {
	Optimizer Optimizer `yaml:"optimizer"`
	Schedule  Schedule  `yaml:"schedule"`
}

// Default returns the configuration used for unset fields.
func Default() Config {
	return Config{
		Optimizer: Optimizer{
			Kind:     string(schedule.KindCosine),
			ClipNorm: optim.DefaultClipNorm,
		},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: config paths come from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r on top of Default and validates the result.
// Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	o := c.Optimizer
	if _, err := schedule.ParseKind(o.Kind); err != nil {
		return err
	}
	if o.Epochs <= 0 {
		return fmt.Errorf("%w: optimizer.epochs must be positive, got %d", ErrInvalidConfig, o.Epochs)
	}
	if o.StepsPerEpoch <= 0 {
		return fmt.Errorf("%w: optimizer.steps_per_epoch must be positive, got %d", ErrInvalidConfig, o.StepsPerEpoch)
	}
	if o.BaseRate <= 0 {
		return fmt.Errorf("%w: optimizer.base_rate must be positive, got %g", ErrInvalidConfig, o.BaseRate)
	}
	if o.ClipNorm <= 0 {
		return fmt.Errorf("%w: optimizer.clip_norm must be positive, got %g", ErrInvalidConfig, o.ClipNorm)
	}
	s := c.Schedule
	if s.WarmupCap != nil && *s.WarmupCap < 0 {
		return fmt.Errorf("%w: schedule.warmup_cap must be non-negative, got %d", ErrInvalidConfig, *s.WarmupCap)
	}
	if s.WarmupInit != nil && *s.WarmupInit < 0 {
		return fmt.Errorf("%w: schedule.warmup_init must be non-negative, got %g", ErrInvalidConfig, *s.WarmupInit)
	}
	if s.DecayFloor != nil && *s.DecayFloor < 0 {
		return fmt.Errorf("%w: schedule.decay_floor must be non-negative, got %g", ErrInvalidConfig, *s.DecayFloor)
	}
	return nil
}

// ScheduleOptions returns the schedule shape. Unset fields keep their
// defaults; a value explicitly set to 0 is passed on as "none" (negative),
// since a zero schedule.Options field selects the default.
func (c Config) ScheduleOptions() schedule.Options {
	opts := schedule.DefaultOptions()
	if c.Schedule.WarmupCap != nil {
		opts.WarmupCap = explicitInt(*c.Schedule.WarmupCap)
	}
	if c.Schedule.WarmupInit != nil {
		opts.WarmupInit = explicitFloat(*c.Schedule.WarmupInit)
	}
	if c.Schedule.DecayFloor != nil {
		opts.DecayFloor = explicitFloat(*c.Schedule.DecayFloor)
	}
	return opts
}

func explicitInt(v int) int {
	if v == 0 {
		return -1
	}
	return v
}

func explicitFloat(v float64) float64 {
	if v == 0 {
		return -1
	}
	return v
}

// OptimConfig converts the file into an optim.Config.
func (c Config) OptimConfig() optim.Config {
	o := c.Optimizer
	return optim.Config{
		Epochs:        o.Epochs,
		StepsPerEpoch: o.StepsPerEpoch,
		BaseRate:      o.BaseRate,
		Kind:          schedule.Kind(o.Kind),
		ClipNorm:      o.ClipNorm,
		WeightDecay:   o.WeightDecay,
		Schedule:      c.ScheduleOptions(),
	}
}
