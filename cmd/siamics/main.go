// Package main provides the Siamics CLI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/siamics/siamics/internal/checkpoint"
	"github.com/siamics/siamics/internal/config"
	"github.com/siamics/siamics/internal/schedule"
)

const version = "v0.1.0-dev"

func main() {
	log.SetFlags(0)
	log.SetPrefix("siamics: ")

	if len(os.Args) < 2 {
		usage(os.Stdout)
		return
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "version":
		fmt.Printf("Siamics %s\n", version)
	case "plan":
		err = runPlan(os.Stdout, args)
	case "schedule":
		err = runSchedule(os.Stdout, args)
	case "count":
		err = runCount(os.Stdout, args)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		usage(os.Stderr)
		log.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Siamics - optimizer and learning-rate schedule toolkit")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                 Show version")
	fmt.Fprintln(w, "  plan [flags]            Show warmup/constant/cosine phase lengths")
	fmt.Fprintln(w, "  schedule [flags]        Print the learning rate every N steps")
	fmt.Fprintln(w, "  count FILE.safetensors  Count parameters stored in a checkpoint")
}

// runFlags are shared by plan and schedule.
type runFlags struct {
	configPath string
	kind       string
	epochs     int
	steps      int
	lr         float64
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML config file (overrides the other flags)")
	fs.StringVar(&f.kind, "kind", string(schedule.KindCosine), "Schedule kind: cosine or const")
	fs.IntVar(&f.epochs, "epochs", 10, "Number of epochs")
	fs.IntVar(&f.steps, "steps", 1000, "Steps per epoch")
	fs.Float64Var(&f.lr, "lr", 1e-3, "Base learning rate")
}

func (f *runFlags) load() (config.Config, error) {
	if f.configPath != "" {
		return config.Load(f.configPath)
	}
	cfg := config.Default()
	cfg.Optimizer.Kind = f.kind
	cfg.Optimizer.Epochs = f.epochs
	cfg.Optimizer.StepsPerEpoch = f.steps
	cfg.Optimizer.BaseRate = f.lr
	return cfg, cfg.Validate()
}

func runPlan(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	var rf runFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := rf.load()
	if err != nil {
		return err
	}
	o := cfg.Optimizer
	plan, err := cfg.ScheduleOptions().Plan(o.Epochs, o.StepsPerEpoch)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Kind:     %s\n", o.Kind)
	fmt.Fprintf(w, "Total:    %d\n", plan.Total)
	fmt.Fprintf(w, "Warmup:   %d\n", plan.Warmup)
	if schedule.Kind(o.Kind) == schedule.KindCosine {
		fmt.Fprintf(w, "Constant: %d\n", plan.Constant)
		fmt.Fprintf(w, "Cosine:   %d\n", plan.Cosine)
	}
	return nil
}

func runSchedule(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	var rf runFlags
	rf.register(fs)
	every := fs.Int("every", 100, "Sampling interval in steps")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *every <= 0 {
		return fmt.Errorf("-every must be positive, got %d", *every)
	}

	cfg, err := rf.load()
	if err != nil {
		return err
	}
	o := cfg.Optimizer
	lr, err := schedule.BuildWithOptions(schedule.Kind(o.Kind), o.Epochs, o.BaseRate, o.StepsPerEpoch, cfg.ScheduleOptions())
	if err != nil {
		return err
	}

	for _, p := range schedule.Sample(lr, o.Epochs*o.StepsPerEpoch, *every) {
		fmt.Fprintf(w, "%d\t%.6g\n", p.Step, p.Rate)
	}
	return nil
}

func runCount(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: siamics count FILE.safetensors")
	}
	f, err := checkpoint.ReadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d\n", checkpoint.CountParameters(f))
	return nil
}
