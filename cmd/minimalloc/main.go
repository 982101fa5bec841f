// Command minimalloc solves a static memory allocation problem supplied as
// CSV and writes the assigned offsets back out as CSV.
//
// Usage:
//
//	minimalloc -input model.csv -capacity 1048576 -output model.out.csv
//
// Defaults for capacity, timeout and validation may also be supplied in a
// YAML config file (-config); explicit flags win over the file. Exit codes:
// 0 solved, 1 usage or problem error, 2 infeasible, 3 timeout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/gitrdm/minimalloc/pkg/minimalloc"
)

// Exit codes.
const (
	exitSolved = 0
	exitUsage  = 1
	exitNoFit  = 2
	exitBudget = 3
)

// config carries file-supplied defaults for the solve flags. The timeout
// is a duration string such as "30s".
type config struct {
	Capacity int64  `yaml:"capacity"`
	Timeout  string `yaml:"timeout"`
	Validate bool   `yaml:"validate"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		inputPath  = flag.String("input", "", "problem CSV file (\"-\" for stdin)")
		outputPath = flag.String("output", "-", "solution CSV file (\"-\" for stdout)")
		capacity   = flag.Int64("capacity", 0, "memory capacity in bytes")
		timeout    = flag.Duration("timeout", 0, "wall-clock budget (0 = none)")
		validate   = flag.Bool("validate", false, "re-validate the solution before writing it")
		configPath = flag.String("config", "", "YAML file with defaults for capacity/timeout/validate")
	)
	klog.InitFlags(nil)
	flag.Parse()

	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "minimalloc:", err)
			return exitUsage
		}
		if err := applyDefaults(cfg, capacity, timeout, validate); err != nil {
			fmt.Fprintln(os.Stderr, "minimalloc:", err)
			return exitUsage
		}
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "minimalloc: -input is required")
		return exitUsage
	}
	if *capacity <= 0 {
		fmt.Fprintln(os.Stderr, "minimalloc: -capacity must be positive")
		return exitUsage
	}

	problem, err := readProblem(*inputPath, *capacity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minimalloc:", err)
		return exitUsage
	}

	opts := minimalloc.DefaultOptions()
	opts.Timeout = *timeout
	opts.ValidateResult = *validate

	solver := minimalloc.NewSolver(problem, opts)
	solution, err := solver.Solve(context.Background())
	stats := solver.Stats()
	klog.V(1).Infof("search: %d nodes, %d placements, %d backtracks, %d components, %v",
		stats.Nodes, stats.Placements, stats.Backtracks, stats.Components, stats.Elapsed)
	switch {
	case errors.Is(err, minimalloc.ErrInfeasible):
		fmt.Fprintf(os.Stderr, "minimalloc: no packing fits within capacity %d\n", *capacity)
		return exitNoFit
	case errors.Is(err, minimalloc.ErrTimeout):
		fmt.Fprintf(os.Stderr, "minimalloc: gave up after %v\n", *timeout)
		return exitBudget
	case err != nil:
		fmt.Fprintln(os.Stderr, "minimalloc:", err)
		return exitUsage
	}

	if err := writeSolution(*outputPath, problem, solution); err != nil {
		fmt.Fprintln(os.Stderr, "minimalloc:", err)
		return exitUsage
	}
	return exitSolved
}

// loadConfig reads flag defaults from a YAML file.
func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// applyDefaults overwrites flag values the user did not set explicitly.
func applyDefaults(cfg *config, capacity *int64, timeout *time.Duration, validate *bool) error {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["capacity"] && cfg.Capacity != 0 {
		*capacity = cfg.Capacity
	}
	if !set["timeout"] && cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return errors.Wrap(err, "parsing config timeout")
		}
		*timeout = d
	}
	if !set["validate"] {
		*validate = *validate || cfg.Validate
	}
	return nil
}

func readProblem(path string, capacity int64) (*minimalloc.Problem, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return minimalloc.ReadProblem(r, capacity)
}

func writeSolution(path string, p *minimalloc.Problem, s *minimalloc.Solution) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return minimalloc.WriteSolution(w, p, s)
}
