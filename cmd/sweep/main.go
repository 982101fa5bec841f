// Command sweep solves every problem CSV under a directory and reports a
// per-file outcome table. Problems run concurrently on a bounded worker
// pool; each file is an independent solve, so the sweep scales with cores.
//
// Usage:
//
//	sweep -dir benchmarks/ -capacity 1048576 -timeout 10s -workers 8
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/gitrdm/minimalloc/internal/parallel"
	"github.com/gitrdm/minimalloc/pkg/minimalloc"
)

// outcome is one solved (or failed) benchmark file.
type outcome struct {
	name    string
	status  string
	buffers int
	elapsed time.Duration
}

func main() {
	var (
		dir      = flag.String("dir", ".", "directory to scan for *.csv problems")
		capacity = flag.Int64("capacity", 0, "memory capacity applied to every problem")
		timeout  = flag.Duration("timeout", 10*time.Second, "per-problem wall-clock budget")
		workers  = flag.Int("workers", 0, "solver goroutines (0 = all cores)")
	)
	klog.InitFlags(nil)
	flag.Parse()
	if *capacity <= 0 {
		fmt.Fprintln(os.Stderr, "sweep: -capacity must be positive")
		os.Exit(1)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.csv"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(os.Stderr, "sweep: no problem files under %s\n", *dir)
		os.Exit(1)
	}
	sort.Strings(files)

	pool := parallel.NewPool(*workers)
	results := make(chan outcome, len(files))

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(results)
		defer pool.Close()
		for _, file := range files {
			file := file
			if err := pool.Submit(ctx, func() {
				results <- solveFile(ctx, file, *capacity, *timeout)
			}); err != nil {
				return errors.Wrapf(err, "submitting %s", file)
			}
		}
		return nil
	})

	collected := make([]outcome, 0, len(files))
	for o := range results {
		collected = append(collected, o)
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "sweep:", err)
		os.Exit(1)
	}

	report(collected)
}

// solveFile runs one benchmark problem and classifies the result.
func solveFile(ctx context.Context, path string, capacity int64, timeout time.Duration) outcome {
	out := outcome{name: filepath.Base(path)}
	f, err := os.Open(path)
	if err != nil {
		out.status = "read-error"
		return out
	}
	defer f.Close()

	problem, err := minimalloc.ReadProblem(f, capacity)
	if err != nil {
		out.status = "parse-error"
		return out
	}
	out.buffers = len(problem.Buffers)

	opts := minimalloc.DefaultOptions()
	opts.Timeout = timeout
	opts.ValidateResult = true
	start := time.Now()
	_, err = minimalloc.Solve(ctx, problem, opts)
	out.elapsed = time.Since(start)
	switch {
	case err == nil:
		out.status = "solved"
	case errors.Is(err, minimalloc.ErrInfeasible):
		out.status = "infeasible"
	case errors.Is(err, minimalloc.ErrTimeout):
		out.status = "timeout"
	default:
		out.status = "error"
		klog.Errorf("%s: %v", path, err)
	}
	return out
}

// report prints the per-file table and aggregate counts.
func report(outcomes []outcome) {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].name < outcomes[j].name })
	counts := map[string]int{}
	for _, o := range outcomes {
		fmt.Printf("%-40s %-12s %6d buffers %12v\n", o.name, o.status, o.buffers, o.elapsed.Round(time.Microsecond))
		counts[o.status]++
	}
	parts := make([]string, 0, len(counts))
	for _, status := range []string{"solved", "infeasible", "timeout", "error", "parse-error", "read-error"} {
		if counts[status] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[status], status))
		}
	}
	fmt.Printf("%d problems: %s\n", len(outcomes), strings.Join(parts, ", "))
}
