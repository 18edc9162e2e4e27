package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"groups/snapshot"
	"groups/solver"
)

type runResult struct {
	solved   bool
	attempts int
	key      string
	stats    solver.Stats
	elapsed  time.Duration
}

func printStats(w io.Writer, label string, results []runResult) {
	runs := len(results)
	if runs == 0 {
		return
	}
	partitions := map[string]int{}
	var totalTime time.Duration
	var solved, totalAttempts, maxAttempts int
	var leaders, prefs int
	var imbalance float64

	for _, r := range results {
		totalTime += r.elapsed
		if !r.solved {
			continue
		}
		solved++
		totalAttempts += r.attempts
		maxAttempts = max(maxAttempts, r.attempts)
		partitions[r.key]++
		leaders += r.stats.GroupsWithLeader
		prefs += r.stats.PreferencesSatisfied
		imbalance += r.stats.GenderImbalance
	}

	fmt.Fprintf(w, "--- %s ---\n", label)
	fmt.Fprintf(w, "  avg time: %v\n", totalTime/time.Duration(runs))
	fmt.Fprintf(w, "  solved: %d/%d runs (%.0f%%)\n", solved, runs, float64(solved)/float64(runs)*100)
	if solved == 0 {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "  attempts: avg %.1f, max %d\n", float64(totalAttempts)/float64(solved), maxAttempts)
	fmt.Fprintf(w, "  avg groups with leader: %.1f\n", float64(leaders)/float64(solved))
	fmt.Fprintf(w, "  avg preferences satisfied: %.1f\n", float64(prefs)/float64(solved))
	fmt.Fprintf(w, "  avg gender imbalance: %.2f\n", imbalance/float64(solved))
	fmt.Fprintf(w, "  unique partitions seen: %d\n", len(partitions))

	var freqs []struct {
		key   string
		count int
	}
	for k, c := range partitions {
		freqs = append(freqs, struct {
			key   string
			count int
		}{k, c})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].count != freqs[j].count {
			return freqs[i].count > freqs[j].count
		}
		return freqs[i].key < freqs[j].key
	})

	topN := min(5, len(freqs))
	fmt.Fprintf(w, "  top %d partition frequencies: ", topN)
	for i := range topN {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%d/%d", freqs[i].count, solved)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

// tune runs the generator runs times for every size. Run i always uses seed
// i*31337 so results are comparable across sizes and invocations.
func tune(w io.Writer, cfg *snapshot.Configuration, sizes []int, runs, attempts int) error {
	members := cfg.Members()
	constraints := cfg.EngineConstraints()

	fmt.Fprintf(w, "Students: %d, Constraints: %d (%d unknown type)\n",
		len(members), len(constraints), len(solver.UnknownKinds(constraints)))
	fmt.Fprintf(w, "Runs per size: %d, Max attempts: %d\n\n", runs, attempts)

	for _, size := range sizes {
		results := make([]runResult, runs)
		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())
		for run := range runs {
			g.Go(func() error {
				rng := rand.New(rand.NewSource(int64(run * 31337)))
				gen := solver.New(members, constraints, size, solver.WithRand(rng), solver.WithMaxAttempts(attempts))
				start := time.Now()
				res, err := gen.Generate()
				elapsed := time.Since(start)
				if errors.Is(err, solver.ErrNoSolution) {
					results[run] = runResult{attempts: gen.MaxAttempts(), elapsed: elapsed}
					return nil
				}
				if err != nil {
					return err
				}
				results[run] = runResult{
					solved:   true,
					attempts: res.Attempts,
					key:      solver.Key(res.Groups),
					stats:    solver.ComputeStats(res.Groups, constraints),
					elapsed:  elapsed,
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		gen := solver.New(members, constraints, size)
		printStats(w, fmt.Sprintf("size=%d groups=%d", gen.GroupSize(), gen.NumGroups()), results)
	}
	return nil
}

func parseIntList(s string) []int {
	parts := strings.Split(s, ",")
	var result []int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			result = append(result, v)
		}
	}
	return result
}

func newRootCmd() *cobra.Command {
	var (
		file     string
		runs     int
		sizes    string
		attempts int
	)

	cmd := &cobra.Command{
		Use:           "solver-tune",
		Short:         "Measure how reliably the group generator solves a configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *snapshot.Configuration
			var err error
			if file == "" {
				cfg, err = snapshot.Sample()
			} else {
				cfg, err = snapshot.ReadFile(file)
			}
			if err != nil {
				return err
			}
			sizeList := parseIntList(sizes)
			if len(sizeList) == 0 {
				return fmt.Errorf("no valid sizes in %q", sizes)
			}
			if runs < 1 {
				return fmt.Errorf("runs must be positive, got %d", runs)
			}
			return tune(cmd.OutOrStdout(), cfg, sizeList, runs, attempts)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "configuration file (default: bundled sample)")
	cmd.Flags().IntVar(&runs, "runs", 20, "number of generator runs per size")
	cmd.Flags().StringVar(&sizes, "sizes", "3,4,5,6", "comma-separated group sizes")
	cmd.Flags().IntVar(&attempts, "attempts", solver.DefaultMaxAttempts, "maximum placement attempts per run")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
