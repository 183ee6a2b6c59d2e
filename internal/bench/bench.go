// Package bench times vectorised lookups against a plain piecewise-linear
// baseline for the lerp bench command.
package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/example/go-lerp/internal/grid"
	"github.com/example/go-lerp/internal/lookup"
)

// Config describes one bench session. Query sizes run from 0 to MaxPoints
// in increments of Step, each size Runs times.
type Config struct {
	MaxPoints int
	Step      int
	Runs      int
	Interp    lookup.Interp
	Extrap    lookup.Extrap
	Seed      uint64
	Options   []lookup.Option
}

// DefaultConfig is the classic micro bench: up to one million sorted
// random points, 50k apart, on a 10-knot sine table.
func DefaultConfig() Config {
	return Config{
		MaxPoints: 1_000_000,
		Step:      50_000,
		Runs:      1,
		Interp:    lookup.Linear,
		Extrap:    lookup.ExtrapHold,
		Seed:      1,
	}
}

// RunResult holds the timing of one query size.
type RunResult struct {
	Index    int
	Points   int
	Cold     bool // true for the first run (cold-start)
	Lookup   time.Duration
	Baseline time.Duration
	// MaxAbsDiff is the largest difference to the baseline. It is only
	// meaningful for linear interpolation with hold extrapolation.
	MaxAbsDiff float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	mn, mx := durations[0], durations[0]

	var sum time.Duration

	for _, d := range durations {
		mn = min(mn, d)
		mx = max(mx, d)
		sum += d
	}

	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// SineTable returns the bench table: sin sampled at 10 points over [0, 2π].
func SineTable() (*grid.Grid, error) {
	xs := floats.Span(make([]float64, 10), 0, 2*math.Pi)

	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = math.Sin(x)
	}

	return grid.New([]grid.Axis{{Name: "x", Breakpoints: xs}}, ys, nil)
}

// Queries returns n sorted points of the form k + u with k in [1, 10000)
// and u in [0, 1).
func Queries(rng *rand.Rand, n int) []float64 {
	q := make([]float64, n)
	for i := range q {
		q[i] = float64(1+rng.IntN(9999)) + rng.Float64()
	}

	slices.Sort(q)

	return q
}

// Run executes the bench session.
func Run(cfg Config) ([]RunResult, error) {
	if cfg.Step < 1 || cfg.MaxPoints < 0 || cfg.Runs < 1 {
		return nil, errors.New("bench: step and runs must be positive")
	}

	g, err := SineTable()
	if err != nil {
		return nil, err
	}

	var baseline interp.PiecewiseLinear
	if err := baseline.Fit(g.Breakpoints(0), g.Data()); err != nil {
		return nil, fmt.Errorf("bench: fit baseline: %w", err)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	var runs []RunResult

	for n := 0; n <= cfg.MaxPoints; n += cfg.Step {
		q := Queries(rng, n)
		ref := make([]float64, n)

		for r := range cfg.Runs {
			t0 := time.Now()

			out, err := lookup.Evaluate(g, [][]float64{q}, cfg.Interp, cfg.Extrap, cfg.Options...)
			if err != nil {
				return nil, err
			}

			t1 := time.Now()

			for i, x := range q {
				ref[i] = baseline.Predict(x)
			}

			t2 := time.Now()

			diff := 0.0
			for i := range out {
				diff = max(diff, math.Abs(out[i]-ref[i]))
			}

			runs = append(runs, RunResult{
				Index:      len(runs),
				Points:     n,
				Cold:       len(runs) == 0 && r == 0,
				Lookup:     t1.Sub(t0),
				Baseline:   t2.Sub(t1),
				MaxAbsDiff: diff,
			})
		}
	}

	return runs, nil
}

// LookupDurations extracts the lookup timings, skipping the cold run when
// there is more than one.
func LookupDurations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, 0, len(runs))
	for _, r := range runs {
		if r.Cold && len(runs) > 1 {
			continue
		}

		out = append(out, r.Lookup)
	}

	return out
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12s  %12s  %10s\n", "Run", "Cold", "Points", "Lookup(ms)", "Baseline(ms)", "MaxDiff")
	fmt.Fprintln(sb, strings.Repeat("-", 64))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}

		fmt.Fprintf(sb, "%-5d  %-5s  %10d  %12.3f  %12.3f  %10.2e\n",
			r.Index+1,
			cold,
			r.Points,
			ms(r.Lookup),
			ms(r.Baseline),
			r.MaxAbsDiff,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 64))
	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12.3f  (min)\n", "", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12.3f  (mean)\n", "", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12.3f  (max)\n", "", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	Points     int     `json:"points"`
	LookupMS   float64 `json:"lookup_ms"`
	BaselineMS float64 `json:"baseline_ms"`
	MaxAbsDiff float64 `json:"max_abs_diff"`
}

type jsonStats struct {
	MinMS  float64 `json:"min_ms"`
	MeanMS float64 `json:"mean_ms"`
	MaxMS  float64 `json:"max_ms"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:  ms(stats.Min),
			MeanMS: ms(stats.Mean),
			MaxMS:  ms(stats.Max),
		},
	}

	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			Points:     r.Points,
			LookupMS:   ms(r.Lookup),
			BaselineMS: ms(r.Baseline),
			MaxAbsDiff: r.MaxAbsDiff,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
