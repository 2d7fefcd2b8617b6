package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/seating/internal/config"
	"github.com/limaJavier/seating/internal/instance"
	"github.com/limaJavier/seating/internal/logging"
	"github.com/limaJavier/seating/pkg/milp"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const MB float32 = 1024 * 1024

type ResultType string

const (
	solved      ResultType = "solved"
	stopped     ResultType = "stopped"
	infeasible  ResultType = "infeasible"
	unavailable ResultType = "unavailable"
	failed      ResultType = "failed"
)

type TestMetadata struct {
	Name  string
	Input model.Input
}

type BenchmarkResult struct {
	Solver         string     `csv:"Solver"`
	Formulation    string     `csv:"Formulation"`
	Test           string     `csv:"Test"`
	Rows           int        `csv:"Rows"`
	Columns        int        `csv:"Columns"`
	UsableSeats    int        `csv:"UsableSeats"`
	DemandedPeople int        `csv:"DemandedPeople"`
	Variables      int        `csv:"Variables"`
	Constraints    int        `csv:"Constraints"`
	Duration       int64      `csv:"Duration(ms)"`
	Memory         float32    `csv:"Memory(MB)"`
	Seated         int        `csv:"Seated"`
	Gap            float64    `csv:"Gap"`
	Status         string     `csv:"Status"`
	Verified       bool       `csv:"Verified"`
	Result         ResultType `csv:"Result"`
}

type options struct {
	sizes        string
	instances    int
	seed         uint64
	directory    string
	solvers      []string
	formulations []string
	timeLimit    time.Duration
	out          string
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:          "benchmark",
		Short:        "Benchmark every solver and formulation over a set of seating instances",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return benchmark(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.sizes, "sizes", "4x6,6x8,8x10", "Comma separated sizes (rows x columns) of the generated instances")
	flags.IntVar(&opts.instances, "instances", 3, "Number of generated instances per size")
	flags.Uint64Var(&opts.seed, "seed", 1, "Seed of the instance generator")
	flags.StringVar(&opts.directory, "directory", "", "Directory of additional instance files (text format or .json)")
	flags.StringSliceVar(&opts.solvers, "solvers", []string{"gini", "gophersat"}, "Solvers to benchmark")
	flags.StringSliceVar(&opts.formulations, "formulations", []string{"bigm", "indicator"}, "Formulations to benchmark")
	flags.DurationVar(&opts.timeLimit, "time-limit", 30*time.Second, "Time limit of each run")
	flags.StringVar(&opts.out, "out", "benchmark_results.csv", "Path to the CSV results")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func benchmark(ctx context.Context, opts options) error {
	settings, err := config.Load(config.New(), config.Options{})
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}
	executables, err := milp.DecodeExecutables(settings.Solvers)
	if err != nil {
		return err
	}

	tests, err := getTests(opts)
	if err != nil {
		return err
	}
	formulations, err := getFormulations(opts.formulations)
	if err != nil {
		return err
	}

	results := make([]BenchmarkResult, 0, len(tests)*len(opts.solvers)*len(formulations))
	for _, test := range tests {
		for _, formulation := range formulations {
			for _, solverName := range opts.solvers {
				if ctx.Err() != nil {
					return toCsv(opts.out, results)
				}
				logger.Info().Str("test", test.Name).Stringer("formulation", formulation).Str("solver", solverName).Msg("benchmarking")

				solver, err := milp.NewSolver(solverName, executables)
				if err != nil {
					return err
				}
				results = append(results, measure(ctx, logger, solverName, solver, formulation, test, opts.timeLimit))
			}
		}
	}

	return toCsv(opts.out, results)
}

func getTests(opts options) ([]TestMetadata, error) {
	sizes, err := parseSizes(opts.sizes)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
	tests := make([]TestMetadata, 0, len(sizes)*opts.instances)
	for _, size := range sizes {
		for i := range opts.instances {
			tests = append(tests, TestMetadata{
				Name: fmt.Sprintf("generated-%dx%d-%d", size[0], size[1], i+1),
				Input: instance.Generate(rng, instance.Parameters{
					Rows:      size[0],
					Columns:   size[1],
					Usable:    0.85,
					MaxGroups: 3,
				}),
			})
		}
	}

	if opts.directory == "" {
		return tests, nil
	}
	files, err := os.ReadDir(opts.directory)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		filename := filepath.Join(opts.directory, file.Name())
		input, err := model.InputFromFile(filename)
		if err != nil {
			return nil, fmt.Errorf("cannot parse input file %v: %w", filename, err)
		}
		tests = append(tests, TestMetadata{Name: filename, Input: input})
	}

	return tests, nil
}

func getFormulations(names []string) ([]model.Formulation, error) {
	formulations := make([]model.Formulation, 0, len(names))
	for _, name := range names {
		formulation, err := model.ParseFormulation(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(formulations, formulation) {
			formulations = append(formulations, formulation)
		}
	}
	return formulations, nil
}

// parseSizes reads "RxC" pairs separated by commas
func parseSizes(sizes string) ([][2]int, error) {
	parsed := make([][2]int, 0)
	for _, size := range strings.Split(sizes, ",") {
		size = strings.TrimSpace(size)
		if size == "" {
			continue
		}
		rows, columns, ok := strings.Cut(strings.ToLower(size), "x")
		if !ok {
			return nil, fmt.Errorf("invalid size %q: expected ROWSxCOLUMNS", size)
		}
		r, rowsErr := strconv.Atoi(rows)
		c, columnsErr := strconv.Atoi(columns)
		if rowsErr != nil || columnsErr != nil || r <= 0 || c <= 0 {
			return nil, fmt.Errorf("invalid size %q: expected ROWSxCOLUMNS", size)
		}
		parsed = append(parsed, [2]int{r, c})
	}
	return parsed, nil
}

func measure(ctx context.Context, logger zerolog.Logger, solverName string, solver milp.Solver, formulation model.Formulation, test TestMetadata, timeLimit time.Duration) BenchmarkResult {
	result := BenchmarkResult{
		Solver:      solverName,
		Formulation: formulation.String(),
		Test:        test.Name,
		Rows:        test.Input.Rows,
		Columns:     test.Input.Columns,
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	planner := model.NewPlanner(solver, formulation, logger)
	start := time.Now()
	plan, err := planner.Plan(ctx, test.Input, milp.Limits{TimeLimit: timeLimit})
	result.Duration = time.Since(start).Milliseconds()

	runtime.ReadMemStats(&after)
	result.Memory = float32(after.TotalAlloc-before.TotalAlloc) / MB

	switch {
	case errors.Is(err, model.ErrInfeasible):
		result.Result = infeasible
		return result
	case errors.Is(err, milp.ErrSolverUnavailable):
		result.Result = unavailable
		return result
	case err != nil:
		logger.Error().Err(err).Str("test", test.Name).Stringer("formulation", formulation).Str("solver", solverName).Msg("benchmark run failed")
		result.Result = failed
		return result
	}

	result.UsableSeats = plan.UsableSeats
	result.DemandedPeople = plan.DemandedPeople
	result.Variables = plan.Variables
	result.Constraints = plan.Constraints
	result.Seated = plan.SeatedPeople
	result.Gap = plan.Gap
	result.Status = plan.Status.String()
	result.Verified = instance.AssertSeating(test.Input, plan)
	result.Result = lo.Ternary(plan.Status == milp.Optimal, solved, stopped)
	return result
}

func toCsv(path string, results []BenchmarkResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create CSV file: %w", err)
	}
	if err := gocsv.MarshalFile(&results, file); err != nil {
		file.Close()
		return fmt.Errorf("cannot write CSV records: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("cannot close CSV file: %w", err)
	}
	return nil
}
