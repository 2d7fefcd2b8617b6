package milp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Time given to an external solver to write its incumbent after being interrupted
const interruptGracePeriod = 10 * time.Second

// Solvers lists the accepted backend names, the first one being the default
var Solvers = []string{"gini", "gophersat", "cbc", "highs"}

// Executables holds the paths of the external solver binaries
type Executables struct {
	Cbc   string `mapstructure:"cbc"`
	Highs string `mapstructure:"highs"`
}

// DecodeExecutables reads executable paths from a configuration section, e.g. {"cbc": "/opt/cbc/bin/cbc"}.
// Missing entries default to the binary name, looked up in PATH
func DecodeExecutables(settings map[string]any) (Executables, error) {
	executables := Executables{Cbc: "cbc", Highs: "highs"}
	if err := mapstructure.Decode(settings, &executables); err != nil {
		return Executables{}, fmt.Errorf("cannot decode solver executables: %w", err)
	}
	return executables, nil
}

// NewSolver builds the backend registered under name
func NewSolver(name string, executables Executables) (Solver, error) {
	switch strings.ToLower(name) {
	case "gini":
		return NewGiniSolver(), nil
	case "gophersat":
		return NewGophersatSolver(), nil
	case "cbc":
		return NewCbcSolver(lo.CoalesceOrEmpty(executables.Cbc, "cbc")), nil
	case "highs":
		return NewHighsSolver(lo.CoalesceOrEmpty(executables.Highs, "highs")), nil
	}
	return nil, fmt.Errorf("%v is not a valid solver: allowed values are %v", name, strings.Join(Solvers, ", "))
}

type processOutput struct {
	stdout      string
	interrupted bool
}

// Runs an external solver. Cancelling ctx sends an interrupt so the solver can still report its incumbent
func runProcess(ctx context.Context, solver, path string, args ...string) (processOutput, error) {
	if _, err := exec.LookPath(path); err != nil {
		return processOutput{}, fmt.Errorf("%w: %v: %v", ErrSolverUnavailable, solver, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptGracePeriod

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	zerolog.Ctx(ctx).Debug().Str("solver", solver).Strs("args", args).Msg("running external solver")

	err := cmd.Run()
	if ctx.Err() != nil {
		return processOutput{stdout: stdOut.String(), interrupted: true}, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		exitCode := -1
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return processOutput{}, &ProcessError{Solver: solver, ExitCode: exitCode, Stderr: stderr.String(), Err: err}
	}

	return processOutput{stdout: stdOut.String()}, nil
}

// Writes content into a fresh temporary file and returns its name
func writeTempFile(pattern, content string) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %v", err)
	}
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write temporary file: %v", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to close temporary file: %v", err)
	}
	return file.Name(), nil
}

// Reserves a temporary path for a solver to write into
func tempPath(pattern string) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %v", err)
	}
	file.Close()
	return file.Name(), nil
}

func removeTempFile(logger *zerolog.Logger, name string) {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Str("file", name).Msg("failed to remove temporary file")
	}
}

// Reads "name value" pairs into an assignment indexed like model.Vars. Unknown names are ignored
func parseValues(model *Model, pairs [][2]string) ([]bool, error) {
	indices := make(map[string]int, len(model.Vars))
	for i, variable := range model.Vars {
		indices[variable.Name] = i
	}

	values := make([]bool, len(model.Vars))
	for _, pair := range pairs {
		index, ok := indices[pair[0]]
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %v in solver output: %v", pair[0], err)
		}
		values[index] = math.Round(value) >= 1
	}
	return values, nil
}

// Completes a solution read from an external solver. An assignment that does not satisfy the model is discarded
func finishSolution(ctx context.Context, model *Model, solution *Solution, start time.Time) *Solution {
	solution.Elapsed = time.Since(start)
	solution.Bound = model.Bound()

	if solution.Values != nil {
		if err := model.Feasible(solution.Values); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("discarding infeasible assignment reported by solver")
			solution.Values = nil
		}
	}

	if solution.Values == nil {
		if solution.Status != Infeasible {
			solution.Status = Unknown
		}
		return solution
	}

	if solution.Status == Unknown {
		solution.Status = stoppedStatus(ctx)
	}
	solution.Objective = model.Evaluate(solution.Values)
	switch {
	case solution.Status == Optimal && solution.Gap == 0:
		solution.Bound = solution.Objective
	case solution.Gap > 0:
		// Integral objective: the reported gap tightens the trivial bound
		slack := int(math.Floor(solution.Gap * math.Abs(float64(solution.Objective))))
		if model.Maximize {
			solution.Bound = min(solution.Bound, solution.Objective+slack)
		} else {
			solution.Bound = max(solution.Bound, solution.Objective-slack)
		}
	default:
		solution.Gap = RelativeGap(solution.Objective, solution.Bound)
	}
	return solution
}

// keepGap records the gap printed by an external solver. An optimal run only has a gap when a gap tolerance stopped it
func keepGap(solution *Solution, output, prefix string, percentage bool, limits Limits) {
	if gap, ok := parseGapLine(output, prefix, percentage); ok && (solution.Status != Optimal || limits.MaxGap > 0) {
		solution.Gap = gap
	}
}

// Extracts a gap expressed as a percentage ("0.5%") or a fraction ("0.005") from the first field following prefix
func parseGapLine(output, prefix string, percentage bool) (float64, bool) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != prefix {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
		if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
			return 0, false
		}
		if percentage {
			value /= 100
		}
		return value, true
	}
	return 0, false
}
