package milp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type highsSolver struct {
	path string
}

// NewHighsSolver runs the HiGHS executable found at path (or looked up in PATH)
func NewHighsSolver(path string) Solver {
	return &highsSolver{path: path}
}

func (solver *highsSolver) Solve(ctx context.Context, model *Model, limits Limits) (*Solution, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	inputFile, err := writeTempFile("seating-*.lp", model.Linearize().ToLP())
	if err != nil {
		return nil, err
	}
	defer removeTempFile(logger, inputFile)

	var options strings.Builder
	if limit := deadline(ctx, start, limits); !limit.IsZero() {
		fmt.Fprintf(&options, "time_limit = %v\n", strconv.FormatFloat(max(time.Until(limit).Seconds(), 0.1), 'f', 2, 64))
	}
	if limits.MaxGap > 0 {
		fmt.Fprintf(&options, "mip_rel_gap = %v\n", strconv.FormatFloat(limits.MaxGap, 'g', -1, 64))
	}
	optionsFile, err := writeTempFile("highs-*.opt", options.String())
	if err != nil {
		return nil, err
	}
	defer removeTempFile(logger, optionsFile)

	outputFile, err := tempPath("highs_output-*.sol")
	if err != nil {
		return nil, err
	}
	defer removeTempFile(logger, outputFile)

	output, err := runProcess(ctx, "highs", solver.path,
		"--model_file", inputFile,
		"--options_file", optionsFile,
		"--solution_file", outputFile,
	)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(outputFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read output file: %v", err)
	}

	solution, err := solver.parseSolution(model, string(content))
	if err != nil {
		return nil, err
	}
	if output.interrupted && solution.Status != Optimal && solution.Status != Infeasible {
		solution.Status = Interrupted
	}
	keepGap(solution, output.stdout, "Gap", true, limits)
	return finishSolution(ctx, model, solution, start), nil
}

// The solution file starts with "Model status" followed by the status line. Column values come after "# Columns N"
// as N lines of "name value"
func (solver *highsSolver) parseSolution(model *Model, solverOutput string) (*Solution, error) {
	lines := strings.Split(solverOutput, "\n")
	solution := &Solution{Status: Unknown}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "Model status" && i+1 < len(lines):
			solution.Status = highsStatus(strings.TrimSpace(lines[i+1]))
			if solution.Status == Infeasible {
				return solution, nil
			}
			i++
		case strings.HasPrefix(line, "# Columns"):
			fields := strings.Fields(line)
			count, err := strconv.Atoi(fields[len(fields)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid column count in solver output: %v", err)
			}

			pairs := make([][2]string, 0, count)
			for _, column := range lines[i+1 : min(i+1+count, len(lines))] {
				fields := strings.Fields(column)
				if len(fields) < 2 {
					continue
				}
				pairs = append(pairs, [2]string{fields[0], fields[1]})
			}

			values, err := parseValues(model, pairs)
			if err != nil {
				return nil, err
			}
			solution.Values = values
			return solution, nil
		}
	}

	return solution, nil
}

func highsStatus(status string) Status {
	lower := strings.ToLower(status)
	switch {
	case lower == "optimal":
		return Optimal
	case strings.Contains(lower, "infeasible"):
		return Infeasible
	case strings.Contains(lower, "interrupt"):
		return Interrupted
	case strings.Contains(lower, "limit"):
		return Feasible
	}
	return Unknown
}
