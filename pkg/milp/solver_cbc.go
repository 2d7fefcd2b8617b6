package milp

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type cbcSolver struct {
	path string
}

// NewCbcSolver runs the COIN-OR CBC executable found at path (or looked up in PATH)
func NewCbcSolver(path string) Solver {
	return &cbcSolver{path: path}
}

func (solver *cbcSolver) Solve(ctx context.Context, model *Model, limits Limits) (*Solution, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	// CBC does not read indicator constraints
	lp := model.Linearize().ToLP()

	inputFile, err := writeTempFile("seating-*.lp", lp)
	if err != nil {
		return nil, err
	}
	defer removeTempFile(logger, inputFile)

	outputFile, err := tempPath("cbc_output-*.sol")
	if err != nil {
		return nil, err
	}
	defer removeTempFile(logger, outputFile)

	args := []string{inputFile}
	if limit := deadline(ctx, start, limits); !limit.IsZero() {
		args = append(args, "sec", strconv.FormatFloat(max(time.Until(limit).Seconds(), 0.1), 'f', 2, 64))
	}
	if limits.MaxGap > 0 {
		args = append(args, "ratioGap", strconv.FormatFloat(limits.MaxGap, 'g', -1, 64))
	}
	args = append(args, "solve", "solu", outputFile)

	output, err := runProcess(ctx, "cbc", solver.path, args...)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read output file: %v", err)
	}

	solution, err := solver.parseSolution(model, string(content))
	if err != nil {
		return nil, err
	}
	if output.interrupted && solution.Status != Optimal && solution.Status != Infeasible {
		solution.Status = Interrupted
	}
	keepGap(solution, output.stdout, "Gap:", false, limits)
	return finishSolution(ctx, model, solution, start), nil
}

// The first line holds the status, e.g. "Optimal - objective value 8.00000000" or "Stopped on time - objective value 6".
// Every following line reads "index name value reduced-cost", optionally prefixed by "**" for infeasibilities
func (solver *cbcSolver) parseSolution(model *Model, solverOutput string) (*Solution, error) {
	lines := lo.Filter(strings.Split(solverOutput, "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	if len(lines) == 0 {
		return &Solution{Status: Unknown}, nil
	}

	header := strings.TrimSpace(lines[0])
	solution := &Solution{}
	switch {
	case strings.HasPrefix(header, "Optimal"):
		solution.Status = Optimal
	case strings.Contains(strings.ToLower(header), "infeasible"):
		return &Solution{Status: Infeasible}, nil
	case strings.HasPrefix(header, "Stopped on ctrl-c"):
		solution.Status = Interrupted
	case strings.HasPrefix(header, "Stopped"):
		solution.Status = Feasible
	default:
		return &Solution{Status: Unknown}, nil
	}
	if strings.Contains(header, "no integer solution") {
		return &Solution{Status: Unknown}, nil
	}

	pairs := make([][2]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "**"))
		if len(fields) < 3 {
			continue
		}
		pairs = append(pairs, [2]string{fields[1], fields[2]})
	}

	values, err := parseValues(model, pairs)
	if err != nil {
		return nil, err
	}
	solution.Values = values
	return solution, nil
}
