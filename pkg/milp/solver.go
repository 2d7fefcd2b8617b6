package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrSolverUnavailable is returned when a backend cannot be reached or initialized (e.g. its executable is missing)
var ErrSolverUnavailable = errors.New("solver unavailable")

type Status int

const (
	// No incumbent was found before a limit or an interruption
	Unknown Status = iota
	// The incumbent is proven optimal (within the requested gap)
	Optimal
	// A time limit was reached; the incumbent is feasible but not proven optimal
	Feasible
	// The caller cancelled the solve; the incumbent is the best found until then
	Interrupted
	// No assignment satisfies the constraints
	Infeasible
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Interrupted:
		return "interrupted"
	case Infeasible:
		return "infeasible"
	}
	return "unknown"
}

// Limits bound a solve. Zero values mean no limit
type Limits struct {
	TimeLimit time.Duration
	MaxGap    float64
}

type Solution struct {
	Status    Status
	Values    []bool // Indexed like Model.Vars; nil when there is no incumbent
	Objective int
	Bound     int
	Gap       float64
	Elapsed   time.Duration
}

// HasIncumbent reports whether the solution carries a variable assignment
func (solution *Solution) HasIncumbent() bool {
	return solution.Values != nil
}

type Solver interface {
	// Solve blocks until the model is solved, a limit is reached or ctx is cancelled. Cancellation is not an error:
	// the best incumbent found so far is returned with status Interrupted
	Solve(ctx context.Context, model *Model, limits Limits) (*Solution, error)
}

// ProcessError reports an abnormal termination of an external solver
type ProcessError struct {
	Solver   string
	ExitCode int
	Stderr   string
	Err      error
}

func (err *ProcessError) Error() string {
	return fmt.Sprintf("an error occurred during %v execution (exit code %d): %v : %v", err.Solver, err.ExitCode, err.Err, err.Stderr)
}

func (err *ProcessError) Unwrap() error {
	return err.Err
}

// RelativeGap follows the usual MIP convention |bound - objective| / |objective|.
// With a zero objective the gap is 1 unless the bound is zero as well
func RelativeGap(objective, bound int) float64 {
	if objective == bound {
		return 0
	}
	if objective == 0 {
		return 1
	}
	return math.Abs(float64(bound-objective)) / math.Abs(float64(objective))
}

func deadline(ctx context.Context, start time.Time, limits Limits) time.Time {
	var limit time.Time
	if limits.TimeLimit > 0 {
		limit = start.Add(limits.TimeLimit)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (limit.IsZero() || ctxDeadline.Before(limit)) {
		limit = ctxDeadline
	}
	return limit
}

func stoppedStatus(ctx context.Context) Status {
	if ctx.Err() != nil {
		return Interrupted
	}
	return Feasible
}
