package model

import (
	"context"
	"errors"
	"time"

	"github.com/limaJavier/seating/pkg/milp"
	"github.com/rs/zerolog"
)

// ErrInfeasible is returned when the solver proves that no assignment satisfies the program
var ErrInfeasible = errors.New("no seating satisfies the constraints")

// Plan is the outcome of a planning run
type Plan struct {
	Seating

	Status      milp.Status
	Elapsed     time.Duration
	Gap         float64
	Bound       int
	Formulation Formulation
	Variables   int
	Constraints int
}

// Planner compiles, solves and decodes seating instances
type Planner struct {
	solver      milp.Solver
	formulation Formulation
	logger      zerolog.Logger
}

func NewPlanner(solver milp.Solver, formulation Formulation, logger zerolog.Logger) *Planner {
	return &Planner{
		solver:      solver,
		formulation: formulation,
		logger:      logger,
	}
}

// Plan seats as many people as possible. Cancelling ctx interrupts the solver and the best seating found so far is
// returned without error
func (planner *Planner) Plan(ctx context.Context, input Input, limits milp.Limits) (Plan, error) {
	//** Compile
	program, err := Compile(input, planner.formulation)
	if err != nil {
		return Plan{}, err
	}
	planner.logger.Debug().
		Int("rows", program.Layout.Rows()).
		Int("columns", program.Layout.Columns()).
		Int("variables", program.Variables()).
		Int("constraints", program.Constraints()).
		Stringer("formulation", planner.formulation).
		Msg("program compiled")

	//** Solve
	solution, err := planner.solver.Solve(planner.logger.WithContext(ctx), program.Model, limits)
	if err != nil {
		return Plan{}, err
	}
	if solution.Status == milp.Infeasible {
		return Plan{}, ErrInfeasible
	}
	if !solution.HasIncumbent() {
		// The empty seating always satisfies the program
		planner.logger.Warn().Stringer("status", solution.Status).Msg("solver returned without a seating; falling back to the empty one")
		solution.Objective = 0
		solution.Gap = milp.RelativeGap(0, solution.Bound)
	}

	//** Decode
	plan := Plan{
		Seating:     Decode(program, solution),
		Status:      solution.Status,
		Elapsed:     solution.Elapsed,
		Gap:         solution.Gap,
		Bound:       solution.Bound,
		Formulation: planner.formulation,
		Variables:   program.Variables(),
		Constraints: program.Constraints(),
	}
	planner.logger.Info().
		Int("seated", plan.SeatedPeople).
		Int("bound", plan.Bound).
		Float64("gap", plan.Gap).
		Stringer("status", plan.Status).
		Dur("elapsed", plan.Elapsed).
		Msg("seating planned")

	return plan, nil
}

// Verify checks the plan's blocks independently of the program
func (planner *Planner) Verify(plan Plan) bool {
	return Verify(plan.Layout, plan.Demand, plan.Blocks)
}
