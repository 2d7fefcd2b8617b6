package milp

import (
	"context"
	"reflect"
	"time"

	"github.com/crillab/gophersat/solver"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type gophersatSolver struct{}

// NewGophersatSolver returns an in-process pseudo-boolean optimizer. Every improving model it finds is kept, so time
// limits and cancellation return the best one so far
func NewGophersatSolver() Solver {
	return &gophersatSolver{}
}

func (gophersat *gophersatSolver) Solve(ctx context.Context, model *Model, limits Limits) (*Solution, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()
	bound := model.Bound()

	problem, contradiction := gophersatProblem(model)
	if contradiction {
		return &Solution{Status: Infeasible, Bound: bound, Elapsed: time.Since(start)}, nil
	}
	logger.Debug().Int("variables", problem.NbVars).Int("constraints", len(problem.Clauses)).Msg("gophersat problem built")

	// Optimal closes results before returning and stops between two improvements once stop is closed
	results := make(chan solver.Result)
	stop := make(chan struct{})
	final := make(chan solver.Result, 1)
	go func() {
		final <- solver.New(problem).Optimal(results, stop)
	}()
	interrupt := func() {
		close(stop)
		go func() {
			for range results {
			}
		}()
	}

	var timeout <-chan time.Time
	if limit := deadline(ctx, start, limits); !limit.IsZero() {
		timer := time.NewTimer(time.Until(limit))
		defer timer.Stop()
		timeout = timer.C
	}

	solution := &Solution{Status: Unknown, Bound: bound}
	accept := func(result solver.Result) {
		solution.Values = gophersatValues(result.Model, len(model.Vars))
		solution.Objective = model.Evaluate(solution.Values)
		logger.Debug().Int("cost", result.Weight).Int("objective", solution.Objective).Dur("elapsed", time.Since(start)).Msg("gophersat found an incumbent")
	}

loop:
	for {
		select {
		case result, ok := <-results:
			if !ok {
				result = <-final
				if result.Status == solver.Sat {
					accept(result)
				}
				if !solution.HasIncumbent() {
					solution.Status = Infeasible
					break loop
				}
				solution.Status = Optimal
				solution.Bound = solution.Objective
				break loop
			}
			if result.Status != solver.Sat {
				continue
			}
			accept(result)
			if solution.Objective == bound || (limits.MaxGap > 0 && RelativeGap(solution.Objective, bound) <= limits.MaxGap) {
				interrupt()
				solution.Status = Optimal
				break loop
			}
		case <-ctx.Done():
			interrupt()
			solution.Status = lo.Ternary(solution.HasIncumbent(), Interrupted, Unknown)
			break loop
		case <-timeout:
			interrupt()
			solution.Status = lo.Ternary(solution.HasIncumbent(), Feasible, Unknown)
			break loop
		}
	}

	solution.Elapsed = time.Since(start)
	if solution.HasIncumbent() {
		solution.Gap = RelativeGap(solution.Objective, solution.Bound)
	}
	return solution, nil
}

// Translates the model into pseudo-boolean constraints over gophersat variables: variable i of the model is gophersat
// variable i+1. The cost to minimize counts the weight of every normalized objective literal left false
func gophersatProblem(model *Model) (*solver.Problem, bool) {
	lit := func(literal literal) int {
		if literal.Negated {
			return -(literal.Var + 1)
		}
		return literal.Var + 1
	}
	toGophersat := func(pb pbConstraint) solver.PBConstr {
		return solver.GtEq(
			lo.Map(pb.Literals, func(literal weightedLiteral, _ int) int { return lit(literal.literal) }),
			lo.Map(pb.Literals, func(literal weightedLiteral, _ int) int { return literal.Weight }),
			pb.AtLeast,
		)
	}

	// Registers every variable, even the ones no constraint mentions
	all := lo.Times(len(model.Vars), func(i int) int { return i + 1 })
	constraints := []solver.PBConstr{solver.GtEq(all, nil, 0)}

	for i, variable := range model.Vars {
		if variable.Upper == 0 {
			constraints = append(constraints, solver.GtEq([]int{-(i + 1)}, nil, 1))
		}
	}

	linear := model.Constraints
	if bound, ok := model.boundConstraint(); ok {
		linear = append(linear[:len(linear):len(linear)], bound)
	}
	for _, constraint := range linear {
		for _, pb := range toPseudoBoolean(constraint) {
			if pb.tautology() {
				continue
			}
			if pb.Indicator == nil && pb.contradiction() {
				return nil, true
			}
			pb = pb.unconditional()
			if pb.tautology() {
				continue
			}
			constraints = append(constraints, toGophersat(pb))
		}
	}

	problem := solver.ParsePBConstrs(constraints)
	objective, _ := normalizedObjective(model)
	if len(objective) > 0 {
		problem.SetCostFunc(
			lo.Map(objective, func(literal weightedLiteral, _ int) solver.Lit { return solver.IntToLit(int32(-lit(literal.literal))) }),
			lo.Map(objective, func(literal weightedLiteral, _ int) int { return literal.Weight }),
		)
	}
	return problem, false
}

// gophersatValues reads the binding of every model variable out of a gophersat model. Depending on the release, a
// model is either a slice indexed by variable (booleans or signed decision levels) or a map keyed by variable number
func gophersatValues(binding any, vars int) []bool {
	values := make([]bool, vars)
	model := reflect.ValueOf(binding)

	switch model.Kind() {
	case reflect.Slice:
		for i := range min(vars, model.Len()) {
			values[i] = gophersatTrue(model.Index(i))
		}
	case reflect.Map:
		entries := model.MapRange()
		for entries.Next() {
			key := reflect.Indirect(entries.Key())
			if key.Kind() == reflect.Interface {
				key = key.Elem()
			}
			var variable int
			switch {
			case key.CanInt():
				variable = int(key.Int())
			case key.CanUint():
				variable = int(key.Uint())
			default:
				continue
			}
			if variable >= 1 && variable <= vars {
				values[variable-1] = gophersatTrue(entries.Value())
			}
		}
	}
	return values
}

func gophersatTrue(value reflect.Value) bool {
	if value.Kind() == reflect.Interface {
		value = value.Elem()
	}
	switch {
	case value.Kind() == reflect.Bool:
		return value.Bool()
	case value.CanInt():
		return value.Int() > 0
	}
	return false
}
