package milp

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const giniPollInterval = 5 * time.Millisecond

type giniSolver struct{}

// NewGiniSolver returns an in-process solver. Constraints are encoded into CNF through cardinality sorting networks and
// the objective is improved one step at a time under assumptions until the improvement is refuted
func NewGiniSolver() Solver {
	return &giniSolver{}
}

// giniEncoding holds the circuit built for a model
type giniEncoding struct {
	circuit       *logic.C
	vars          []z.Lit
	clauses       [][]z.Lit
	contradiction bool

	// targets[v] is true iff the normalized objective is >= offset + v
	targets []z.Lit
	offset  int
}

func (solver *giniSolver) Solve(ctx context.Context, model *Model, limits Limits) (*Solution, error) {
	logger := zerolog.Ctx(ctx)
	start := time.Now()
	limit := deadline(ctx, start, limits)

	sign := lo.Ternary(model.Maximize, 1, -1)
	encoding := newGiniEncoding(model)
	upper := min(encoding.offset+len(encoding.targets)-1, sign*model.Bound())
	if encoding.contradiction {
		return &Solution{Status: Infeasible, Bound: sign * upper, Elapsed: time.Since(start)}, nil
	}
	if index := upper + 1 - encoding.offset; index >= 0 && index < len(encoding.targets) {
		// The objective bound is a constraint as well
		encoding.clause(encoding.targets[index].Not())
	}

	g := gini.New()
	encoding.circuit.ToCnf(g)
	for _, clause := range encoding.clauses {
		for _, literal := range clause {
			g.Add(literal)
		}
		g.Add(z.LitNull)
	}
	logger.Debug().Int("variables", int(g.MaxVar())).Int("clauses", len(encoding.clauses)).Msg("gini encoding built")

	solution := &Solution{Status: Unknown, Bound: upper}
	incumbent := 0
	for {
		if solution.HasIncumbent() {
			if incumbent >= upper || (limits.MaxGap > 0 && RelativeGap(incumbent, upper) <= limits.MaxGap) {
				solution.Status = Optimal
				break
			}
			// Ask for a strictly better assignment
			g.Assume(encoding.targets[incumbent+1-encoding.offset])
		}

		result := solver.run(ctx, g, limit)
		if result == 1 {
			solution.Values = encoding.values(g)
			incumbent = sign * model.Evaluate(solution.Values)
			logger.Debug().Int("objective", incumbent).Dur("elapsed", time.Since(start)).Msg("gini found an incumbent")
			continue
		} else if result == -1 {
			if !solution.HasIncumbent() {
				solution.Status = Infeasible
				break
			}
			upper = incumbent
			solution.Status = Optimal
			break
		}

		if solution.HasIncumbent() {
			solution.Status = stoppedStatus(ctx)
		}
		break
	}

	solution.Elapsed = time.Since(start)
	if solution.HasIncumbent() {
		solution.Objective = model.Evaluate(solution.Values)
		solution.Gap = RelativeGap(incumbent, upper)
		if solution.Status == Optimal && incumbent == upper {
			solution.Gap = 0
		}
	}
	solution.Bound = sign * upper
	return solution, nil
}

// Runs a single solve on gini's own goroutine, stopping it on cancellation or deadline
func (solver *giniSolver) run(ctx context.Context, g *gini.Gini, limit time.Time) int {
	solve := g.GoSolve()
	ticker := time.NewTicker(giniPollInterval)
	defer ticker.Stop()

	for {
		if result, done := solve.Test(); done {
			return result
		}
		select {
		case <-ctx.Done():
			return solve.Stop()
		case <-ticker.C:
			if !limit.IsZero() && !time.Now().Before(limit) {
				return solve.Stop()
			}
		}
	}
}

func newGiniEncoding(model *Model) *giniEncoding {
	circuit := logic.NewC()
	encoding := &giniEncoding{
		circuit: circuit,
		vars:    make([]z.Lit, len(model.Vars)),
		clauses: make([][]z.Lit, 0, len(model.Constraints)),
	}
	for i, variable := range model.Vars {
		encoding.vars[i] = circuit.Lit()
		if variable.Upper == 0 {
			encoding.clause(encoding.vars[i].Not())
		}
	}

	for _, constraint := range model.Constraints {
		for _, pb := range toPseudoBoolean(constraint) {
			encoding.add(pb)
		}
	}

	literals, offset := normalizedObjective(model)
	encoding.offset = offset
	total := lo.SumBy(literals, func(literal weightedLiteral) int { return literal.Weight })
	encoding.targets = make([]z.Lit, total+1)
	encoding.targets[0] = circuit.T
	if total > 0 {
		sorted := circuit.CardSort(encoding.replicate(literals))
		for value := 1; value <= total; value++ {
			encoding.targets[value] = sorted.Geq(value)
		}
	}

	return encoding
}

func (encoding *giniEncoding) add(constraint pbConstraint) {
	if constraint.tautology() {
		return
	}

	var guard []z.Lit
	if constraint.Indicator != nil {
		guard = []z.Lit{encoding.lit(constraint.Indicator.offLiteral())}
	}
	guarded := func(literals ...z.Lit) []z.Lit {
		clause := make([]z.Lit, 0, len(guard)+len(literals))
		clause = append(clause, guard...)
		return append(clause, literals...)
	}

	if constraint.contradiction() {
		if guard == nil {
			encoding.contradiction = true
			return
		}
		// The indicator must stay off
		encoding.clause(guard...)
		return
	}

	// A false literal consumes its weight from the slack. Literals heavier than the slack must hold and a literal
	// weighing exactly the slack forces every other literal once it is false
	slack := constraint.totalWeight() - constraint.AtLeast
	for i, literal := range constraint.Literals {
		if literal.Weight < slack {
			continue
		} else if literal.Weight > slack {
			encoding.clause(guarded(encoding.lit(literal.literal))...)
			continue
		}
		for j, other := range constraint.Literals {
			if i != j {
				encoding.clause(guarded(encoding.lit(literal.literal), encoding.lit(other.literal))...)
			}
		}
	}
	light := lo.Filter(constraint.Literals, func(literal weightedLiteral, _ int) bool { return literal.Weight < slack })

	// With every heavy literal true the light ones keep the whole slack
	remainder := pbConstraint{Literals: light}
	remainder.AtLeast = remainder.totalWeight() - slack
	if remainder.tautology() {
		return
	}

	literals := lo.Map(remainder.Literals, func(literal weightedLiteral, _ int) z.Lit { return encoding.lit(literal.literal) })
	switch {
	case lo.EveryBy(remainder.Literals, func(literal weightedLiteral) bool { return literal.Weight >= remainder.AtLeast }):
		// Any single true literal satisfies the constraint
		encoding.clause(guarded(literals...)...)
	case remainder.AtLeast == remainder.totalWeight():
		// Every literal must be true
		for _, literal := range literals {
			encoding.clause(guarded(literal)...)
		}
	default:
		sorted := encoding.circuit.CardSort(encoding.replicate(remainder.Literals))
		encoding.clause(guarded(sorted.Geq(remainder.AtLeast))...)
	}
}

// Expands weighted literals into a multiset of literals so that cardinality equals weighted sum
func (encoding *giniEncoding) replicate(literals []weightedLiteral) []z.Lit {
	replicated := make([]z.Lit, 0, len(literals))
	for _, literal := range literals {
		for range literal.Weight {
			replicated = append(replicated, encoding.lit(literal.literal))
		}
	}
	return replicated
}

func (encoding *giniEncoding) lit(literal literal) z.Lit {
	if literal.Negated {
		return encoding.vars[literal.Var].Not()
	}
	return encoding.vars[literal.Var]
}

func (encoding *giniEncoding) clause(literals ...z.Lit) {
	encoding.clauses = append(encoding.clauses, literals)
}

func (encoding *giniEncoding) values(g *gini.Gini) []bool {
	maxVar := g.MaxVar()
	return lo.Map(encoding.vars, func(literal z.Lit, _ int) bool {
		return literal.Var() <= maxVar && g.Value(literal)
	})
}
