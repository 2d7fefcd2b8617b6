package milp

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

func (sense Sense) String() string {
	switch sense {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	}
	return fmt.Sprintf("Sense(%d)", int(sense))
}

// Var is a binary decision variable. An Upper bound of 0 fixes the variable to zero
type Var struct {
	Name  string
	Upper int
}

type Term struct {
	Var  int
	Coef int
}

// Indicator makes a constraint conditional: it is only enforced when variable Var takes Value
type Indicator struct {
	Var   int
	Value bool
}

type Constraint struct {
	Name      string
	Terms     []Term
	Sense     Sense
	RHS       int
	Indicator *Indicator
}

// Model is an immutable binary program: binary variables, linear (optionally indicator) constraints and a linear objective
type Model struct {
	Name        string
	Vars        []Var
	Constraints []Constraint
	Objective   []Term
	Maximize    bool

	// ObjectiveBound optionally caps the objective: no feasible assignment exceeds it when maximizing (or falls below it
	// when minimizing). Solvers use it to prove optimality and Feasible enforces it
	ObjectiveBound *int
}

// Activity returns the left-hand side value of the constraint under the given assignment
func (constraint Constraint) Activity(values []bool) int {
	return lo.SumBy(constraint.Terms, func(term Term) int {
		if valueOf(values, term.Var) {
			return term.Coef
		}
		return 0
	})
}

// Satisfied reports whether the constraint holds under the given assignment (an inactive indicator constraint always holds)
func (constraint Constraint) Satisfied(values []bool) bool {
	if constraint.Indicator != nil && valueOf(values, constraint.Indicator.Var) != constraint.Indicator.Value {
		return true
	}

	activity := constraint.Activity(values)
	switch constraint.Sense {
	case LessEqual:
		return activity <= constraint.RHS
	case GreaterEqual:
		return activity >= constraint.RHS
	default:
		return activity == constraint.RHS
	}
}

// Evaluate returns the objective value of the given assignment
func (model *Model) Evaluate(values []bool) int {
	return lo.SumBy(model.Objective, func(term Term) int {
		if valueOf(values, term.Var) {
			return term.Coef
		}
		return 0
	})
}

// Bound returns the best objective value attainable when every constraint is ignored, tightened by ObjectiveBound
func (model *Model) Bound() int {
	bound := lo.SumBy(model.Objective, func(term Term) int {
		if model.Vars[term.Var].Upper == 0 {
			return 0
		}
		if (term.Coef > 0) == model.Maximize {
			return term.Coef
		}
		return 0
	})
	if model.ObjectiveBound == nil {
		return bound
	}
	if model.Maximize {
		return min(bound, *model.ObjectiveBound)
	}
	return max(bound, *model.ObjectiveBound)
}

// boundConstraint expresses ObjectiveBound as a linear constraint over the objective
func (model *Model) boundConstraint() (Constraint, bool) {
	if model.ObjectiveBound == nil {
		return Constraint{}, false
	}
	return Constraint{
		Name:  "objective_bound",
		Terms: model.Objective,
		Sense: lo.Ternary(model.Maximize, LessEqual, GreaterEqual),
		RHS:   *model.ObjectiveBound,
	}, true
}

// Feasible checks the assignment against every bound and constraint, returning the first violation found
func (model *Model) Feasible(values []bool) error {
	if len(values) != 0 && len(values) != len(model.Vars) {
		return fmt.Errorf("assignment has %d values, expected %d", len(values), len(model.Vars))
	}

	for i, variable := range model.Vars {
		if variable.Upper == 0 && valueOf(values, i) {
			return fmt.Errorf("variable %v is fixed to 0", variable.Name)
		}
	}

	for i, constraint := range model.Constraints {
		if !constraint.Satisfied(values) {
			return fmt.Errorf("constraint %v violated: %v %v %v", constraintName(constraint, i), constraint.Activity(values), constraint.Sense, constraint.RHS)
		}
	}

	if bound, ok := model.boundConstraint(); ok && !bound.Satisfied(values) {
		return fmt.Errorf("objective %v violates the objective bound %v", model.Evaluate(values), bound.RHS)
	}
	return nil
}

// Linearize returns a copy of the model where every indicator constraint is rewritten as a big-M linear constraint.
// M is chosen as the largest amount by which the constraint's activity can exceed its right-hand side, so the constraint
// is non-binding whenever the indicator is off. Indicator constraints that can never be violated are dropped
func (model *Model) Linearize() *Model {
	linearized := &Model{
		Name:        model.Name,
		Vars:        model.Vars,
		Constraints: make([]Constraint, 0, len(model.Constraints)),
		Objective:   model.Objective,
		Maximize:    model.Maximize,

		ObjectiveBound: model.ObjectiveBound,
	}

	for _, constraint := range model.Constraints {
		if constraint.Indicator == nil {
			linearized.Constraints = append(linearized.Constraints, constraint)
			continue
		}

		if constraint.Sense == Equal {
			for _, sense := range []Sense{LessEqual, GreaterEqual} {
				half := constraint
				half.Sense = sense
				half.Name = fmt.Sprintf("%v_%v", constraint.Name, lo.Ternary(sense == LessEqual, "le", "ge"))
				if linear, ok := bigM(half); ok {
					linearized.Constraints = append(linearized.Constraints, linear)
				}
			}
			continue
		}

		if linear, ok := bigM(constraint); ok {
			linearized.Constraints = append(linearized.Constraints, linear)
		}
	}

	return linearized
}

// Transforms "z = v -> terms (<=|>=) rhs" into a plain linear constraint
func bigM(constraint Constraint) (Constraint, bool) {
	maxActivity := lo.SumBy(constraint.Terms, func(term Term) int { return max(term.Coef, 0) })
	minActivity := lo.SumBy(constraint.Terms, func(term Term) int { return min(term.Coef, 0) })

	var m int
	if constraint.Sense == LessEqual {
		m = maxActivity - constraint.RHS
	} else {
		m = constraint.RHS - minActivity
	}
	if m <= 0 {
		return Constraint{}, false
	}

	indicator := constraint.Indicator
	terms := make([]Term, len(constraint.Terms), len(constraint.Terms)+1)
	copy(terms, constraint.Terms)
	rhs := constraint.RHS

	// LessEqual:    terms + M*z <= rhs + M   (z = 1 active)   |   terms - M*z <= rhs   (z = 0 active)
	// GreaterEqual: terms - M*z >= rhs - M   (z = 1 active)   |   terms + M*z >= rhs   (z = 0 active)
	sign := 1
	if constraint.Sense == GreaterEqual {
		sign = -1
	}
	if indicator.Value {
		terms = append(terms, Term{Var: indicator.Var, Coef: sign * m})
		rhs += sign * m
	} else {
		terms = append(terms, Term{Var: indicator.Var, Coef: -sign * m})
	}

	return Constraint{
		Name:  constraint.Name,
		Terms: terms,
		Sense: constraint.Sense,
		RHS:   rhs,
	}, true
}

// ToLP renders the model in CPLEX LP format. Indicator constraints are written with the "z = 1 ->" syntax;
// call Linearize first for solvers that do not read it
func (model *Model) ToLP() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "\\ %v\n", model.Name)
	if model.Maximize {
		builder.WriteString("Maximize\n")
	} else {
		builder.WriteString("Minimize\n")
	}
	builder.WriteString(" obj:")
	model.writeTerms(&builder, model.Objective)
	builder.WriteString("\n")

	builder.WriteString("Subject To\n")
	constraints := model.Constraints
	if bound, ok := model.boundConstraint(); ok && len(bound.Terms) > 0 {
		constraints = append(constraints[:len(constraints):len(constraints)], bound)
	}
	for i, constraint := range constraints {
		fmt.Fprintf(&builder, " %v:", constraintName(constraint, i))
		if constraint.Indicator != nil {
			fmt.Fprintf(&builder, " %v = %v ->", model.Vars[constraint.Indicator.Var].Name, lo.Ternary(constraint.Indicator.Value, 1, 0))
		}
		model.writeTerms(&builder, constraint.Terms)
		fmt.Fprintf(&builder, " %v %d\n", constraint.Sense, constraint.RHS)
	}

	fixed := lo.Filter(model.Vars, func(variable Var, _ int) bool { return variable.Upper == 0 })
	if len(fixed) > 0 {
		builder.WriteString("Bounds\n")
		for _, variable := range fixed {
			fmt.Fprintf(&builder, " %v = 0\n", variable.Name)
		}
	}

	builder.WriteString("Binaries\n")
	for i, variable := range model.Vars {
		fmt.Fprintf(&builder, " %v", variable.Name)
		if (i+1)%10 == 0 {
			builder.WriteString("\n")
		}
	}
	builder.WriteString("\nEnd\n")

	return builder.String()
}

func (model *Model) writeTerms(builder *strings.Builder, terms []Term) {
	if len(terms) == 0 {
		// LP files do not accept an empty expression
		if len(model.Vars) > 0 {
			fmt.Fprintf(builder, " 0 %v", model.Vars[0].Name)
		}
		return
	}
	for i, term := range terms {
		if i > 0 && i%8 == 0 {
			builder.WriteString("\n  ")
		}
		if term.Coef < 0 {
			fmt.Fprintf(builder, " - %d %v", -term.Coef, model.Vars[term.Var].Name)
		} else {
			fmt.Fprintf(builder, " + %d %v", term.Coef, model.Vars[term.Var].Name)
		}
	}
}

func constraintName(constraint Constraint, index int) string {
	if constraint.Name != "" {
		return constraint.Name
	}
	return fmt.Sprintf("c%d", index)
}

func valueOf(values []bool, variable int) bool {
	return variable < len(values) && values[variable]
}
