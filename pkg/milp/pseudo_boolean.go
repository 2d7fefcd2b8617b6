package milp

import (
	"slices"

	"github.com/samber/lo"
)

// literal is a variable or its negation
type literal struct {
	Var     int
	Negated bool
}

type weightedLiteral struct {
	literal
	Weight int
}

// pbConstraint is a normalized pseudo-boolean constraint: sum(weight * literal) >= atLeast with positive weights
type pbConstraint struct {
	Literals  []weightedLiteral
	AtLeast   int
	Indicator *Indicator
}

func (constraint pbConstraint) totalWeight() int {
	return lo.SumBy(constraint.Literals, func(literal weightedLiteral) int { return literal.Weight })
}

// Trivially satisfied regardless of the assignment
func (constraint pbConstraint) tautology() bool {
	return constraint.AtLeast <= 0
}

// Impossible to satisfy regardless of the assignment
func (constraint pbConstraint) contradiction() bool {
	return constraint.AtLeast > constraint.totalWeight()
}

// offLiteral returns the literal that is true exactly when the indicator disables the constraint
func (indicator *Indicator) offLiteral() literal {
	return literal{Var: indicator.Var, Negated: indicator.Value}
}

// unconditional folds the indicator into the constraint: the off literal alone reaches the bound
func (constraint pbConstraint) unconditional() pbConstraint {
	if constraint.Indicator == nil {
		return constraint
	}

	literals := append(slices.Clone(constraint.Literals), weightedLiteral{constraint.Indicator.offLiteral(), constraint.AtLeast})
	atLeast := constraint.AtLeast
	terms := make([]Term, 0, len(literals))
	for _, literal := range literals {
		// w * not(x) = w - w * x
		if literal.Negated {
			terms = append(terms, Term{Var: literal.Var, Coef: -literal.Weight})
			atLeast -= literal.Weight
		} else {
			terms = append(terms, Term{Var: literal.Var, Coef: literal.Weight})
		}
	}
	return normalize(terms, atLeast, nil)
}

// Rewrites a linear constraint as one or two normalized pseudo-boolean constraints
func toPseudoBoolean(constraint Constraint) []pbConstraint {
	switch constraint.Sense {
	case GreaterEqual:
		return []pbConstraint{normalize(constraint.Terms, constraint.RHS, constraint.Indicator)}
	case LessEqual:
		return []pbConstraint{normalize(negate(constraint.Terms), -constraint.RHS, constraint.Indicator)}
	default:
		return []pbConstraint{
			normalize(constraint.Terms, constraint.RHS, constraint.Indicator),
			normalize(negate(constraint.Terms), -constraint.RHS, constraint.Indicator),
		}
	}
}

// sum(a*x) >= b  becomes  sum(|a| * l) >= b - sum(negative a), where l = x for positive a and l = not x otherwise
func normalize(terms []Term, atLeast int, indicator *Indicator) pbConstraint {
	merged := mergeTerms(terms)

	literals := make([]weightedLiteral, 0, len(merged))
	for _, term := range merged {
		if term.Coef == 0 {
			continue
		}
		if term.Coef < 0 {
			atLeast -= term.Coef
			literals = append(literals, weightedLiteral{literal{term.Var, true}, -term.Coef})
		} else {
			literals = append(literals, weightedLiteral{literal{term.Var, false}, term.Coef})
		}
	}

	return pbConstraint{Literals: literals, AtLeast: atLeast, Indicator: indicator}
}

// Objective in maximization form: offset + sum(weight * literal)
func normalizedObjective(model *Model) (literals []weightedLiteral, offset int) {
	terms := model.Objective
	if !model.Maximize {
		terms = negate(terms)
	}

	// Variables fixed to zero never contribute
	terms = lo.Filter(mergeTerms(terms), func(term Term, _ int) bool { return model.Vars[term.Var].Upper != 0 })

	objective := normalize(terms, 0, nil)
	return objective.Literals, -objective.AtLeast
}

func negate(terms []Term) []Term {
	return lo.Map(terms, func(term Term, _ int) Term { return Term{Var: term.Var, Coef: -term.Coef} })
}

// Sums the coefficients of repeated variables, keeping the first-appearance order
func mergeTerms(terms []Term) []Term {
	positions := make(map[int]int, len(terms))
	merged := make([]Term, 0, len(terms))
	for _, term := range terms {
		if position, ok := positions[term.Var]; ok {
			merged[position].Coef += term.Coef
			continue
		}
		positions[term.Var] = len(merged)
		merged = append(merged, term)
	}
	return slices.Clip(merged)
}
