package model

import (
	"fmt"

	"github.com/limaJavier/seating/pkg/milp"
)

type constraintState struct {
	layout      Layout
	demand      Demand
	indexer     indexer
	formulation Formulation

	rows,
	columns int
}

func (state constraintState) occupied(row, column, class int) int {
	return state.indexer.Index(occupiedFamily, row, column, class)
}

func (state constraintState) starts(row, column, class int) int {
	return state.indexer.Index(startsFamily, row, column, class)
}

// Terms over every class of the seat
func (state constraintState) seatTerms(family variableFamily, row, column, coef int) []milp.Term {
	terms := make([]milp.Term, 0, MaxGroupSize)
	for class := 1; class <= MaxGroupSize; class++ {
		terms = append(terms, milp.Term{Var: state.indexer.Index(family, row, column, class), Coef: coef})
	}
	return terms
}

// Whether a block of the given class anchored at the column fits inside the row
func (state constraintState) fits(column, class int) bool {
	return column+class-1 <= state.columns
}

// sum_k occupied[i,j,k] = 0 for every unusable seat
func usabilityConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0)
	for row := 1; row <= state.rows; row++ {
		for column := 1; column <= state.columns; column++ {
			if state.layout.Usable(row, column) {
				continue
			}
			constraints = append(constraints, milp.Constraint{
				Name:  fmt.Sprintf("unusable_%d_%d", row, column),
				Terms: state.seatTerms(occupiedFamily, row, column, 1),
				Sense: milp.Equal,
				RHS:   0,
			})
		}
	}
	return constraints
}

// starts[i,j,k] <= occupied[i,j,k]
func anchorConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0, state.rows*state.columns*MaxGroupSize)
	for row := 1; row <= state.rows; row++ {
		for column := 1; column <= state.columns; column++ {
			for class := 1; class <= MaxGroupSize; class++ {
				if !state.fits(column, class) {
					continue
				}
				constraints = append(constraints, milp.Constraint{
					Name: fmt.Sprintf("anchor_%d_%d_%d", row, column, class),
					Terms: []milp.Term{
						{Var: state.starts(row, column, class), Coef: 1},
						{Var: state.occupied(row, column, class), Coef: -1},
					},
					Sense: milp.LessEqual,
					RHS:   0,
				})
			}
		}
	}
	return constraints
}

// sum_{i,j} occupied[i,j,k] <= k * count[k], with count[k] capped at the grid size since no class fills more seats
func demandConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0, MaxGroupSize)
	for class := 1; class <= MaxGroupSize; class++ {
		terms := make([]milp.Term, 0, state.rows*state.columns)
		for row := 1; row <= state.rows; row++ {
			for column := 1; column <= state.columns; column++ {
				terms = append(terms, milp.Term{Var: state.occupied(row, column, class), Coef: 1})
			}
		}
		constraints = append(constraints, milp.Constraint{
			Name:  fmt.Sprintf("demand_%d", class),
			Terms: terms,
			Sense: milp.LessEqual,
			RHS:   class * min(state.demand.Count(class), state.rows*state.columns),
		})
	}
	return constraints
}

// sum_k starts[i,j,k] <= 1 and sum_k occupied[i,j,k] <= 1
func uniquenessConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0, 2*state.rows*state.columns)
	for row := 1; row <= state.rows; row++ {
		for column := 1; column <= state.columns; column++ {
			constraints = append(constraints,
				milp.Constraint{
					Name:  fmt.Sprintf("single_anchor_%d_%d", row, column),
					Terms: state.seatTerms(startsFamily, row, column, 1),
					Sense: milp.LessEqual,
					RHS:   1,
				},
				milp.Constraint{
					Name:  fmt.Sprintf("single_class_%d_%d", row, column),
					Terms: state.seatTerms(occupiedFamily, row, column, 1),
					Sense: milp.LessEqual,
					RHS:   1,
				},
			)
		}
	}
	return constraints
}

// An occupied seat empties the seats directly above and below it along with their diagonals
func spacingConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0, state.rows*state.columns)
	for row := 1; row <= state.rows; row++ {
		for column := 1; column <= state.columns; column++ {
			neighbors := make([]milp.Term, 0, 6*MaxGroupSize)
			for _, neighborRow := range []int{row - 1, row + 1} {
				for neighborColumn := column - 1; neighborColumn <= column+1; neighborColumn++ {
					if state.layout.Contains(neighborRow, neighborColumn) {
						neighbors = append(neighbors, state.seatTerms(occupiedFamily, neighborRow, neighborColumn, 1)...)
					}
				}
			}
			if len(neighbors) == 0 {
				continue
			}

			name := fmt.Sprintf("spacing_%d_%d", row, column)
			if state.formulation == Indicator {
				// occupied[i,j,k] = 1 -> sum(neighbors) <= 0
				for class := 1; class <= MaxGroupSize; class++ {
					constraints = append(constraints, milp.Constraint{
						Name:      fmt.Sprintf("%v_%d", name, class),
						Terms:     neighbors,
						Sense:     milp.LessEqual,
						RHS:       0,
						Indicator: &milp.Indicator{Var: state.occupied(row, column, class), Value: true},
					})
				}
				continue
			}

			// M * (1 - sum_k occupied[i,j,k]) >= sum(neighbors), with M the number of neighbor terms
			m := len(neighbors)
			constraints = append(constraints, milp.Constraint{
				Name:  name,
				Terms: append(neighbors, state.seatTerms(occupiedFamily, row, column, m)...),
				Sense: milp.LessEqual,
				RHS:   m,
			})
		}
	}
	return constraints
}

// A block of size k anchored at (i,j) occupies (i,j+1)...(i,j+k-1) with the same class
func forwardContiguityConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0)
	for row := 1; row <= state.rows; row++ {
		for column := 1; column <= state.columns; column++ {
			for class := 2; class <= MaxGroupSize && state.fits(column, class); class++ {
				tail := make([]milp.Term, 0, class-1)
				for offset := 1; offset < class; offset++ {
					tail = append(tail, milp.Term{Var: state.occupied(row, column+offset, class), Coef: 1})
				}

				constraint := milp.Constraint{
					Name:  fmt.Sprintf("forward_%d_%d_%d", row, column, class),
					Terms: tail,
					Sense: milp.GreaterEqual,
				}
				if state.formulation == Indicator {
					// starts[i,j,k] = 1 -> sum(tail) >= k-1
					constraint.RHS = class - 1
					constraint.Indicator = &milp.Indicator{Var: state.starts(row, column, class), Value: true}
				} else {
					// (k-1) * starts[i,j,k] <= sum(tail)
					constraint.Terms = append(tail, milp.Term{Var: state.starts(row, column, class), Coef: -(class - 1)})
				}
				constraints = append(constraints, constraint)
			}
		}
	}
	return constraints
}

// No block of the same class may start inside the tail of a block
func reverseContiguityConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0)
	for row := 1; row <= state.rows; row++ {
		for column := 1; column <= state.columns; column++ {
			for class := 2; class <= MaxGroupSize && state.fits(column, class); class++ {
				tail := make([]milp.Term, 0, class-1)
				for offset := 1; offset < class; offset++ {
					tail = append(tail, milp.Term{Var: state.starts(row, column+offset, class), Coef: 1})
				}

				constraint := milp.Constraint{
					Name:  fmt.Sprintf("reverse_%d_%d_%d", row, column, class),
					Terms: tail,
					Sense: milp.LessEqual,
				}
				if state.formulation == Indicator {
					// starts[i,j,k] = 1 -> sum(tail starts) <= 0
					constraint.Indicator = &milp.Indicator{Var: state.starts(row, column, class), Value: true}
				} else {
					// (k-1) * (1 - starts[i,j,k]) >= sum(tail starts)
					constraint.Terms = append(tail, milp.Term{Var: state.starts(row, column, class), Coef: class - 1})
					constraint.RHS = class - 1
				}
				constraints = append(constraints, constraint)
			}
		}
	}
	return constraints
}

// The seat right after a block stays empty
func gapConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0)
	for row := 1; row <= state.rows; row++ {
		for column := 1; column <= state.columns; column++ {
			for class := 1; class <= MaxGroupSize; class++ {
				gap := column + class
				if gap > state.columns {
					break
				}

				constraint := milp.Constraint{
					Name:  fmt.Sprintf("gap_%d_%d_%d", row, column, class),
					Terms: state.seatTerms(occupiedFamily, row, gap, 1),
					Sense: milp.LessEqual,
				}
				if state.formulation == Indicator {
					// starts[i,j,k] = 1 -> sum_s occupied[i,j+k,s] <= 0
					constraint.Indicator = &milp.Indicator{Var: state.starts(row, column, class), Value: true}
				} else {
					// M * (1 - starts[i,j,k]) >= sum_s occupied[i,j+k,s]
					constraint.Terms = append(constraint.Terms, milp.Term{Var: state.starts(row, column, class), Coef: MaxGroupSize})
					constraint.RHS = MaxGroupSize
				}
				constraints = append(constraints, constraint)
			}
		}
	}
	return constraints
}
