package model

import (
	"fmt"
	"strings"

	"github.com/limaJavier/seating/pkg/milp"
	"github.com/samber/lo"
)

// Formulation selects how the conditional seating rules are written
type Formulation int

const (
	// Big-M linear constraints, understood by every backend
	BigM Formulation = iota
	// Indicator constraints, linearized by the backends that do not support them
	Indicator
)

func (formulation Formulation) String() string {
	if formulation == Indicator {
		return "indicator"
	}
	return "bigm"
}

func ParseFormulation(name string) (Formulation, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "", "bigm":
		return BigM, nil
	case "indicator":
		return Indicator, nil
	}
	return BigM, fmt.Errorf("%v is not a valid formulation: allowed values are bigm, indicator", name)
}

// Program is a compiled seating instance
type Program struct {
	Model       *milp.Model
	Layout      Layout
	Demand      Demand
	Formulation Formulation

	indexer indexer
}

func (program *Program) Variables() int {
	return len(program.Model.Vars)
}

func (program *Program) Constraints() int {
	return len(program.Model.Constraints)
}

// Compile validates the input and builds the binary program maximizing the number of seated people
func Compile(input Input, formulation Formulation) (*Program, error) {
	layout, err := input.Layout()
	if err != nil {
		return nil, err
	}
	demand, err := input.Demand()
	if err != nil {
		return nil, err
	}
	return CompileLayout(layout, demand, formulation), nil
}

// CompileLayout builds the program of an already validated layout and demand
func CompileLayout(layout Layout, demand Demand, formulation Formulation) *Program {
	rows, columns := layout.Rows(), layout.Columns()
	indexer := newIndexer(rows, columns)

	//** Declare variables
	vars := make([]milp.Var, indexer.Variables())
	for index := range vars {
		family, row, column, class := indexer.Attributes(index)
		vars[index] = milp.Var{
			Name:  fmt.Sprintf("%v_%d_%d_%d", family, row, column, class),
			Upper: 1,
		}
		// A block running off the row can never start
		if family == startsFamily && column+class-1 > columns {
			vars[index].Upper = 0
		}
	}

	//** Objective: sum k * starts[i,j,k]
	objective := make([]milp.Term, 0, rows*columns*MaxGroupSize)
	for row := 1; row <= rows; row++ {
		for column := 1; column <= columns; column++ {
			for class := 1; class <= MaxGroupSize; class++ {
				objective = append(objective, milp.Term{Var: indexer.Index(startsFamily, row, column, class), Coef: class})
			}
		}
	}

	//** Constraints
	constraints := []func(state constraintState) []milp.Constraint{
		usabilityConstraints,
		anchorConstraints,
		demandConstraints,
		uniquenessConstraints,
		spacingConstraints,
		forwardContiguityConstraints,
		reverseContiguityConstraints,
		gapConstraints,
	}

	state := constraintState{
		layout:      layout,
		demand:      demand,
		indexer:     indexer,
		formulation: formulation,
		rows:        rows,
		columns:     columns,
	}

	// Nobody beyond the demanded people or the usable seats can be seated
	model := &milp.Model{
		Name:      "seating",
		Vars:      vars,
		Objective: objective,
		Maximize:  true,

		ObjectiveBound: lo.ToPtr(min(demand.People(), layout.UsableSeats())),
	}
	for _, constraint := range constraints {
		model.Constraints = append(model.Constraints, constraint(state)...)
	}

	return &Program{
		Model:       model,
		Layout:      layout,
		Demand:      demand,
		Formulation: formulation,
		indexer:     indexer,
	}
}
