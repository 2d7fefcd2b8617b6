package model

import (
	"github.com/limaJavier/seating/pkg/milp"
)

type SeatState int

const (
	Unusable SeatState = iota
	Empty
	Occupied
)

// String renders the state as a chart character: 0 unusable, 1 empty, x occupied
func (state SeatState) String() string {
	switch state {
	case Empty:
		return "1"
	case Occupied:
		return "x"
	}
	return "0"
}

// Block is a run of Size contiguous seats in one row assigned to a single group, anchored at its leftmost seat
type Block struct {
	Row    int
	Column int
	Size   int
}

// End returns the column of the block's rightmost seat
func (block Block) End() int {
	return block.Column + block.Size - 1
}

type ClassStats struct {
	Size            int
	RequestedGroups int
	RequestedPeople int
	SeatedGroups    int
	SeatedPeople    int
}

// Seating is a decoded assignment
type Seating struct {
	Layout Layout
	Demand Demand
	Blocks []Block
	// Row-major seat states
	Grid    []SeatState
	Classes [MaxGroupSize]ClassStats

	SeatedPeople   int
	UsableSeats    int
	DemandedPeople int
	// Seated people over usable seats
	Utilization float64
	// Demanded people over usable seats, as if there were no spacing rule
	TheoreticalUtilization float64
}

func (seating Seating) State(row, column int) SeatState {
	if !seating.Layout.Contains(row, column) {
		return Unusable
	}
	return seating.Grid[seating.Layout.offset(row, column)]
}

// Decode rebuilds the seating from the anchors of the assignment. A nil solution or a solution without incumbent
// decodes to the empty seating
func Decode(program *Program, solution *milp.Solution) Seating {
	var values []bool
	if solution != nil {
		values = solution.Values
	}

	blocks := make([]Block, 0)
	for row := 1; row <= program.Layout.Rows(); row++ {
		for column := 1; column <= program.Layout.Columns(); column++ {
			for class := 1; class <= MaxGroupSize; class++ {
				index := program.indexer.Index(startsFamily, row, column, class)
				if index < len(values) && values[index] {
					blocks = append(blocks, Block{Row: row, Column: column, Size: class})
				}
			}
		}
	}

	return NewSeating(program.Layout, program.Demand, blocks)
}

// NewSeating computes the chart and statistics of a set of blocks. Blocks are not validated, seats outside the grid
// are ignored
func NewSeating(layout Layout, demand Demand, blocks []Block) Seating {
	seating := Seating{
		Layout:         layout,
		Demand:         demand,
		Blocks:         blocks,
		Grid:           make([]SeatState, layout.Rows()*layout.Columns()),
		UsableSeats:    layout.UsableSeats(),
		DemandedPeople: demand.People(),
	}

	for row := 1; row <= layout.Rows(); row++ {
		for column := 1; column <= layout.Columns(); column++ {
			if layout.Usable(row, column) {
				seating.Grid[layout.offset(row, column)] = Empty
			}
		}
	}

	for size := 1; size <= MaxGroupSize; size++ {
		seating.Classes[size-1] = ClassStats{
			Size:            size,
			RequestedGroups: demand.Count(size),
			RequestedPeople: demand.ClassPeople(size),
		}
	}

	for _, block := range blocks {
		for column := block.Column; column <= block.End(); column++ {
			if layout.Contains(block.Row, column) {
				seating.Grid[layout.offset(block.Row, column)] = Occupied
			}
		}
		if block.Size >= 1 && block.Size <= MaxGroupSize {
			seating.Classes[block.Size-1].SeatedGroups++
			seating.Classes[block.Size-1].SeatedPeople += block.Size
		}
		seating.SeatedPeople += block.Size
	}

	if seating.UsableSeats > 0 {
		seating.Utilization = float64(seating.SeatedPeople) / float64(seating.UsableSeats)
		seating.TheoreticalUtilization = float64(seating.DemandedPeople) / float64(seating.UsableSeats)
	}

	return seating
}
