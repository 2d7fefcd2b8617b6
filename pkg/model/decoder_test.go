package model

import (
	"testing"

	"github.com/limaJavier/seating/pkg/milp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	input := Input{Rows: 2, Columns: 5, Seats: []string{"11101", "10111"}, Groups: []int{2, 1, 0, 0, 0, 0, 0, 0}}
	program, err := Compile(input, BigM)
	require.NoError(t, err)

	values := make([]bool, program.Variables())
	values[program.indexer.Index(startsFamily, 1, 1, 2)] = true
	values[program.indexer.Index(occupiedFamily, 1, 1, 2)] = true
	values[program.indexer.Index(occupiedFamily, 1, 2, 2)] = true
	values[program.indexer.Index(startsFamily, 1, 5, 1)] = true
	values[program.indexer.Index(occupiedFamily, 1, 5, 1)] = true
	// Occupied seats without an anchor are not part of the seating
	values[program.indexer.Index(occupiedFamily, 2, 4, 1)] = true
	solution := &milp.Solution{Status: milp.Optimal, Values: values, Objective: 3, Bound: 3}

	t.Run("Blocks and chart", func(t *testing.T) {
		seating := Decode(program, solution)

		assert.Equal(t, []Block{{Row: 1, Column: 1, Size: 2}, {Row: 1, Column: 5, Size: 1}}, seating.Blocks)
		chart := ""
		for row := 1; row <= 2; row++ {
			for column := 1; column <= 5; column++ {
				chart += seating.State(row, column).String()
			}
			chart += "\n"
		}
		assert.Equal(t, "xx10x\n10111\n", chart)
	})

	t.Run("Statistics", func(t *testing.T) {
		seating := Decode(program, solution)

		assert.Equal(t, 3, seating.SeatedPeople)
		assert.Equal(t, 8, seating.UsableSeats)
		assert.Equal(t, 4, seating.DemandedPeople)
		assert.InDelta(t, 3.0/8.0, seating.Utilization, 1e-9)
		assert.InDelta(t, 4.0/8.0, seating.TheoreticalUtilization, 1e-9)
		assert.Equal(t, ClassStats{Size: 1, RequestedGroups: 2, RequestedPeople: 2, SeatedGroups: 1, SeatedPeople: 1}, seating.Classes[0])
		assert.Equal(t, ClassStats{Size: 2, RequestedGroups: 1, RequestedPeople: 2, SeatedGroups: 1, SeatedPeople: 2}, seating.Classes[1])
		assert.Equal(t, ClassStats{Size: 8}, seating.Classes[7])
	})

	t.Run("Idempotent", func(t *testing.T) {
		assert.Equal(t, Decode(program, solution), Decode(program, solution))
	})

	t.Run("Empty assignment", func(t *testing.T) {
		for _, empty := range []*milp.Solution{nil, {Status: milp.Unknown}, {Status: milp.Optimal, Values: make([]bool, program.Variables())}} {
			seating := Decode(program, empty)

			assert.Empty(t, seating.Blocks)
			assert.Equal(t, 0, seating.SeatedPeople)
			assert.Equal(t, 0.0, seating.Utilization)
			assert.Equal(t, Empty, seating.State(1, 1))
			assert.Equal(t, Unusable, seating.State(1, 4))
		}
	})
}

func TestDecodeWithoutUsableSeats(t *testing.T) {
	program, err := Compile(Input{Rows: 1, Columns: 3, Seats: []string{"000"}, Groups: []int{1, 0, 0, 0, 0, 0, 0, 0}}, BigM)
	require.NoError(t, err)

	seating := Decode(program, nil)

	assert.Equal(t, 0, seating.UsableSeats)
	assert.Equal(t, 0.0, seating.Utilization)
	assert.Equal(t, 0.0, seating.TheoreticalUtilization)
}

func TestVerify(t *testing.T) {
	layout, err := NewLayout(3, 5, []bool{
		true, true, true, false, true,
		true, true, true, true, true,
		true, true, true, true, true,
	})
	require.NoError(t, err)
	demand := Demand{2, 1, 1, 0, 0, 0, 0, 0}

	cases := []struct {
		name   string
		blocks []Block
		valid  bool
	}{
		{"Empty seating", nil, true},
		{"Spaced blocks", []Block{{1, 1, 2}, {1, 5, 1}, {3, 1, 3}}, true},
		{"Unusable seat", []Block{{1, 3, 2}}, false},
		{"Outside the row", []Block{{2, 4, 3}}, false},
		{"Overlapping blocks", []Block{{2, 1, 3}, {2, 2, 1}}, false},
		{"Adjacent blocks", []Block{{2, 1, 1}, {2, 2, 2}}, false},
		{"Vertical neighbors", []Block{{1, 1, 1}, {2, 1, 1}}, false},
		{"Diagonal neighbors", []Block{{1, 2, 1}, {2, 3, 1}}, false},
		{"Demand exceeded", []Block{{1, 1, 1}, {1, 3, 1}, {3, 1, 1}}, false},
		{"Invalid size", []Block{{1, 1, 0}}, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.valid, Verify(layout, demand, c.blocks), c.name)
	}
}
