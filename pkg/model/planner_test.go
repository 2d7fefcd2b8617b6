package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/limaJavier/seating/pkg/milp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plannersUnderTest() map[string]*Planner {
	planners := make(map[string]*Planner)
	for _, solver := range []string{"gini", "gophersat"} {
		for _, formulation := range formulations {
			backend, err := milp.NewSolver(solver, milp.Executables{})
			if err != nil {
				panic(err)
			}
			planners[fmt.Sprintf("%v/%v", solver, formulation)] = NewPlanner(backend, formulation, zerolog.Nop())
		}
	}
	return planners
}

func TestPlannerScenarios(t *testing.T) {
	for name, planner := range plannersUnderTest() {
		t.Run(name, func(t *testing.T) {
			t.Run("Scenario A", func(t *testing.T) {
				input := Input{
					Rows:    5,
					Columns: 5,
					Seats:   []string{"11101", "11101", "11101", "00000", "11111"},
					Groups:  []int{1, 2, 4, 2, 1, 0, 1, 3},
				}

				plan, err := planner.Plan(context.Background(), input, milp.Limits{})

				require.NoError(t, err)
				assert.Equal(t, milp.Optimal, plan.Status)
				assert.True(t, planner.Verify(plan))
				for column := 1; column <= 5; column++ {
					assert.NotEqual(t, Occupied, plan.State(4, column))
				}
				assert.Equal(t, scenarioAOptimum, plan.SeatedPeople)
			})

			t.Run("Scenario B", func(t *testing.T) {
				input := Input{Rows: 1, Columns: 8, Seats: []string{"11111111"}, Groups: []int{0, 0, 0, 0, 0, 0, 0, 1}}

				plan, err := planner.Plan(context.Background(), input, milp.Limits{})

				require.NoError(t, err)
				assert.Equal(t, milp.Optimal, plan.Status)
				assert.Equal(t, 8, plan.SeatedPeople)
				assert.Equal(t, []Block{{Row: 1, Column: 1, Size: 8}}, plan.Blocks)
				assert.InDelta(t, 1.0, plan.Utilization, 1e-9)
			})

			t.Run("Scenario C", func(t *testing.T) {
				input := Input{Rows: 1, Columns: 3, Seats: []string{"111"}, Groups: []int{3, 0, 0, 0, 0, 0, 0, 0}}

				plan, err := planner.Plan(context.Background(), input, milp.Limits{})

				require.NoError(t, err)
				assert.Equal(t, 2, plan.SeatedPeople)
				assert.Equal(t, []Block{{Row: 1, Column: 1, Size: 1}, {Row: 1, Column: 3, Size: 1}}, plan.Blocks)
				assert.Equal(t, 2, plan.Classes[0].SeatedGroups)
				assert.Equal(t, 3, plan.Classes[0].RequestedGroups)
			})

			t.Run("Scenario D", func(t *testing.T) {
				input := Input{Rows: 3, Columns: 4, Seats: []string{"0000", "0000", "0000"}, Groups: []int{4, 3, 2, 1, 1, 1, 1, 1}}

				plan, err := planner.Plan(context.Background(), input, milp.Limits{})

				require.NoError(t, err)
				assert.Equal(t, 0, plan.SeatedPeople)
				assert.Empty(t, plan.Blocks)
				assert.Equal(t, 0.0, plan.Utilization)
			})
		})
	}
}

// Exhaustively checked by seatingOptimum
const scenarioAOptimum = 12

func TestScenarioAOptimum(t *testing.T) {
	input := Input{
		Rows:    5,
		Columns: 5,
		Seats:   []string{"11101", "11101", "11101", "00000", "11111"},
		Groups:  []int{1, 2, 4, 2, 1, 0, 1, 3},
	}
	layout, err := input.Layout()
	require.NoError(t, err)
	demand, err := input.Demand()
	require.NoError(t, err)

	assert.Equal(t, scenarioAOptimum, seatingOptimum(layout, demand))
}

func TestPlannerMatchesExhaustiveSearch(t *testing.T) {
	inputs := []Input{
		{Rows: 2, Columns: 4, Seats: []string{"1111", "1111"}, Groups: []int{2, 1, 0, 1, 0, 0, 0, 0}},
		{Rows: 3, Columns: 4, Seats: []string{"1101", "1111", "0111"}, Groups: []int{3, 2, 1, 0, 0, 0, 0, 0}},
		{Rows: 2, Columns: 6, Seats: []string{"111111", "110011"}, Groups: []int{1, 1, 1, 1, 1, 1, 0, 0}},
		{Rows: 4, Columns: 3, Seats: []string{"111", "111", "111", "111"}, Groups: []int{6, 0, 1, 0, 0, 0, 0, 0}},
		{Rows: 1, Columns: 7, Seats: []string{"1111111"}, Groups: []int{0, 2, 1, 0, 0, 0, 0, 0}},
	}

	planners := plannersUnderTest()
	for i, input := range inputs {
		layout, err := input.Layout()
		require.NoError(t, err)
		demand, err := input.Demand()
		require.NoError(t, err)
		expected := seatingOptimum(layout, demand)

		for name, planner := range planners {
			plan, err := planner.Plan(context.Background(), input, milp.Limits{})

			require.NoError(t, err, "input %d with %v", i, name)
			assert.True(t, planner.Verify(plan), "input %d with %v", i, name)
			assert.Equal(t, expected, plan.SeatedPeople, "input %d with %v", i, name)
		}
	}
}

func TestPlannerErrors(t *testing.T) {
	planner := NewPlanner(milp.NewGiniSolver(), BigM, zerolog.Nop())

	t.Run("Invalid layout", func(t *testing.T) {
		_, err := planner.Plan(context.Background(), Input{Rows: 1, Columns: 5, Seats: []string{"1111"}, Groups: make([]int, 8)}, milp.Limits{})
		assert.ErrorIs(t, err, ErrInvalidLayout)
		assert.Contains(t, err.Error(), "row 1 has length 4, expected 5")
	})

	t.Run("Invalid demand", func(t *testing.T) {
		_, err := planner.Plan(context.Background(), Input{Rows: 1, Columns: 1, Seats: []string{"1"}, Groups: []int{-1, 0, 0, 0, 0, 0, 0, 0}}, milp.Limits{})
		assert.ErrorIs(t, err, ErrInvalidDemand)
	})

	t.Run("Unavailable solver", func(t *testing.T) {
		planner := NewPlanner(milp.NewCbcSolver("cbc-executable-that-does-not-exist"), BigM, zerolog.Nop())
		_, err := planner.Plan(context.Background(), Input{Rows: 1, Columns: 1, Seats: []string{"1"}, Groups: make([]int, 8)}, milp.Limits{})
		assert.ErrorIs(t, err, milp.ErrSolverUnavailable)
	})

	t.Run("Infeasible program", func(t *testing.T) {
		planner := NewPlanner(stubSolver{solution: &milp.Solution{Status: milp.Infeasible}}, BigM, zerolog.Nop())
		_, err := planner.Plan(context.Background(), Input{Rows: 1, Columns: 1, Seats: []string{"1"}, Groups: make([]int, 8)}, milp.Limits{})
		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("Solver failure", func(t *testing.T) {
		failure := errors.New("boom")
		planner := NewPlanner(stubSolver{err: failure}, BigM, zerolog.Nop())
		_, err := planner.Plan(context.Background(), Input{Rows: 1, Columns: 1, Seats: []string{"1"}, Groups: make([]int, 8)}, milp.Limits{})
		assert.ErrorIs(t, err, failure)
	})
}

func TestPlannerHugeDemand(t *testing.T) {
	input := Input{Rows: 1, Columns: 3, Seats: []string{"111"}, Groups: []int{1, 0, 0, 0, 0, 0, 0, 3 << 59}}

	for name, planner := range plannersUnderTest() {
		plan, err := planner.Plan(context.Background(), input, milp.Limits{})

		require.NoError(t, err, name)
		assert.Equal(t, milp.Optimal, plan.Status, name)
		assert.Equal(t, 1, plan.SeatedPeople, name)
		assert.True(t, planner.Verify(plan), name)
	}
}

func TestPlannerGapIsBoundedByDemand(t *testing.T) {
	input := Input{
		Rows:    8,
		Columns: 10,
		Seats:   []string{"1111111111", "1111111111", "1111111111", "1111111111", "1111111111", "1111111111", "1111111111", "1111111111"},
		Groups:  []int{0, 0, 0, 0, 0, 0, 0, 2},
	}

	for name, planner := range plannersUnderTest() {
		//** Act
		plan, err := planner.Plan(context.Background(), input, milp.Limits{TimeLimit: 2 * time.Second, MaxGap: 0.05})

		//** Assert
		require.NoError(t, err, name)
		assert.Equal(t, 16, plan.Bound, name)
		assert.LessOrEqual(t, plan.Gap, 1.0, name)
		assert.Contains(t, []int{0, 8, 16}, plan.SeatedPeople, name)
		assert.True(t, planner.Verify(plan), name)
	}
}

func TestPlannerWithoutIncumbent(t *testing.T) {
	planner := NewPlanner(stubSolver{solution: &milp.Solution{Status: milp.Interrupted, Bound: 4, Elapsed: time.Second}}, BigM, zerolog.Nop())
	input := Input{Rows: 1, Columns: 4, Seats: []string{"1111"}, Groups: []int{0, 0, 0, 1, 0, 0, 0, 0}}

	plan, err := planner.Plan(context.Background(), input, milp.Limits{TimeLimit: time.Second})

	require.NoError(t, err)
	assert.Equal(t, milp.Interrupted, plan.Status)
	assert.Empty(t, plan.Blocks)
	assert.Equal(t, 1.0, plan.Gap)
	assert.True(t, planner.Verify(plan))
}

func TestPlannerInterrupted(t *testing.T) {
	planner := NewPlanner(milp.NewGiniSolver(), BigM, zerolog.Nop())
	input := Input{
		Rows:    5,
		Columns: 5,
		Seats:   []string{"11101", "11101", "11101", "00000", "11111"},
		Groups:  []int{1, 2, 4, 2, 1, 0, 1, 3},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan, err := planner.Plan(ctx, input, milp.Limits{})

	require.NoError(t, err)
	assert.Contains(t, []milp.Status{milp.Optimal, milp.Interrupted, milp.Unknown}, plan.Status)
	assert.True(t, planner.Verify(plan))
}

type stubSolver struct {
	solution *milp.Solution
	err      error
}

func (solver stubSolver) Solve(ctx context.Context, model *milp.Model, limits milp.Limits) (*milp.Solution, error) {
	return solver.solution, solver.err
}

// Best number of seated people over every valid set of blocks
func seatingOptimum(layout Layout, demand Demand) int {
	best := 0
	blocks := make([]Block, 0)
	remaining := demand

	var search func(row, column, seated int)
	search = func(row, column, seated int) {
		if column > layout.Columns() {
			row, column = row+1, 1
		}
		if row > layout.Rows() {
			if seated > best && Verify(layout, demand, blocks) {
				best = seated
			}
			return
		}

		// Leave the seat empty
		search(row, column+1, seated)

		for size := 1; size <= MaxGroupSize; size++ {
			if remaining[size-1] == 0 {
				continue
			}
			block := Block{Row: row, Column: column, Size: size}
			blocks = append(blocks, block)
			if Verify(layout, demand, blocks) {
				remaining[size-1]--
				// The seat after the block stays empty
				search(row, block.End()+2, seated+size)
				remaining[size-1]++
			}
			blocks = blocks[:len(blocks)-1]
		}
	}

	search(1, 1, 0)
	return best
}
