package instance

import (
	"math/rand/v2"
	"strings"

	"github.com/limaJavier/seating/pkg/model"
)

// Parameters of a random venue
type Parameters struct {
	Rows    int
	Columns int
	// Probability of a seat being usable
	Usable float64
	// Upper bound (inclusive) on the number of groups requested for each size
	MaxGroups int
}

// Generate builds a random, valid input with the given source of randomness
func Generate(rng *rand.Rand, parameters Parameters) model.Input {
	input := model.Input{
		Rows:    parameters.Rows,
		Columns: parameters.Columns,
		Seats:   make([]string, parameters.Rows),
		Groups:  make([]int, model.MaxGroupSize),
	}

	for i := range parameters.Rows {
		var builder strings.Builder
		for range parameters.Columns {
			if rng.Float64() < parameters.Usable {
				builder.WriteByte('1')
			} else {
				builder.WriteByte('0')
			}
		}
		input.Seats[i] = builder.String()
	}

	for i := range input.Groups {
		input.Groups[i] = rng.IntN(parameters.MaxGroups + 1)
	}

	return input
}

// AssertSeating checks that a plan is consistent with its own input: the blocks satisfy every seating rule and the
// reported statistics match the blocks
func AssertSeating(input model.Input, plan model.Plan) bool {
	layout, err := input.Layout()
	if err != nil {
		return false
	}
	demand, err := input.Demand()
	if err != nil {
		return false
	}
	if !model.Verify(layout, demand, plan.Blocks) {
		return false
	}

	seated := 0
	for _, block := range plan.Blocks {
		seated += block.Size
		for column := block.Column; column <= block.End(); column++ {
			if plan.State(block.Row, column) != model.Occupied {
				return false
			}
		}
	}

	occupied := 0
	for row := 1; row <= layout.Rows(); row++ {
		for column := 1; column <= layout.Columns(); column++ {
			state := plan.State(row, column)
			if (state == model.Unusable) == layout.Usable(row, column) {
				return false
			}
			if state == model.Occupied {
				occupied++
			}
		}
	}

	return seated == plan.SeatedPeople && occupied == seated
}
