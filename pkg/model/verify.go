package model

// Verify checks a set of blocks against the layout, the demand and the spacing rule without relying on the program
func Verify(layout Layout, demand Demand, blocks []Block) bool {
	owner := make([]int, layout.Rows()*layout.Columns()) // Block number occupying each seat, 0 when empty
	seated := [MaxGroupSize]int{}

	for i, block := range blocks {
		if block.Size < 1 || block.Size > MaxGroupSize {
			return false
		}
		// Check that:
		// - The block lies inside its row
		// - Every seat of the block is usable
		// - No seat is claimed twice
		for column := block.Column; column <= block.End(); column++ {
			if !layout.Usable(block.Row, column) || owner[layout.offset(block.Row, column)] != 0 {
				return false
			}
			owner[layout.offset(block.Row, column)] = i + 1
		}
		seated[block.Size-1]++
	}

	// Check the number of groups seated for each size does not exceed the demand
	for size := 1; size <= MaxGroupSize; size++ {
		if seated[size-1] > demand.Count(size) {
			return false
		}
	}

	for row := 1; row <= layout.Rows(); row++ {
		for column := 1; column <= layout.Columns(); column++ {
			block := owner[layout.offset(row, column)]
			if block == 0 {
				continue
			}

			// A seat of another block right next to this one
			if column < layout.Columns() {
				if next := owner[layout.offset(row, column+1)]; next != 0 && next != block {
					return false
				}
			}

			// Any occupied seat right above or below, diagonals included
			for _, neighborRow := range []int{row - 1, row + 1} {
				for neighborColumn := column - 1; neighborColumn <= column+1; neighborColumn++ {
					if layout.Contains(neighborRow, neighborColumn) && owner[layout.offset(neighborRow, neighborColumn)] != 0 {
						return false
					}
				}
			}
		}
	}

	return true
}
