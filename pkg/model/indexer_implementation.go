package model

type indexerImplementation struct {
	rows    int
	columns int
	classes int
}

// Variables are laid out family-major, then class, row and column: every class block of a family is a row-major grid
func (indexer *indexerImplementation) Index(family variableFamily, row, column, class int) int {
	return (column - 1) + indexer.columns*(row-1) + indexer.columns*indexer.rows*(class-1) + indexer.columns*indexer.rows*indexer.classes*int(family)
}

func (indexer *indexerImplementation) Attributes(index int) (family variableFamily, row, column, class int) {
	column = index%indexer.columns + 1
	index = index / indexer.columns

	row = index%indexer.rows + 1
	index = index / indexer.rows

	class = index%indexer.classes + 1
	index = index / indexer.classes

	family = variableFamily(index)

	return family, row, column, class
}

func (indexer *indexerImplementation) Variables() int {
	return 2 * indexer.rows * indexer.columns * indexer.classes
}
