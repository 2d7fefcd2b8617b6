package model

type variableFamily int

const (
	// occupied[i,j,k]: seat (i,j) belongs to a group of size k
	occupiedFamily variableFamily = iota
	// starts[i,j,k]: seat (i,j) is the anchor of a group of size k
	startsFamily
)

func (family variableFamily) String() string {
	if family == startsFamily {
		return "starts"
	}
	return "occupied"
}

// indexer interface is designed to give a unique index to a combination of seating variable's attributes and vice versa
type indexer interface {
	// Returns a unique index to a combination of seating variable's attributes (row, column and class are 1-based)
	Index(family variableFamily, row, column, class int) int
	// Returns a combination of seating variable's attributes from a unique index
	Attributes(index int) (family variableFamily, row, column, class int)
	// Number of variables
	Variables() int
}

func newIndexer(rows, columns int) indexer {
	return &indexerImplementation{
		rows:    rows,
		columns: columns,
		classes: MaxGroupSize,
	}
}
