package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

// Largest group size
const MaxGroupSize = 8

var (
	ErrInvalidLayout = errors.New("invalid layout")
	ErrInvalidDemand = errors.New("invalid demand")
)

// Layout is the venue grid. Seats are stored row-major: seat (row, column), both 1-based, lives at (row-1)*columns + (column-1)
type Layout struct {
	rows    int
	columns int
	usable  []bool
}

func NewLayout(rows, columns int, usable []bool) (Layout, error) {
	if rows <= 0 || columns <= 0 {
		return Layout{}, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidLayout, rows, columns)
	}
	if len(usable) != rows*columns {
		return Layout{}, fmt.Errorf("%w: %d seats given for a %dx%d grid", ErrInvalidLayout, len(usable), rows, columns)
	}
	return Layout{rows: rows, columns: columns, usable: append([]bool(nil), usable...)}, nil
}

func (layout Layout) Rows() int {
	return layout.rows
}

func (layout Layout) Columns() int {
	return layout.columns
}

// Usable reports whether the seat exists and can be occupied. Seats outside the grid are not usable
func (layout Layout) Usable(row, column int) bool {
	if !layout.Contains(row, column) {
		return false
	}
	return layout.usable[layout.offset(row, column)]
}

func (layout Layout) Contains(row, column int) bool {
	return row >= 1 && row <= layout.rows && column >= 1 && column <= layout.columns
}

func (layout Layout) UsableSeats() int {
	return lo.Count(layout.usable, true)
}

// Strings renders each row over the {0,1} alphabet
func (layout Layout) Strings() []string {
	rows := make([]string, layout.rows)
	for row := 1; row <= layout.rows; row++ {
		var builder strings.Builder
		for column := 1; column <= layout.columns; column++ {
			builder.WriteByte(lo.Ternary[byte](layout.Usable(row, column), '1', '0'))
		}
		rows[row-1] = builder.String()
	}
	return rows
}

func (layout Layout) offset(row, column int) int {
	return (row-1)*layout.columns + (column - 1)
}

// Demand holds the number of groups requesting seats by size: Demand[k-1] groups of k people
type Demand [MaxGroupSize]int

func NewDemand(counts []int) (Demand, error) {
	if len(counts) != MaxGroupSize {
		return Demand{}, fmt.Errorf("%w: expected %d group counts, found %d", ErrInvalidDemand, MaxGroupSize, len(counts))
	}

	var demand Demand
	for i, count := range counts {
		if count < 0 {
			return Demand{}, fmt.Errorf("%w: negative count %d for groups of %d", ErrInvalidDemand, count, i+1)
		}
		demand[i] = count
	}
	return demand, nil
}

// Count returns the number of groups of the given size
func (demand Demand) Count(size int) int {
	if size < 1 || size > MaxGroupSize {
		return 0
	}
	return demand[size-1]
}

func (demand Demand) Groups() int {
	return lo.Sum(demand[:])
}

// People returns the number of people over every group, saturating at math.MaxInt
func (demand Demand) People() int {
	people := 0
	for size := 1; size <= MaxGroupSize; size++ {
		class := demand.ClassPeople(size)
		if class > math.MaxInt-people {
			return math.MaxInt
		}
		people += class
	}
	return people
}

// ClassPeople returns the number of people in groups of the given size, saturating at math.MaxInt
func (demand Demand) ClassPeople(size int) int {
	count := demand.Count(size)
	if count > math.MaxInt/max(size, 1) {
		return math.MaxInt
	}
	return size * count
}
