package model

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// Input is the raw venue description as read from a file, a terminal or a request body:
//
//	5
//	5
//	11101
//	11101
//	11101
//	00000
//	11111
//	1 2 4 2 1 0 1 3
type Input struct {
	Rows    int      `mapstructure:"rows" json:"rows" yaml:"rows"`
	Columns int      `mapstructure:"columns" json:"columns" yaml:"columns"`
	Seats   []string `mapstructure:"seats" json:"seats" yaml:"seats"`
	Groups  []int    `mapstructure:"groups" json:"groups" yaml:"groups"`
}

// Layout validates the grid description
func (input Input) Layout() (Layout, error) {
	if input.Rows <= 0 || input.Columns <= 0 {
		return Layout{}, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidLayout, input.Rows, input.Columns)
	}
	if len(input.Seats) != input.Rows {
		return Layout{}, fmt.Errorf("%w: expected %d rows, found %d", ErrInvalidLayout, input.Rows, len(input.Seats))
	}

	usable := make([]bool, 0, input.Rows*input.Columns)
	for i, row := range input.Seats {
		if len(row) != input.Columns {
			return Layout{}, fmt.Errorf("%w: row %d has length %d, expected %d", ErrInvalidLayout, i+1, len(row), input.Columns)
		}
		for j, seat := range row {
			if seat != '0' && seat != '1' {
				return Layout{}, fmt.Errorf("%w: row %d has invalid seat %q at column %d", ErrInvalidLayout, i+1, seat, j+1)
			}
			usable = append(usable, seat == '1')
		}
	}

	return NewLayout(input.Rows, input.Columns, usable)
}

// Demand validates the group counts
func (input Input) Demand() (Demand, error) {
	return NewDemand(input.Groups)
}

// InputFromFile reads a JSON file when its extension is .json and the text format otherwise
func InputFromFile(file string) (Input, error) {
	if strings.EqualFold(filepath.Ext(file), ".json") {
		return InputFromJson(file)
	}

	reader, err := os.Open(file)
	if err != nil {
		return Input{}, err
	}
	defer reader.Close()

	return ParseInput(reader)
}

func InputFromJson(file string) (Input, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Input{}, err
	}

	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return Input{}, err
	}
	return DecodeInput(inputJson)
}

// DecodeInput converts a generic map (e.g. a decoded JSON object) into an Input. A malformed "groups" field is an
// invalid demand, anything else an invalid layout
func DecodeInput(raw map[string]any) (Input, error) {
	isGroups := func(key string, _ any) bool { return strings.EqualFold(key, "groups") }

	var input Input
	if err := decode(lo.OmitBy(raw, isGroups), &input); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	for _, groups := range lo.PickBy(raw, isGroups) {
		if err := decode(groups, &input.Groups); err != nil {
			return Input{}, fmt.Errorf("%w: groups: %v", ErrInvalidDemand, err)
		}
	}
	return input, nil
}

func decode(raw any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// ParseInput reads the text format: the number of rows and columns, one line per row over {0,1}, then the 8 group
// counts. Blank lines are ignored
func ParseInput(reader io.Reader) (Input, error) {
	lines := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Input{}, err
	}

	// Dimensions may share a line or take one each
	dimensions := make([]int, 0, 2)
	for len(dimensions) < 2 && len(lines) > 0 {
		for _, field := range strings.Fields(lines[0]) {
			value, err := strconv.Atoi(field)
			if err != nil {
				return Input{}, fmt.Errorf("%w: invalid dimension %q", ErrInvalidLayout, field)
			}
			dimensions = append(dimensions, value)
		}
		lines = lines[1:]
	}
	if len(dimensions) != 2 {
		return Input{}, fmt.Errorf("%w: expected the number of rows and columns", ErrInvalidLayout)
	}

	input := Input{Rows: dimensions[0], Columns: dimensions[1]}
	if input.Rows <= 0 || input.Columns <= 0 {
		return Input{}, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidLayout, input.Rows, input.Columns)
	}
	if len(lines) < input.Rows {
		return Input{}, fmt.Errorf("%w: expected %d rows, found %d", ErrInvalidLayout, input.Rows, len(lines))
	}

	input.Seats = lines[:input.Rows]
	for _, field := range strings.Fields(strings.Join(lines[input.Rows:], " ")) {
		count, err := strconv.Atoi(field)
		if err != nil {
			return Input{}, fmt.Errorf("%w: invalid group count %q", ErrInvalidDemand, field)
		}
		input.Groups = append(input.Groups, count)
	}

	return input, nil
}
