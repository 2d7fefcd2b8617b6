package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/limaJavier/seating/internal/logging"
	"github.com/limaJavier/seating/pkg/milp"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSizes(t *testing.T) {
	sizes, err := parseSizes("4x6, 10X12,")
	require.Nil(t, err)
	assert.Equal(t, [][2]int{{4, 6}, {10, 12}}, sizes)

	for _, invalid := range []string{"4", "4x", "x6", "0x6", "4x-1", "ax6"} {
		_, err := parseSizes(invalid)
		assert.NotNil(t, err, invalid)
	}
}

func TestGetTests(t *testing.T) {
	//** Arrange
	directory := t.TempDir()
	require.Nil(t, os.WriteFile(filepath.Join(directory, "venue.txt"), []byte("1\n3\n111\n1 0 0 0 0 0 0 0\n"), 0o644))
	opts := options{sizes: "2x3,3x4", instances: 2, seed: 7, directory: directory}

	//** Act
	tests, err := getTests(opts)
	again, _ := getTests(opts)

	//** Assert
	require.Nil(t, err)
	require.Len(t, tests, 5)
	assert.Equal(t, "generated-2x3-1", tests[0].Name)
	assert.Equal(t, 3, tests[2].Input.Rows)
	assert.Equal(t, filepath.Join(directory, "venue.txt"), tests[4].Name)
	assert.Equal(t, tests, again)
}

func TestGetFormulations(t *testing.T) {
	formulations, err := getFormulations([]string{"bigm", "indicator", "BigM"})
	require.Nil(t, err)
	assert.Equal(t, []model.Formulation{model.BigM, model.Indicator}, formulations)

	_, err = getFormulations([]string{"sos"})
	assert.NotNil(t, err)
}

func TestMeasure(t *testing.T) {
	//** Arrange
	test := TestMetadata{
		Name: "small",
		Input: model.Input{
			Rows:    3,
			Columns: 4,
			Seats:   []string{"1101", "1111", "0111"},
			Groups:  []int{3, 2, 1, 0, 0, 0, 0, 0},
		},
	}

	var logs bytes.Buffer
	logger, err := logging.New(&logs, "info", "json")
	require.NoError(t, err)

	//** Act
	result := measure(context.Background(), logger, "gini", milp.NewGiniSolver(), model.Indicator, test, 10*time.Second)
	unavailableResult := measure(context.Background(), logger, "cbc", milp.NewCbcSolver("/nonexistent/seating-cbc"), model.BigM, test, time.Second)
	failedResult := measure(context.Background(), logger, "stub", failingSolver{}, model.BigM, test, time.Second)

	//** Assert
	assert.Equal(t, solved, result.Result)
	assert.Equal(t, 6, result.Seated)
	assert.True(t, result.Verified)
	assert.Equal(t, "indicator", result.Formulation)
	assert.Equal(t, unavailable, unavailableResult.Result)
	assert.Equal(t, failed, failedResult.Result)
	assert.Contains(t, logs.String(), `"message":"seating planned"`)
	assert.Contains(t, logs.String(), `"level":"error","error":"solver crashed","test":"small","formulation":"bigm","solver":"stub"`)
	assert.Contains(t, logs.String(), `"message":"benchmark run failed"`)
}

type failingSolver struct{}

func (failingSolver) Solve(_ context.Context, _ *milp.Model, _ milp.Limits) (*milp.Solution, error) {
	return nil, errors.New("solver crashed")
}

func TestToCsv(t *testing.T) {
	//** Arrange
	path := filepath.Join(t.TempDir(), "results.csv")
	results := []BenchmarkResult{{Solver: "gini", Formulation: "bigm", Test: "small", Seated: 6, Result: solved, Verified: true}}

	//** Act
	err := toCsv(path, results)

	//** Assert
	require.Nil(t, err)
	content, err := os.ReadFile(path)
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Solver,Formulation,Test,Rows,Columns"))
	assert.Contains(t, lines[1], "gini,bigm,small")
	assert.True(t, strings.HasSuffix(lines[1], "true,solved"))
}
