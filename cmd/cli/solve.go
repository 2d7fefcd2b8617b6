package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/limaJavier/seating/pkg/model"
	"github.com/limaJavier/seating/pkg/report"
	"github.com/spf13/cobra"
)

var validSources = []string{"file", "keyboard"}

type solveOptions struct {
	source string
	file   string
	format string
	out    string
}

func newSolveCommand(app *app) *cobra.Command {
	var options solveOptions

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Find the seating that maximizes the number of people seated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.solve(cmd.Context(), options)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&options.source, "source", "file", `Where the instance is read from. Allowed values are: "file" (see --file) and "keyboard" (standard input until EOF)`)
	flags.StringVar(&options.file, "file", "", "Path to the input file; .json files are decoded as JSON and any other file as the text format")
	flags.StringVar(&options.format, "format", "text", `Output format. Allowed values are: "text", "json", "yaml", "csv"`)
	flags.StringVar(&options.out, "out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")

	return cmd
}

func (app *app) solve(ctx context.Context, options solveOptions) error {
	// Validate arguments
	source := strings.ToLower(options.source)
	if !slices.Contains(validSources, source) {
		return &exitError{code: exitFailure, err: fmt.Errorf("%v is not a valid source: allowed values are %v", options.source, strings.Join(validSources, ", "))}
	} else if source == "file" && options.file == "" {
		return &exitError{code: exitFailure, err: errors.New("an input file must be specified")}
	} else if !slices.Contains(report.Formats, options.format) {
		return &exitError{code: exitFailure, err: fmt.Errorf("%v is not a valid format: allowed values are %v", options.format, strings.Join(report.Formats, ", "))}
	}

	// Extract input
	input, err := app.readInput(source, options.file)
	if err != nil {
		return &exitError{code: exitInvalidInput, err: err}
	}

	// Initialize engines
	solver, err := app.config.NewSolver()
	if err != nil {
		return err
	}
	planner := model.NewPlanner(solver, app.config.ParsedFormulation(), app.logger)

	// Build seating
	plan, err := planner.Plan(ctx, input, app.config.Limits())
	switch {
	case errors.Is(err, model.ErrInvalidLayout), errors.Is(err, model.ErrInvalidDemand):
		return &exitError{code: exitInvalidInput, err: err}
	case errors.Is(err, model.ErrInfeasible):
		return &exitError{code: exitInfeasible, err: err}
	case err != nil:
		return fmt.Errorf("an error occurred during seating construction: %w", err)
	}

	// Verify seating correctness
	if !planner.Verify(plan) {
		fmt.Fprintf(app.stderr, "Variables: %v\n", plan.Variables)
		fmt.Fprintf(app.stderr, "Constraints: %v\n", plan.Constraints)
		return &exitError{code: exitUnverified, err: errors.New("the seating found violates the seating rules")}
	}

	return app.writeReport(plan, options)
}

func (app *app) readInput(source, file string) (model.Input, error) {
	if source == "keyboard" {
		fmt.Fprintln(app.stderr, "Enter the number of rows, the number of columns, one line per row and the 8 group counts; finish with EOF (Ctrl-D)")
		return model.ParseInput(app.stdin)
	}

	input, err := model.InputFromFile(file)
	if err != nil {
		return model.Input{}, fmt.Errorf("cannot parse input file: %w", err)
	}
	return input, nil
}

func (app *app) writeReport(plan model.Plan, options solveOptions) error {
	// Verify outfile is empty, if so then write the results to the Standard Output
	if options.out == "" {
		return app.write(app.stdout, plan, options)
	}

	file, err := app.create(options.out)
	if err != nil {
		return fmt.Errorf("an error occurred while creating the output file: %w", err)
	}
	if err := app.write(file, plan, options); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("an error occurred while closing the output file: %w", err)
	}
	return nil
}

func (app *app) write(writer io.Writer, plan model.Plan, options solveOptions) error {
	if err := report.Write(writer, options.format, report.Build(plan)); err != nil {
		return fmt.Errorf("an error occurred while writing the report: %w", err)
	}
	return nil
}
