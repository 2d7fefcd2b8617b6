package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/limaJavier/seating/internal/config"
	"github.com/limaJavier/seating/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit statuses
const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitUnverified   = 15
	exitInfeasible   = 20
)

// exitError carries the status the process terminates with
type exitError struct {
	code int
	err  error
}

func (err *exitError) Error() string {
	return err.err.Error()
}

func (err *exitError) Unwrap() error {
	return err.err
}

type app struct {
	viper  *viper.Viper
	config config.Config
	logger zerolog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configFile string
	envFile    string

	// Opens the --out file
	create func(name string) (io.WriteCloser, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return newApp(stdin, stdout, stderr).execute(ctx, args)
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		viper:  config.New(),
		logger: zerolog.Nop(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		create: func(name string) (io.WriteCloser, error) { return os.Create(name) },
	}
}

// execute runs the command line and returns the process exit status
func (app *app) execute(ctx context.Context, args []string) int {
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetIn(app.stdin)
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintln(app.stderr, err)
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return exitFailure
}

func newRootCommand(app *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "seating",
		Short:         "Seat groups in a venue under a physical distancing rule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.configFile, "config", "", "Path to the configuration file; seating.yaml or seating.json are looked up in the working and executable directories when empty")
	flags.StringVar(&app.envFile, "env-file", "", "Path to a dotenv file, where .env is the default")
	flags.String("solver", "gini", `Backend to use. Allowed values are: "gini", "gophersat", "cbc", "highs"`)
	flags.String("formulation", "bigm", `How conditional rules are written. Allowed values are: "bigm", "indicator"`)
	flags.Duration("time-limit", 0, "Time limit of the optimization, where 0 means no limit")
	flags.Float64("max-gap", 0, "Relative gap at which the optimization stops, where 0 means proven optimality")
	flags.String("log-level", "info", "Log level")
	flags.String("log-format", "console", `Log format. Allowed values are: "console", "json"`)

	bind(app.viper, flags.Lookup("solver"), "solver")
	bind(app.viper, flags.Lookup("formulation"), "formulation")
	bind(app.viper, flags.Lookup("time-limit"), "time_limit")
	bind(app.viper, flags.Lookup("max-gap"), "max_gap")
	bind(app.viper, flags.Lookup("log-level"), "log_level")
	bind(app.viper, flags.Lookup("log-format"), "log_format")

	root.AddCommand(newSolveCommand(app), newServeCommand(app))
	return root
}

func (app *app) load() error {
	settings, err := config.Load(app.viper, config.Options{File: app.configFile, DotEnv: app.envFile})
	if err != nil {
		return err
	}
	logger, err := logging.New(app.stderr, settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}

	app.config = settings
	app.logger = logger
	return nil
}
