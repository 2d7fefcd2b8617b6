package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/limaJavier/seating/internal/logging"
	"github.com/limaJavier/seating/pkg/milp"
	"github.com/limaJavier/seating/pkg/model"
	"github.com/spf13/viper"
)

// Prefix of the environment variables overriding configuration keys, e.g. SEATING_TIME_LIMIT or SEATING_SERVER_ADDRESS
const EnvPrefix = "SEATING"

type Config struct {
	Solver      string         `mapstructure:"solver"`
	Formulation string         `mapstructure:"formulation"`
	TimeLimit   time.Duration  `mapstructure:"time_limit"`
	MaxGap      float64        `mapstructure:"max_gap"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	Server      Server         `mapstructure:"server"`
	Solvers     map[string]any `mapstructure:"solvers"`
}

type Server struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// Upper bound on the time limit a request may ask for
	MaxTimeLimit time.Duration `mapstructure:"max_time_limit"`
}

// Options locate the configuration sources. Empty fields fall back to seating.{yaml,json} in the working or
// executable directory and .env in the working directory
type Options struct {
	File   string
	DotEnv string
}

// New returns a viper instance holding every default value
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("solver", milp.Solvers[0])
	v.SetDefault("formulation", model.BigM.String())
	v.SetDefault("time_limit", time.Duration(0))
	v.SetDefault("max_gap", 0.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.max_time_limit", 2*time.Minute)
	v.SetDefault("solvers.cbc", "cbc")
	v.SetDefault("solvers.highs", "highs")
	return v
}

// Load reads, in increasing precedence: defaults, the configuration file, the .env file and environment variables,
// and flags bound to v
func Load(v *viper.Viper, options Options) (Config, error) {
	dotEnv := options.DotEnv
	if dotEnv == "" {
		dotEnv = ".env"
	}
	if err := godotenv.Load(dotEnv); err != nil && (options.DotEnv != "" || !errors.Is(err, fs.ErrNotExist)) {
		return Config{}, fmt.Errorf("cannot load %v: %w", dotEnv, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if options.File != "" {
		v.SetConfigFile(options.File)
	} else {
		v.SetConfigName("seating")
		v.AddConfigPath(".")
		if executable, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(executable))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if options.File != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("cannot read configuration: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("cannot decode configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (config Config) Validate() error {
	if !slices.Contains(milp.Solvers, strings.ToLower(config.Solver)) {
		return fmt.Errorf("%v is not a valid solver: allowed values are %v", config.Solver, strings.Join(milp.Solvers, ", "))
	}
	if _, err := model.ParseFormulation(config.Formulation); err != nil {
		return err
	}
	if config.TimeLimit < 0 {
		return fmt.Errorf("time limit must not be negative, got %v", config.TimeLimit)
	}
	if config.MaxGap < 0 {
		return fmt.Errorf("max gap must not be negative, got %v", config.MaxGap)
	}
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}
	if !slices.Contains(logging.Formats, config.LogFormat) {
		return fmt.Errorf("%v is not a valid log format: allowed values are %v", config.LogFormat, strings.Join(logging.Formats, ", "))
	}
	return nil
}

func (config Config) Limits() milp.Limits {
	return milp.Limits{TimeLimit: config.TimeLimit, MaxGap: config.MaxGap}
}

// NewSolver builds the configured backend
func (config Config) NewSolver() (milp.Solver, error) {
	executables, err := milp.DecodeExecutables(config.Solvers)
	if err != nil {
		return nil, err
	}
	return milp.NewSolver(config.Solver, executables)
}

func (config Config) ParsedFormulation() model.Formulation {
	formulation, _ := model.ParseFormulation(config.Formulation)
	return formulation
}
