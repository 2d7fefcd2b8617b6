package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats lists the accepted log formats
var Formats = []string{"console", "json"}

func ParseLevel(level string) (zerolog.Level, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("%v is not a valid log level: %w", level, err)
	}
	return parsed, nil
}

// New builds the process logger: human-readable console output or JSON lines
func New(writer io.Writer, level, format string) (zerolog.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch format {
	case "", "console":
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.TimeOnly}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("%v is not a valid log format: allowed values are %v", format, strings.Join(Formats, ", "))
	}

	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger(), nil
}
