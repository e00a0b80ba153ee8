// Package logger builds the console logger shared by the commands.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// TimeFormat keeps millisecond precision so ticks can be told apart.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns a console logger writing to out at the given level.
// A nil out writes to stdout; any other writer gets uncoloured output.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	zerolog.TimeFieldFormat = TimeFormat

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: TimeFormat,
		NoColor:    out != io.Writer(os.Stdout),
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Level maps the DEBUG switch to a zerolog level.
func Level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
