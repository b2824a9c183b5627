package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	log   zerolog.Logger
	level = zerolog.ErrorLevel
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339

	SetOutput(os.Stderr)
}

func GetLogger() *zerolog.Logger {
	return &log
}

// SetOutput points the logger at w. Terminals get the console writer, everything else gets plain JSON lines.
func SetOutput(w io.Writer) {
	var output io.Writer = w
	if f, ok := w.(*os.File); ok && (f == os.Stderr || f == os.Stdout) {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	log = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Disable silences the logger, used while the TUI owns the terminal.
func Disable() {
	log = log.Level(zerolog.Disabled)
}

func SetLogLevel(verboseCount int) {
	switch {
	case verboseCount == 1:
		level = (zerolog.WarnLevel)
	case verboseCount == 2:
		level = (zerolog.InfoLevel)
	case verboseCount == 3:
		level = (zerolog.DebugLevel)
	case verboseCount >= 4:
		level = (zerolog.TraceLevel)
	default:
		level = (zerolog.ErrorLevel)
	}
	log = log.Level(level)
}
