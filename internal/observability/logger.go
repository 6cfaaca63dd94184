package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the process logger shared by the library.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// Verbosity maps the numeric verbosity from the environment onto log
// levels: negative values quiet the log, positive values open it up.
func Verbosity(level int) zerolog.Level {
	switch {
	case level <= -2:
		return zerolog.ErrorLevel
	case level == -1:
		return zerolog.WarnLevel
	case level == 0:
		return zerolog.InfoLevel
	case level == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}
