package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	Critical = 50
	Fatal    = Critical
	Error    = 40
	Warning  = 30
	Info     = 20
	Debug    = 10
	NotSet   = 0
)

var (
	LogLevel      int = Warning
	logLevelMutex sync.Mutex

	base zerolog.Logger
)

func init() {
	localEnv := os.Getenv("LOCAL")
	local := strings.ToLower(localEnv) == "true" || localEnv == "1"

	var out io.Writer = os.Stderr
	if local {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	base = zerolog.New(out).With().Timestamp().Logger()

	if local {
		SetLogLevel(Debug)
	} else {
		SetLogLevel(LogLevel)
	}
}

// SetOutput redirects all log output. Used by tests and the CLI.
func SetOutput(w io.Writer) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	base = base.Output(w)
}

func SetLogLevel(level int) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	LogLevel = level
	base = base.Level(toZerolog(level))
}

// ParseLevel maps names like "debug" or "warn" to a level. Unknown names yield Warning.
func ParseLevel(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warning
	case "error":
		return Error
	case "critical", "fatal":
		return Critical
	default:
		return Warning
	}
}

// With returns a structured logger tagged with the given component name.
func With(component string) zerolog.Logger {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	return base.With().Str("component", component).Logger()
}

func Debugf(format string, v ...interface{}) {
	logger().Debug().Msgf(format, v...)
}

func Infof(format string, v ...interface{}) {
	logger().Info().Msgf(format, v...)
}

func Warningf(format string, v ...interface{}) {
	logger().Warn().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	logger().Error().Msgf(format, v...)
}

func Criticalf(format string, v ...interface{}) {
	logger().WithLevel(zerolog.ErrorLevel).Str("severity", "critical").Msgf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	logger().Fatal().Msgf(format, v...)
}

func logger() *zerolog.Logger {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	l := base
	return &l
}

func toZerolog(level int) zerolog.Level {
	switch {
	case level <= NotSet:
		return zerolog.TraceLevel
	case level <= Debug:
		return zerolog.DebugLevel
	case level <= Info:
		return zerolog.InfoLevel
	case level <= Warning:
		return zerolog.WarnLevel
	case level <= Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}
