// Package logging configures zerolog for the CLI and builds the debug
// sink injected into the capture flow.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the variable holding the log level.
const LevelEnv = "CIVIC_LOG_LEVEL"

// ParseLevel maps debug, info, warn or error to a zerolog level. Anything
// else is info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the global logger. CIVIC_LOG_LEVEL controls the level
// (default: info).
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// DebugSink returns the logger handed to the capture flow. When disabled
// it discards everything, so nothing outside the flow is touched.
func DebugSink(enabled bool, w io.Writer) zerolog.Logger {
	if !enabled || w == nil {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05.000"}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Str("component", "capture").
		Logger()
}
