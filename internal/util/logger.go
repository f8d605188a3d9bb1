// Package util holds the proxy's ambient logging concern: a single global
// zerolog logger, tagged per listener so one port's request log lines can
// be told apart from another's.
package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger from an operator-supplied
// level string (debug/info/warn/error) and rejects anything else, so a
// typo'd --log-level fails fast at startup instead of silently running at
// info level.
func SetupLogger(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().
		Timestamp().
		Str("component", "mtls-proxyd").
		Logger()
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unrecognized log level %q", level)
	}
}

// ForListener returns a logger carrying the listener's port as a
// structured field, so every accept/request/connection log line it emits
// can be filtered down to one port.
func ForListener(port uint16) zerolog.Logger {
	return log.Logger.With().Uint16("port", port).Logger()
}
