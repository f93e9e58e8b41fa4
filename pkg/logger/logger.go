// Package logx configures the process-wide zerolog logger. Tools that run
// over stdio must keep stdout clean for the protocol, so all logging goes to
// stderr.
package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

// Init replaces the global logger. Call once at startup before anything logs.
func Init(conf Config) {
	var logger zerolog.Logger
	if conf.PrettyFormat {
		logger = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
		}))
	} else {
		logger = zerolog.New(os.Stderr)
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = logger.Level(level).With().Timestamp().Caller().Stack().Logger()
}
