package config

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogging installs the global zerolog logger described by c.
func InitLogging(c *Config) {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stdout
	if c.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
}
