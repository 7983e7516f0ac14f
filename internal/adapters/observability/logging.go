package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
// level accepts zerolog level names; anything unparseable means info.
func NewLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Str("service", "brokerage-api").Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(lvl).With().Timestamp().Logger()
	}
	return l
}
