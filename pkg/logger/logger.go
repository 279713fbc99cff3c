package logx

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

func Init(opts ...Config) {
	conf := safe(opts...)

	var out io.Writer = os.Stdout
	if conf.PrettyFormat {
		out = zerolog.NewConsoleWriter()
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Stack().
		Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

// WithSession returns a context whose logger carries the session id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	l := zerolog.Ctx(ctx).With().Str("session_id", sessionID).Logger()
	return l.WithContext(ctx)
}

// FromContext returns the request logger, falling back to the global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
