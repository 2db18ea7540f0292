package core

import (
	"os"

	"github.com/rs/zerolog"
)

// zerologLogger implements Logger on top of github.com/rs/zerolog, the
// same library appleboy/graceful's own example wiring (_example/example03)
// adopts in place of its bundled plain-stdlib logger.
type zerologLogger struct {
	logger zerolog.Logger
}

// ZerologOption configures NewZerologLogger.
type ZerologOption func(*zerologOptions)

type zerologOptions struct {
	logger *zerolog.Logger
	json   bool
}

// WithJSON selects JSON-encoded output instead of the console writer.
func WithJSON() ZerologOption {
	return func(o *zerologOptions) { o.json = true }
}

// WithZerolog injects a pre-built zerolog.Logger, overriding WithJSON.
func WithZerolog(logger zerolog.Logger) ZerologOption {
	return func(o *zerologOptions) { o.logger = &logger }
}

// NewZerologLogger builds the default production Logger.
func NewZerologLogger(opts ...ZerologOption) Logger {
	var o zerologOptions
	for _, f := range opts {
		f(&o)
	}

	if o.logger != nil {
		return &zerologLogger{logger: *o.logger}
	}

	var l zerolog.Logger
	if o.json {
		l = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	return &zerologLogger{logger: l}
}

func (l *zerologLogger) Tracef(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

func (l *zerologLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *zerologLogger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}
