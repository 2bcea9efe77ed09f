// Package stdlogger adapts the global zerolog logger to printf style logger interfaces (gorm, go-ldap).
package stdlogger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes printf style messages to zerolog.
type Logger struct {
	component string
}

// New returns a Logger tagging each message with the given component.
func New(component ...string) *Logger {
	l := &Logger{}
	if len(component) > 0 {
		l.component = component[0]
	}

	return l
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	e := log.WithLevel(level)
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}

// Debugf logs on debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.event(zerolog.DebugLevel).Msgf(format, args...)
}

// Infof logs on info level.
func (l *Logger) Infof(format string, args ...any) {
	l.event(zerolog.InfoLevel).Msgf(format, args...)
}

// Warningf logs on warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.event(zerolog.WarnLevel).Msgf(format, args...)
}

// Errorf logs on error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.event(zerolog.ErrorLevel).Msgf(format, args...)
}

// Printf implements gorm's logger.Writer.
// gorm prefixes slow queries with "SLOW SQL" and errors with the error text; both are raised to warn.
func (l *Logger) Printf(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))

	level := zerolog.DebugLevel
	if strings.Contains(msg, "SLOW SQL") || strings.Contains(strings.ToLower(msg), "error") {
		level = zerolog.WarnLevel
	}

	l.event(level).Msg(msg)
}
