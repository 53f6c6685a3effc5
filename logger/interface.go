// Package logger defines the structured logging contract used across the
// fetch layer and provides a zerolog-backed implementation. Auth material
// (tokens, cookies, passwords) is redacted before it reaches any output.
package logger

import "time"

// Logger is the contract for structured logging throughout the module.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	WithFields(fields map[string]any) Logger
}

// LogEvent is a structured log event built up with fields and finished with
// Msg or Msgf.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
}
