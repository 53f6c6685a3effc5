package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ZeroLogger wraps zerolog.Logger to implement the Logger interface.
type ZeroLogger struct {
	zlog   *zerolog.Logger
	filter *SensitiveDataFilter
}

// Ensure ZeroLogger implements the interface
var _ Logger = (*ZeroLogger)(nil)

// New creates a ZeroLogger writing to stdout at the given level. If pretty is
// true, output is formatted for human readability. Invalid levels fall back
// to info.
func New(level string, pretty bool) *ZeroLogger {
	return NewWithWriter(level, pretty, os.Stdout)
}

// NewWithWriter creates a ZeroLogger writing to the given writer. Tests use
// this to capture output.
func NewWithWriter(level string, pretty bool, w io.Writer) *ZeroLogger {
	var out io.Writer = w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).With().Timestamp().Logger()

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(DefaultFilterConfig())}
}

// Noop returns a logger that discards everything. It is the default for
// clients constructed without an explicit logger.
func Noop() *ZeroLogger {
	l := zerolog.Nop()
	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(DefaultFilterConfig())}
}

// Debug starts a debug-level event.
func (l *ZeroLogger) Debug() LogEvent { return l.event(l.zlog.Debug()) }

// Info starts an info-level event.
func (l *ZeroLogger) Info() LogEvent { return l.event(l.zlog.Info()) }

// Warn starts a warn-level event.
func (l *ZeroLogger) Warn() LogEvent { return l.event(l.zlog.Warn()) }

// Error starts an error-level event.
func (l *ZeroLogger) Error() LogEvent { return l.event(l.zlog.Error()) }

// WithFields returns a logger with additional fields attached to all entries.
// Sensitive fields are masked before attachment.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	if l.filter != nil {
		fields = l.filter.FilterFields(fields)
	}
	log := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &log, filter: l.filter}
}

func (l *ZeroLogger) event(e *zerolog.Event) LogEvent {
	return &zerologEvent{event: e, filter: l.filter}
}

// zerologEvent adapts a zerolog.Event to the LogEvent interface, filtering
// string fields through the sensitive-data filter.
type zerologEvent struct {
	event  *zerolog.Event
	filter *SensitiveDataFilter
}

func (e *zerologEvent) Msg(msg string) {
	e.event.Msg(msg)
}

func (e *zerologEvent) Msgf(format string, args ...any) {
	e.event.Msgf(format, args...)
}

func (e *zerologEvent) Err(err error) LogEvent {
	return &zerologEvent{event: e.event.Err(err), filter: e.filter}
}

func (e *zerologEvent) Str(key, value string) LogEvent {
	if e.filter != nil {
		value = e.filter.FilterString(key, value)
	}
	return &zerologEvent{event: e.event.Str(key, value), filter: e.filter}
}

func (e *zerologEvent) Int(key string, value int) LogEvent {
	return &zerologEvent{event: e.event.Int(key, value), filter: e.filter}
}

func (e *zerologEvent) Dur(key string, d time.Duration) LogEvent {
	return &zerologEvent{event: e.event.Dur(key, d), filter: e.filter}
}

func (e *zerologEvent) Interface(key string, i any) LogEvent {
	return &zerologEvent{event: e.event.Interface(key, i), filter: e.filter}
}
