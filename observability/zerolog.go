package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig selects the zerolog output for NewZerolog.
type LogConfig struct {
	Level  string // trace, debug, info, warn, error
	Format string // json or console
	Output io.Writer
}

type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerolog returns a Logger backed by zerolog.
func NewZerolog(cfg LogConfig) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var zl zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		zl = zerolog.New(out)
	}
	zl = zl.Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return zerologLogger{zl: zl}
}

func (l zerologLogger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }
func (l zerologLogger) Info(msg string, fields ...Field)  { emit(l.zl.Info(), msg, fields) }
func (l zerologLogger) Warn(msg string, fields ...Field)  { emit(l.zl.Warn(), msg, fields) }
func (l zerologLogger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func (l zerologLogger) With(fields ...Field) Logger {
	c := l.zl.With()
	for _, f := range fields {
		c = c.Interface(f.Key(), fieldValue(f))
	}
	return zerologLogger{zl: c.Logger()}
}

func emit(evt *zerolog.Event, msg string, fields []Field) {
	if evt == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value().(type) {
		case string:
			evt = evt.Str(f.Key(), v)
		case int:
			evt = evt.Int(f.Key(), v)
		case int64:
			evt = evt.Int64(f.Key(), v)
		case float64:
			evt = evt.Float64(f.Key(), v)
		case bool:
			evt = evt.Bool(f.Key(), v)
		case time.Duration:
			evt = evt.Dur(f.Key(), v)
		case error:
			evt = evt.AnErr(f.Key(), v)
		default:
			evt = evt.Interface(f.Key(), v)
		}
	}
	evt.Msg(msg)
}

func fieldValue(f Field) interface{} {
	if err, ok := f.Value().(error); ok && err != nil {
		return err.Error()
	}
	return f.Value()
}

// ParseLevel converts a level name to a zerolog level; unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
