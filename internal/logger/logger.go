// Package logger is the kernel's structured logging facility: a leveled
// wrapper around log/slog with text or JSON output and optional
// lumberjack-backed file rotation.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gokernel/kernel/cfg"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom slog levels; slog only ships Debug/Info/Warn/Error.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(16)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelWarn:  "WARNING",
}

// BootID identifies one kernel boot across every log line it emits, so
// concurrent shells or test runs can be told apart in aggregated logs.
var BootID = uuid.New().String()

type loggerFactory struct {
	programLevel *slog.LevelVar
	format       string
	out          io.Writer
	rotator      *lumberjack.Logger
}

var factory = newDefaultFactory()
var defaultLogger = buildLogger(factory)

func newDefaultFactory() *loggerFactory {
	return &loggerFactory{
		programLevel: new(slog.LevelVar),
		format:       cfg.FormatText,
		out:          os.Stderr,
	}
}

func (f *loggerFactory) handler() slog.Handler {
	opts := &slog.HandlerOptions{
		Level: f.programLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				if name, ok := levelNames[level]; ok {
					a.Value = slog.StringValue(name)
				}
				a.Key = "severity"
			}
			if a.Key == slog.MessageKey {
				a.Key = "message"
			}
			if a.Key == slog.TimeKey {
				a.Key = "time"
			}
			return a
		},
	}
	if f.format == cfg.FormatJSON {
		return slog.NewJSONHandler(f.out, opts)
	}
	return slog.NewTextHandler(f.out, opts)
}

func buildLogger(f *loggerFactory) *slog.Logger {
	return slog.New(f.handler()).With("boot_id", BootID)
}

// Init configures the default logger from a LoggingConfig, switching
// between stderr and a rotating log file.
func Init(c cfg.LoggingConfig) error {
	f := newDefaultFactory()
	f.format = c.Format
	if f.format == "" {
		f.format = cfg.FormatText
	}

	if c.FilePath != "" {
		f.rotator = &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    c.LogRotate.MaxFileSizeMB,
			MaxBackups: c.LogRotate.BackupFileCount,
			Compress:   c.LogRotate.Compress,
		}
		f.out = f.rotator
	} else {
		f.out = os.Stderr
	}

	setLevel(f.programLevel, c.Severity)

	factory = f
	defaultLogger = buildLogger(f)
	return nil
}

func setLevel(v *slog.LevelVar, severity string) {
	switch severity {
	case cfg.Trace:
		v.Set(LevelTrace)
	case cfg.Debug:
		v.Set(LevelDebug)
	case cfg.Info:
		v.Set(LevelInfo)
	case cfg.Warning:
		v.Set(LevelWarn)
	case cfg.Error:
		v.Set(LevelError)
	case cfg.Off:
		v.Set(LevelOff)
	default:
		v.Set(LevelInfo)
	}
}

func log(level slog.Level, format string, args ...any) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { log(LevelTrace, format, args...) }
func Debugf(format string, args ...any) { log(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { log(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { log(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { log(LevelError, format, args...) }

// Fatalf logs at ERROR severity and then panics. It is reserved for the
// kernel's fatal assertions — wrong lock owner, violated invariants —
// never for ordinary, user-visible syscall failures, which are always
// plain numeric returns.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	defaultLogger.Log(context.Background(), LevelError, msg)
	panic("gokernel: fatal assertion: " + msg)
}
