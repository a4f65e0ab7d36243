// Package logging is a thin structured-logging layer over logrus. Loggers carry
// fields; fields can also ride along on a context.Context so that deeper layers log
// with the caller's branch and operation attached.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const LogFieldsContextKey = contextKey("log_fields")

// log_fields keys
const (
	// BranchFieldKey branch name (string)
	BranchFieldKey = "branch"
	// CommitFieldKey commit hash (string)
	CommitFieldKey = "commit"
	// OpFieldKey repository operation (string, ex: commit, merge)
	OpFieldKey = "op"
	// MergeStateFieldKey merge state machine state (string)
	MergeStateFieldKey = "merge_state"
	// PathFieldKey file path inside a tree (string)
	PathFieldKey = "path"
)

// DefaultLevel keeps the library quiet when embedded; callers raise it with SetLevel.
const DefaultLevel = "warn"

var defaultLogger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

type Fields map[string]interface{}

func Level() string {
	return defaultLogger.GetLevel().String()
}

// SetLevel sets the minimum level. Unknown names leave the level unchanged.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		defaultLogger.SetLevel(logrus.TraceLevel)
	case "debug":
		defaultLogger.SetLevel(logrus.DebugLevel)
	case "info":
		defaultLogger.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		defaultLogger.SetLevel(logrus.WarnLevel)
	case "error":
		defaultLogger.SetLevel(logrus.ErrorLevel)
	case "null", "none":
		defaultLogger.SetLevel(logrus.PanicLevel)
		defaultLogger.SetOutput(io.Discard)
	}
}

// SetOutput directs log lines to w.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// SetOutputFile selects the log destination: "-" is stdout, "=" or "" is stderr,
// anything else is a file rotated at maxSizeMB keeping filesKeep old copies.
func SetOutputFile(output string, maxSizeMB, filesKeep int) {
	switch output {
	case "", "=":
		defaultLogger.SetOutput(os.Stderr)
	case "-":
		defaultLogger.SetOutput(os.Stdout)
	default:
		defaultLogger.SetOutput(&lumberjack.Logger{
			Filename:   output,
			MaxSize:    maxSizeMB,
			MaxBackups: filesKeep,
		})
	}
}

// SetOutputFormat selects "text" or "json". Unknown formats are ignored.
func SetOutputFormat(format string) {
	switch strings.ToLower(format) {
	case "text":
		defaultLogger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:          true,
			DisableLevelTruncation: true,
			PadLevelText:           true,
			QuoteEmptyFields:       true,
		})
	case "json":
		defaultLogger.SetFormatter(&logrus.JSONFormatter{})
	}
}

type Logger interface {
	WithContext(ctx context.Context) Logger
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	IsTracing() bool
	IsDebugging() bool
}

type logrusEntryWrapper struct {
	e *logrus.Entry
}

func (l *logrusEntryWrapper) WithContext(ctx context.Context) Logger {
	return addFromContext(
		&logrusEntryWrapper{l.e.WithContext(ctx)},
		ctx,
	)
}

func (l *logrusEntryWrapper) WithField(key string, value interface{}) Logger {
	return &logrusEntryWrapper{l.e.WithField(key, value)}
}

func (l *logrusEntryWrapper) WithFields(fields Fields) Logger {
	return &logrusEntryWrapper{l.e.WithFields(logrus.Fields(fields))}
}

func (l *logrusEntryWrapper) WithError(err error) Logger {
	return &logrusEntryWrapper{l.e.WithError(err)}
}

func (l *logrusEntryWrapper) Trace(args ...interface{}) { l.e.Trace(args...) }
func (l *logrusEntryWrapper) Debug(args ...interface{}) { l.e.Debug(args...) }
func (l *logrusEntryWrapper) Info(args ...interface{})  { l.e.Info(args...) }
func (l *logrusEntryWrapper) Warn(args ...interface{})  { l.e.Warn(args...) }
func (l *logrusEntryWrapper) Error(args ...interface{}) { l.e.Error(args...) }

func (l *logrusEntryWrapper) Tracef(format string, args ...interface{}) {
	l.e.Tracef(format, args...)
}

func (l *logrusEntryWrapper) Debugf(format string, args ...interface{}) {
	l.e.Debugf(format, args...)
}

func (l *logrusEntryWrapper) Infof(format string, args ...interface{}) {
	l.e.Infof(format, args...)
}

func (l *logrusEntryWrapper) Warnf(format string, args ...interface{}) {
	l.e.Warnf(format, args...)
}

func (l *logrusEntryWrapper) Errorf(format string, args ...interface{}) {
	l.e.Errorf(format, args...)
}

func (*logrusEntryWrapper) IsTracing() bool {
	return defaultLogger.IsLevelEnabled(logrus.TraceLevel)
}

func (*logrusEntryWrapper) IsDebugging() bool {
	return defaultLogger.IsLevelEnabled(logrus.DebugLevel)
}

func Default() Logger {
	return &logrusEntryWrapper{
		e: logrus.NewEntry(defaultLogger),
	}
}

func addFromContext(log Logger, ctx context.Context) Logger {
	fields, ok := ctx.Value(LogFieldsContextKey).(Fields)
	if !ok {
		return log
	}
	return log.WithFields(fields)
}

// FromContext returns the default logger with the fields stored on ctx.
func FromContext(ctx context.Context) Logger {
	return addFromContext(Default(), ctx)
}

// AddFields returns a context carrying fields on top of those already on ctx. The
// parent's fields are never modified.
func AddFields(ctx context.Context, fields Fields) context.Context {
	loggerFields := Fields{}
	if ctxFields, ok := ctx.Value(LogFieldsContextKey).(Fields); ok {
		for k, v := range ctxFields {
			loggerFields[k] = v
		}
	}
	for k, v := range fields {
		loggerFields[k] = v
	}
	return context.WithValue(ctx, LogFieldsContextKey, loggerFields)
}
