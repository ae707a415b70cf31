// Package logger keeps a logrus entry in the context so request fields
// (intent, request id, chat) follow a dialog through every layer.
package logger

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// G returns the logger carried by ctx.
	G = GetLogger
	// L is the fallback entry used when the context carries none.
	L = logrus.NewEntry(newLogger())
)

type loggerKey struct{}

// WithLogger attaches entry to ctx.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry.WithContext(ctx))
}

// WithField is shorthand for attaching G(ctx).WithField(key, value).
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	return WithLogger(ctx, G(ctx).WithField(key, value))
}

// GetLogger returns the entry stored in ctx, or L.
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return L.WithContext(ctx)
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	setLoggerFormat(l, "fmt")
	return l
}

func setLoggerFormat(l *logrus.Logger, format string) {
	switch format {
	case "json":
		l.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "logLevel",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	default:
		l.Formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		}
	}
}

// SetLogLevel sets the level of the global logger.
func SetLogLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	L.Logger.SetLevel(lvl)
	return nil
}

// SetLogFormat switches the global logger between "fmt" and "json".
func SetLogFormat(format string) {
	setLoggerFormat(L.Logger, format)
}

// SetLogOutput redirects the global logger.
func SetLogOutput(w io.Writer) {
	L.Logger.SetOutput(w)
}
