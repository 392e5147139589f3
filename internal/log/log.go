// Package log provides a global interface to logging functionality
package log

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Client is the context key carrying the registry slot of the client a log
// message relates to.
type Client struct{}

// WithClient returns a copy of ctx whose log entries are tagged with the
// given client slot.
func WithClient(ctx context.Context, slot int) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, Client{}, slot)
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	logSpanf(ctx, "DEBUG", format, args...)
	entry(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	logSpanf(ctx, "INFO", format, args...)
	entry(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	logSpanf(ctx, "WARN", format, args...)
	entry(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	logSpanf(ctx, "ERROR", format, args...)
	entry(ctx).Errorf(format, args...)
}

func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logSpanf(ctx, "FATAL", format, args...)
	entry(ctx).Fatalf(format, args...)
}

func WithFields(ctx context.Context, fields map[string]interface{}) *logrus.Entry {
	return entry(ctx).WithFields(fields)
}

func logSpanf(ctx context.Context, level, format string, args ...interface{}) {
	if ctx == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("level", level)}
	if slot, ok := ctx.Value(Client{}).(int); ok {
		attrs = append(attrs, attribute.Int("client", slot))
	}
	trace.SpanFromContext(ctx).AddEvent(fmt.Sprintf(format, args...), trace.WithAttributes(attrs...))
}

func entry(ctx context.Context) *logrus.Entry {
	logger := logrus.StandardLogger()
	if ctx == nil {
		return logrus.NewEntry(logger)
	}

	if slot, ok := ctx.Value(Client{}).(int); ok {
		return logger.WithField("client", slot)
	}

	return logrus.NewEntry(logger)
}
