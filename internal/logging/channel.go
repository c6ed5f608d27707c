package logging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// channel represents a logging channel with specific configuration
type channel struct {
	name    string
	driver  Driver
	level   LogLevel
	context map[string]interface{}
}

// Context-aware logging methods

func (c *channel) DebugContext(ctx context.Context, message string, args ...map[string]interface{}) {
	c.LogContext(ctx, DebugLevel, message, args...)
}

func (c *channel) InfoContext(ctx context.Context, message string, args ...map[string]interface{}) {
	c.LogContext(ctx, InfoLevel, message, args...)
}

func (c *channel) WarnContext(ctx context.Context, message string, args ...map[string]interface{}) {
	c.LogContext(ctx, WarnLevel, message, args...)
}

func (c *channel) ErrorContext(ctx context.Context, message string, args ...map[string]interface{}) {
	c.LogContext(ctx, ErrorLevel, message, args...)
}

func (c *channel) LogContext(ctx context.Context, level LogLevel, message string, args ...map[string]interface{}) {
	if level < c.level {
		return
	}

	entry := LogEntry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
		Channel:   c.name,
		Context:   c.mergeWithSpan(ctx, args...),
	}

	// Logging never fails the caller
	_ = c.driver.Write(ctx, entry)
}

func (c *channel) Debug(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), DebugLevel, message, fields...)
}

func (c *channel) Info(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), InfoLevel, message, fields...)
}

func (c *channel) Warn(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), WarnLevel, message, fields...)
}

func (c *channel) Error(message string, fields ...map[string]interface{}) {
	c.LogContext(context.Background(), ErrorLevel, message, fields...)
}

// Logger modifiers

func (c *channel) WithContext(fields map[string]interface{}) Logger {
	return &channel{
		name:    c.name,
		driver:  c.driver,
		level:   c.level,
		context: c.mergeContext(fields),
	}
}

func (c *channel) WithChannel(channelName string) Logger {
	return &channel{
		name:    channelName,
		driver:  c.driver,
		level:   c.level,
		context: c.context,
	}
}

// Helper methods

func (c *channel) mergeContext(contexts ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(c.context))
	for k, v := range c.context {
		merged[k] = v
	}
	for _, ctx := range contexts {
		for k, v := range ctx {
			merged[k] = v
		}
	}
	return merged
}

// mergeWithSpan adds the trace and span id of the active span, if any
func (c *channel) mergeWithSpan(ctx context.Context, contexts ...map[string]interface{}) map[string]interface{} {
	merged := c.mergeContext(contexts...)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		merged["trace_id"] = sc.TraceID().String()
		merged["span_id"] = sc.SpanID().String()
	}
	return merged
}
