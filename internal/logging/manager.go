package logging

import (
	"context"
	"fmt"
	"io"
	"os"
)

// NewLogger creates a logger writing to driver, dropping entries below level
func NewLogger(driver Driver, level LogLevel) Logger {
	return &channel{
		name:    "default",
		driver:  driver,
		level:   level,
		context: make(map[string]interface{}),
	}
}

// New builds a logger from configuration, writing to w
func New(config Config, w io.Writer) (Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var driver WriterDriver
	switch config.Format {
	case "", "console":
		driver = NewConsoleDriver(config.Colorize)
	case "json":
		driver = NewJSONDriver(w)
	default:
		return nil, fmt.Errorf("unknown log format %q", config.Format)
	}
	driver.SetWriter(w)

	logger := NewLogger(driver, config.Level)
	if config.Channel != "" {
		logger = logger.WithChannel(config.Channel)
	}
	return logger, nil
}

// NewNullLogger returns a logger that discards everything
func NewNullLogger() Logger {
	return &nullLogger{}
}

// nullLogger discards all log entries (for testing/disabled logging)
type nullLogger struct{}

func (nl *nullLogger) DebugContext(ctx context.Context, message string, args ...map[string]interface{}) {}
func (nl *nullLogger) InfoContext(ctx context.Context, message string, args ...map[string]interface{})  {}
func (nl *nullLogger) WarnContext(ctx context.Context, message string, args ...map[string]interface{})  {}
func (nl *nullLogger) ErrorContext(ctx context.Context, message string, args ...map[string]interface{}) {}
func (nl *nullLogger) LogContext(ctx context.Context, level LogLevel, message string, args ...map[string]interface{}) {
}

func (nl *nullLogger) Debug(message string, fields ...map[string]interface{}) {}
func (nl *nullLogger) Info(message string, fields ...map[string]interface{})  {}
func (nl *nullLogger) Warn(message string, fields ...map[string]interface{})  {}
func (nl *nullLogger) Error(message string, fields ...map[string]interface{}) {}
func (nl *nullLogger) WithContext(fields map[string]interface{}) Logger       { return nl }
func (nl *nullLogger) WithChannel(channel string) Logger                      { return nl }
