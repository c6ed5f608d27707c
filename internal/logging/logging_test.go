package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "debug"},
		{InfoLevel, "info"},
		{WarnLevel, "warning"},
		{ErrorLevel, "error"},
		{FatalLevel, "fatal"},
		{LogLevel(42), "unknown"},
	}

	for _, test := range tests {
		if GetLevelName(test.level) != test.expected {
			t.Errorf("Expected level name %s, got %s", test.expected, GetLevelName(test.level))
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{" info ", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"unknown", InfoLevel}, // default
	}

	for _, test := range tests {
		if ParseLogLevel(test.input) != test.expected {
			t.Errorf("Expected level %v for input %s, got %v", test.expected, test.input, ParseLogLevel(test.input))
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buffer := &bytes.Buffer{}
	consoleDriver := NewConsoleDriver(false)
	consoleDriver.SetWriter(buffer)

	logger := NewLogger(consoleDriver, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buffer.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered out")
	}
	if !strings.Contains(output, "warn message") {
		t.Errorf("Warn message should appear in output: %s", output)
	}
	if !strings.Contains(output, "error message") {
		t.Errorf("Error message should appear in output: %s", output)
	}
}

func TestConsoleDriver(t *testing.T) {
	buffer := &bytes.Buffer{}
	driver := NewConsoleDriver(false)
	driver.SetWriter(buffer)

	entry := LogEntry{
		Level:     InfoLevel,
		Message:   "Created table",
		Timestamp: time.Now(),
		Channel:   "migrations",
		Context:   map[string]interface{}{"version": 2, "table": "accounts"},
	}

	if err := driver.Write(context.Background(), entry); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	output := buffer.String()
	if !strings.Contains(output, "[INFO]") {
		t.Errorf("Expected output to contain '[INFO]', got: %s", output)
	}
	if !strings.Contains(output, "[migrations] Created table table=accounts version=2") {
		t.Errorf("Expected sorted context after message, got: %s", output)
	}
}

func TestConsoleDriverColorize(t *testing.T) {
	buffer := &bytes.Buffer{}
	driver := NewConsoleDriver(true)
	driver.SetWriter(buffer)

	driver.Write(context.Background(), LogEntry{Level: ErrorLevel, Message: "boom", Timestamp: time.Now()})

	if !strings.Contains(buffer.String(), GetLevelColor(ErrorLevel)+"ERROR"+GetColorReset()) {
		t.Errorf("Expected colorized level, got: %q", buffer.String())
	}
}

func TestJSONDriver(t *testing.T) {
	buffer := &bytes.Buffer{}
	driver := NewJSONDriver(buffer)

	entry := LogEntry{
		Level:     InfoLevel,
		Message:   "test message",
		Timestamp: time.Now(),
		Channel:   "test",
		Context:   map[string]interface{}{"key": "value"},
	}

	if err := driver.Write(context.Background(), entry); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buffer.Bytes(), &decoded); err != nil {
		t.Fatalf("Expected a JSON line, got %q: %v", buffer.String(), err)
	}
	if decoded["level"] != "info" {
		t.Errorf("Expected level info, got %v", decoded["level"])
	}
	if decoded["channel"] != "test" {
		t.Errorf("Expected channel test, got %v", decoded["channel"])
	}
}

func TestWithContextAndChannel(t *testing.T) {
	driver := NewMemoryDriver()
	logger := NewLogger(driver, DebugLevel)

	tableLogger := logger.WithContext(map[string]interface{}{"table": "accounts"}).WithChannel("migrations")
	tableLogger.Info("Upgraded table", map[string]interface{}{"to": 2})
	logger.Info("plain")

	entries := driver.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Channel != "migrations" {
		t.Errorf("Expected channel migrations, got %s", entries[0].Channel)
	}
	if entries[0].Context["table"] != "accounts" || entries[0].Context["to"] != 2 {
		t.Errorf("Expected merged context, got %v", entries[0].Context)
	}
	if _, leaked := entries[1].Context["table"]; leaked {
		t.Errorf("WithContext must not modify the parent logger, got %v", entries[1].Context)
	}
}

func TestSpanContextIsLogged(t *testing.T) {
	driver := NewMemoryDriver()
	logger := NewLogger(driver, DebugLevel)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x04, 0x05},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "inside span")
	logger.InfoContext(context.Background(), "outside span")

	entries := driver.Entries()
	if entries[0].Context["trace_id"] != sc.TraceID().String() {
		t.Errorf("Expected trace_id %s, got %v", sc.TraceID(), entries[0].Context["trace_id"])
	}
	if entries[0].Context["span_id"] != sc.SpanID().String() {
		t.Errorf("Expected span_id %s, got %v", sc.SpanID(), entries[0].Context["span_id"])
	}
	if _, ok := entries[1].Context["trace_id"]; ok {
		t.Error("Expected no trace_id without an active span")
	}
}

func TestMemoryDriverMessages(t *testing.T) {
	driver := NewMemoryDriver()
	logger := NewLogger(driver, DebugLevel)

	logger.Debug("one")
	logger.Warn("two")

	if got := driver.Messages(WarnLevel); len(got) != 1 || got[0] != "two" {
		t.Errorf("Expected [two], got %v", got)
	}

	driver.Reset()
	if len(driver.Entries()) != 0 {
		t.Error("Expected no entries after reset")
	}
}

func TestNew(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger, err := New(Config{Level: InfoLevel, Format: "json", Channel: "cli"}, buffer)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("hello")
	if !strings.Contains(buffer.String(), `"channel":"cli"`) {
		t.Errorf("Expected channel cli in output, got: %s", buffer.String())
	}

	if _, err := New(Config{Format: "xml"}, buffer); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	logger.Info("ignored")
	if logger.WithChannel("x") != logger {
		t.Error("Expected null logger modifiers to return the same logger")
	}
}
