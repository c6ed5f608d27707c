package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ConsoleDriver writes human-readable lines
type ConsoleDriver struct {
	colorize bool
	writer   io.Writer
	mutex    sync.Mutex
}

// NewConsoleDriver creates a new console driver writing to stderr
func NewConsoleDriver(colorize bool) *ConsoleDriver {
	return &ConsoleDriver{
		colorize: colorize,
		writer:   os.Stderr,
	}
}

// SetWriter sets the output writer
func (cd *ConsoleDriver) SetWriter(writer io.Writer) {
	cd.mutex.Lock()
	defer cd.mutex.Unlock()
	cd.writer = writer
}

// Write writes a log entry to the console
func (cd *ConsoleDriver) Write(ctx context.Context, entry LogEntry) error {
	level := strings.ToUpper(GetLevelName(entry.Level))
	if cd.colorize {
		level = GetLevelColor(entry.Level) + level + GetColorReset()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s",
		level,
		entry.Timestamp.Format("2006-01-02 15:04:05"),
		entry.Channel,
		entry.Message,
	)

	// Context as sorted key=value pairs so lines are stable
	keys := make([]string, 0, len(entry.Context))
	for k := range entry.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Context[k])
	}
	b.WriteByte('\n')

	cd.mutex.Lock()
	defer cd.mutex.Unlock()
	_, err := io.WriteString(cd.writer, b.String())
	return err
}

// Close closes the console driver (no-op)
func (cd *ConsoleDriver) Close() error {
	return nil
}

// JSONDriver outputs structured JSON logs, one object per line
type JSONDriver struct {
	writer io.Writer
	mutex  sync.Mutex
}

// NewJSONDriver creates a new JSON driver
func NewJSONDriver(writer io.Writer) *JSONDriver {
	return &JSONDriver{writer: writer}
}

// SetWriter sets the output writer
func (jd *JSONDriver) SetWriter(writer io.Writer) {
	jd.mutex.Lock()
	defer jd.mutex.Unlock()
	jd.writer = writer
}

// Write writes a log entry as JSON
func (jd *JSONDriver) Write(ctx context.Context, entry LogEntry) error {
	logData := map[string]interface{}{
		"level":     GetLevelName(entry.Level),
		"message":   entry.Message,
		"timestamp": entry.Timestamp.Format(time.RFC3339),
		"channel":   entry.Channel,
	}
	if len(entry.Context) > 0 {
		logData["context"] = entry.Context
	}

	jsonData, err := json.Marshal(logData)
	if err != nil {
		return err
	}
	jsonData = append(jsonData, '\n')

	jd.mutex.Lock()
	defer jd.mutex.Unlock()
	_, err = jd.writer.Write(jsonData)
	return err
}

// Close closes the JSON driver (no-op)
func (jd *JSONDriver) Close() error {
	return nil
}

// MemoryDriver keeps entries in memory, for tests and inspection
type MemoryDriver struct {
	entries []LogEntry
	mutex   sync.Mutex
}

// NewMemoryDriver creates an empty memory driver
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{}
}

// Write records the entry
func (md *MemoryDriver) Write(ctx context.Context, entry LogEntry) error {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.entries = append(md.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries
func (md *MemoryDriver) Entries() []LogEntry {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	out := make([]LogEntry, len(md.entries))
	copy(out, md.entries)
	return out
}

// Messages returns the recorded messages at or above level
func (md *MemoryDriver) Messages(level LogLevel) []string {
	var messages []string
	for _, entry := range md.Entries() {
		if entry.Level >= level {
			messages = append(messages, entry.Message)
		}
	}
	return messages
}

// Reset drops the recorded entries
func (md *MemoryDriver) Reset() {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.entries = nil
}

// Close closes the memory driver (no-op)
func (md *MemoryDriver) Close() error {
	return nil
}
