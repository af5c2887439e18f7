package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the timestamp layout of console and file output.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes tab separated entries to an io.Writer.
type ConsoleAppender struct {
	mu sync.Mutex
	io.Writer
}

// NewStdoutAppender writes to stdout.
func NewStdoutAppender() *ConsoleAppender {
	return &ConsoleAppender{Writer: os.Stdout}
}

// NewWriterAppender writes to w.
func NewWriterAppender(w io.Writer) *ConsoleAppender {
	return &ConsoleAppender{Writer: w}
}

// FileAppenderConfig controls rotation of a log file.
type FileAppenderConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileAppender writes to a size rotated file.
func NewFileAppender(cfg FileAppenderConfig) *ConsoleAppender {
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 100
	}
	return &ConsoleAppender{Writer: &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}}
}

// Write outputs one line per entry.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatEntry(entry, fields)
	appender.mu.Lock()
	defer appender.mu.Unlock()
	if _, werr := fmt.Fprintln(appender.Writer, line); werr != nil {
		return werr
	}
	return err
}

// Sync flushes files; other writers are unbuffered.
func (appender *ConsoleAppender) Sync() error {
	if syncer, ok := appender.Writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close releases a rotated file.
func (appender *ConsoleAppender) Close() error {
	if closer, ok := appender.Writer.(io.Closer); ok && appender.Writer != os.Stdout {
		return closer.Close()
	}
	return nil
}

// formatEntry renders time, level, logger name, caller, message and the fields as a json object.
func formatEntry(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	parts := make([]string, 0, 6)
	parts = append(parts, entry.Time.Format(DefaultTimeFormatStr), strings.ToUpper(entry.Level.String()))
	if entry.LoggerName != "" {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		parts = append(parts, callerToString(&entry.Caller))
	}
	parts = append(parts, entry.Message)
	if len(fields) == 0 {
		return strings.Join(parts, "\t"), nil
	}

	// an empty entry leaves only the fields in the encoded object
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(parts, "\t"), err
	}
	parts = append(parts, buf.String())
	return strings.Join(parts, "\t"), nil
}

// callerToString returns "dir/file.go:line".
func callerToString(caller *zapcore.EntryCaller) string {
	idx := strings.LastIndexByte(caller.File, '/')
	if idx == -1 {
		return fmt.Sprintf("%s:%d", caller.File, caller.Line)
	}
	idx = strings.LastIndexByte(caller.File[:idx], '/')
	if idx == -1 {
		return fmt.Sprintf("%s:%d", caller.File, caller.Line)
	}
	return fmt.Sprintf("%s:%d", caller.File[idx+1:], caller.Line)
}
