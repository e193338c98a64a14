package gelfbuf

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig controls log file rotation for a FileAppender. The zero
// value disables rotation and appends to a plain file.
type RotationConfig struct {
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// FileAppenderConfig configures a FileAppender.
type FileAppenderConfig struct {
	Path     string
	Level    Level
	Filter   string
	Rotation RotationConfig
}

// FileAppender writes records as JSON lines to a local file, with optional
// rotation. It is the second appender kind next to the buffered GELF one.
type FileAppender struct {
	mu     sync.Mutex
	writer io.WriteCloser
	level  Level
	filter glob.Glob
}

// NewFileAppender creates a file appender. The file is opened (or created)
// immediately so a bad path fails at construction.
func NewFileAppender(cfg FileAppenderConfig) (*FileAppender, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file appender requires a path")
	}

	var filter glob.Glob
	if cfg.Filter != "" {
		compiled, err := glob.Compile(cfg.Filter, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern '%s': %w", cfg.Filter, err)
		}
		filter = compiled
	}

	var writer io.WriteCloser
	rotationConfigured := cfg.Rotation.MaxSizeMB > 0 || cfg.Rotation.MaxAgeDays > 0 || cfg.Rotation.MaxBackups > 0
	if rotationConfigured {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.Rotation.MaxSizeMB,
			MaxAge:     cfg.Rotation.MaxAgeDays,
			MaxBackups: cfg.Rotation.MaxBackups,
			Compress:   cfg.Rotation.Compress,
		}
	} else {
		f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file '%s': %w", cfg.Path, err)
		}
		writer = f
	}

	return &FileAppender{
		writer: writer,
		level:  cfg.Level,
		filter: filter,
	}, nil
}

// Append writes one JSON line for the record.
func (a *FileAppender) Append(r *Record) error {
	if !a.level.Allows(r.Level) {
		return nil
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	entry := make(map[string]interface{}, len(r.Fields)+5)
	entry["time"] = ts.Format(time.RFC3339Nano)
	entry["level"] = r.Level.String()
	entry["message"] = r.Message
	if r.Logger != "" {
		entry["logger"] = r.Logger
	}
	if r.File != "" {
		entry["file"] = fmt.Sprintf("%s:%d", r.File, r.Line)
	}
	for k, v := range r.Fields {
		entry[k] = v.Interface()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log record: %w", err)
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write log record: %w", err)
	}
	return nil
}

// Flush is a no-op; writes go straight to the file.
func (a *FileAppender) Flush() {}

// Close closes the underlying file.
func (a *FileAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writer.Close()
}

func (a *FileAppender) matchesLogger(name string) bool {
	if a.filter == nil {
		return true
	}
	return a.filter.Match(name)
}
