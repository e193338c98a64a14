package gelfbuf

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"
)

// Appender is the sink capability consumed by the dispatch core. Append
// receives one record at a time and reports only synchronous, local
// failures; Flush requests a best-effort drain of buffered output.
type Appender interface {
	Append(r *Record) error
	Flush()
	Close() error
}

// Implemented by appenders that restrict themselves to matching logger
// names. Dispatch skips an appender whose filter rejects the record.
type loggerNameFilter interface {
	matchesLogger(name string) bool
}

// Root configures the root logger: its severity threshold and the names of
// the appenders attached to it. An empty appender list attaches all
// configured appenders.
type Root struct {
	Level     Level
	Appenders []string
}

// Config is a complete programmatic logging configuration.
type Config struct {
	Appenders map[string]Appender
	Root      Root
}

type namedAppender struct {
	name     string
	appender Appender
}

// Logger fans records out to its attached appenders. Loggers are immutable
// after construction; Named returns derived loggers sharing the appenders.
type Logger struct {
	name      string
	level     Level
	appenders []namedAppender
}

// NewLogger builds a logger from the configuration without installing it
// globally.
func NewLogger(cfg Config) (*Logger, error) {
	names := cfg.Root.Appenders
	if len(names) == 0 {
		names = make([]string, 0, len(cfg.Appenders))
		for name := range cfg.Appenders {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	appenders := make([]namedAppender, 0, len(names))
	for _, name := range names {
		app, ok := cfg.Appenders[name]
		if !ok {
			return nil, fmt.Errorf("root references unknown appender '%s'", name)
		}
		appenders = append(appenders, namedAppender{name: name, appender: app})
	}

	return &Logger{level: cfg.Root.Level, appenders: appenders}, nil
}

// Named returns a logger emitting records under the given logger name, for
// appender filters to match against.
func (l *Logger) Named(name string) *Logger {
	copied := *l
	copied.name = name
	return &copied
}

// Log emits one record at the given level.
func (l *Logger) Log(level Level, msg string, fields map[string]Value) {
	l.log(2, level, msg, fields)
}

// Debug emits a debug record.
func (l *Logger) Debug(msg string, fields map[string]Value) {
	l.log(2, LevelDebug, msg, fields)
}

// Info emits an informational record.
func (l *Logger) Info(msg string, fields map[string]Value) {
	l.log(2, LevelInfo, msg, fields)
}

// Notice emits a notice record.
func (l *Logger) Notice(msg string, fields map[string]Value) {
	l.log(2, LevelNotice, msg, fields)
}

// Warning emits a warning record.
func (l *Logger) Warning(msg string, fields map[string]Value) {
	l.log(2, LevelWarning, msg, fields)
}

// Error emits an error record.
func (l *Logger) Error(msg string, fields map[string]Value) {
	l.log(2, LevelError, msg, fields)
}

// Critical emits a critical record.
func (l *Logger) Critical(msg string, fields map[string]Value) {
	l.log(2, LevelCritical, msg, fields)
}

// Alert emits an alert record.
func (l *Logger) Alert(msg string, fields map[string]Value) {
	l.log(2, LevelAlert, msg, fields)
}

// Emergency emits an emergency record.
func (l *Logger) Emergency(msg string, fields map[string]Value) {
	l.log(2, LevelEmergency, msg, fields)
}

// log builds the record and dispatches it. Append errors are reported to
// stderr and swallowed: a broken sink must not break the application.
func (l *Logger) log(calldepth int, level Level, msg string, fields map[string]Value) {
	if !l.level.Allows(level) {
		return
	}

	r := &Record{
		Level:   level,
		Message: msg,
		Time:    time.Now(),
		Logger:  l.name,
		Fields:  fields,
	}
	if _, file, line, ok := runtime.Caller(calldepth); ok {
		r.File = file
		r.Line = line
	}

	for _, na := range l.appenders {
		if f, ok := na.appender.(loggerNameFilter); ok && !f.matchesLogger(l.name) {
			continue
		}
		if err := na.appender.Append(r); err != nil {
			fmt.Fprintf(os.Stderr, "[gelfbuf] appender '%s': %v\n", na.name, err)
		}
	}
}

// Flush flushes every attached appender.
func (l *Logger) Flush() {
	for _, na := range l.appenders {
		na.appender.Flush()
	}
}

// Close closes every attached appender and joins their errors.
func (l *Logger) Close() error {
	var errs []error
	for _, na := range l.appenders {
		if err := na.appender.Close(); err != nil {
			errs = append(errs, fmt.Errorf("appender '%s': %w", na.name, err))
		}
	}
	return errors.Join(errs...)
}
