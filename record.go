package gelfbuf

import "time"

// Record is one emitted log statement as handed to appenders. Records are
// constructed per log call and are not retained after Append returns.
type Record struct {
	Level   Level
	Message string
	Time    time.Time

	// Logger is the name of the emitting logger, used by appender filters.
	Logger string

	// Source location of the log call, when available.
	File string
	Line int

	// Fields are the record's own structured attributes. On key collision
	// they take precedence over appender-configured additional fields.
	Fields map[string]Value
}
