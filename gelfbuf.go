// Package gelfbuf ships application log records to a GELF-speaking
// log-aggregation service such as Graylog. Records are buffered and sent in
// batches by a background worker; the flush triggers are a record-count limit
// and a maximum batch age.
//
// A logger can be configured declaratively from a YAML file:
//
//	appenders:
//	  graylog:
//	    kind: buffer
//	    level: info
//	    hostname: 127.0.0.1
//	    port: 12202
//	    use_tls: false
//	    null_character: true
//	    buffer_size: 5
//	    additional_fields:
//	      component: ingest
//	root:
//	  level: info
//	  appenders: [graylog]
//
//	logger, err := gelfbuf.InitFile("/etc/myapp/logging.yaml", nil)
//
// or programmatically:
//
//	appender, err := gelfbuf.NewBufferAppenderBuilder().
//		SetLevel(gelfbuf.LevelInfo).
//		SetHostname("localhost").
//		SetPort(12202).
//		SetUseTLS(false).
//		SetBufferSize(5).
//		PutAdditionalField("component", gelfbuf.String("ingest")).
//		Build()
//	if err != nil {
//		...
//	}
//	logger, err := gelfbuf.InitConfig(gelfbuf.Config{
//		Appenders: map[string]gelfbuf.Appender{"graylog": appender},
//		Root:      gelfbuf.Root{Level: gelfbuf.LevelInfo},
//	})
//
// The logging system may only be initialized once; a second Init call fails
// with ErrAlreadyInitialized. Reset tears the global logger down again, which
// is mainly useful in tests.
package gelfbuf

import (
	"errors"
	"sync"
)

// ErrAlreadyInitialized is returned when a process-wide logger is installed a
// second time. The first logger stays active.
var ErrAlreadyInitialized = errors.New("logger already initialized")

var (
	globalMu sync.Mutex
	global   *Logger
)

// InitConfig installs the process-wide logger from a programmatic
// configuration. The caller keeps ownership of the appenders on failure.
func InitConfig(cfg Config) (*Logger, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return nil, ErrAlreadyInitialized
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	global = logger
	return logger, nil
}

// InitFile installs the process-wide logger from a YAML configuration file.
// A nil deserializer registry uses DefaultDeserializers. Appenders built from
// the file are closed again if installation fails.
func InitFile(path string, deserializers *Deserializers) (*Logger, error) {
	if deserializers == nil {
		deserializers = DefaultDeserializers()
	}

	cfg, err := LoadConfig(path, deserializers)
	if err != nil {
		return nil, err
	}

	logger, err := InitConfig(cfg)
	if err != nil {
		closeAppenders(cfg.Appenders)
		return nil, err
	}
	return logger, nil
}

// Default returns the installed global logger, or nil when none is
// installed.
func Default() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// Flush flushes the global logger, if installed.
func Flush() {
	if lg := Default(); lg != nil {
		lg.Flush()
	}
}

// Reset closes the global logger and clears the slot so Init can be called
// again. Intended for test isolation.
func Reset() error {
	globalMu.Lock()
	logger := global
	global = nil
	globalMu.Unlock()

	if logger == nil {
		return nil
	}
	return logger.Close()
}

// Debug logs through the global logger; a no-op when none is installed.
func Debug(msg string, fields map[string]Value) {
	if lg := Default(); lg != nil {
		lg.log(2, LevelDebug, msg, fields)
	}
}

// Info logs through the global logger; a no-op when none is installed.
func Info(msg string, fields map[string]Value) {
	if lg := Default(); lg != nil {
		lg.log(2, LevelInfo, msg, fields)
	}
}

// Warning logs through the global logger; a no-op when none is installed.
func Warning(msg string, fields map[string]Value) {
	if lg := Default(); lg != nil {
		lg.log(2, LevelWarning, msg, fields)
	}
}

// Error logs through the global logger; a no-op when none is installed.
func Error(msg string, fields map[string]Value) {
	if lg := Default(); lg != nil {
		lg.log(2, LevelError, msg, fields)
	}
}
