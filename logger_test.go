package gelfbuf

import (
	"errors"
	"sync"
	"testing"
)

// recordingAppender captures dispatched records.
type recordingAppender struct {
	mu      sync.Mutex
	records []*Record
	flushes int
	failErr error
	filter  func(string) bool
}

func (a *recordingAppender) Append(r *Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failErr != nil {
		return a.failErr
	}
	a.records = append(a.records, r)
	return nil
}

func (a *recordingAppender) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushes++
}

func (a *recordingAppender) Close() error { return nil }

func (a *recordingAppender) matchesLogger(name string) bool {
	if a.filter == nil {
		return true
	}
	return a.filter(name)
}

func (a *recordingAppender) Records() []*Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Record, len(a.records))
	copy(out, a.records)
	return out
}

func TestNewLogger_UnknownAppender(t *testing.T) {
	_, err := NewLogger(Config{
		Appenders: map[string]Appender{"a": &recordingAppender{}},
		Root:      Root{Level: LevelInfo, Appenders: []string{"missing"}},
	})
	if err == nil {
		t.Error("expected error for unknown appender reference")
	}
}

func TestLogger_Dispatch(t *testing.T) {
	app := &recordingAppender{}
	logger, err := NewLogger(Config{
		Appenders: map[string]Appender{"capture": app},
		Root:      Root{Level: LevelInfo},
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("hello", map[string]Value{"k": String("v")})
	logger.Debug("suppressed by root level", nil)
	logger.Error("boom", nil)

	records := app.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 dispatched records, got %d", len(records))
	}
	if records[0].Message != "hello" || records[0].Level != LevelInfo {
		t.Errorf("first record = %q at %v", records[0].Message, records[0].Level)
	}
	if records[0].File == "" || records[0].Line == 0 {
		t.Error("expected source location on record")
	}
	if records[0].Fields["k"].Interface() != "v" {
		t.Error("record fields not carried")
	}
	if records[1].Level != LevelError {
		t.Errorf("second record level = %v", records[1].Level)
	}
}

func TestLogger_NamedFilter(t *testing.T) {
	app := &recordingAppender{filter: func(name string) bool { return name == "api" }}
	logger, err := NewLogger(Config{
		Appenders: map[string]Appender{"api-only": app},
		Root:      Root{Level: LevelDebug},
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Named("api").Info("in", nil)
	logger.Named("db").Info("out", nil)
	logger.Info("unnamed out", nil)

	records := app.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Logger != "api" {
		t.Errorf("record logger = %q", records[0].Logger)
	}
}

func TestLogger_AppendErrorIsolated(t *testing.T) {
	failing := &recordingAppender{failErr: errors.New("sink broken")}
	healthy := &recordingAppender{}
	logger, err := NewLogger(Config{
		Appenders: map[string]Appender{"bad": failing, "good": healthy},
		Root:      Root{Level: LevelInfo},
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	// Must not panic and must still reach the healthy appender.
	logger.Info("hello", nil)
	if len(healthy.Records()) != 1 {
		t.Error("healthy appender should have received the record")
	}
}

func TestLogger_FlushReachesAppenders(t *testing.T) {
	app := &recordingAppender{}
	logger, err := NewLogger(Config{
		Appenders: map[string]Appender{"capture": app},
		Root:      Root{Level: LevelInfo},
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Flush()
	if app.flushes != 1 {
		t.Errorf("flushes = %d, want 1", app.flushes)
	}
}

func TestBufferAppender_GlobFilter(t *testing.T) {
	_, _ = withCaptureSender(t)

	app, err := NewBufferAppenderBuilder().SetFilter("api.*").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer app.Close()

	if !app.matchesLogger("api.http") {
		t.Error("api.http should match api.*")
	}
	if app.matchesLogger("db.pool") {
		t.Error("db.pool should not match api.*")
	}
	if app.matchesLogger("api.http.client") {
		t.Error("api.http.client should not cross the '.' separator")
	}
}

func TestInitConfig_OnlyOnce(t *testing.T) {
	if err := Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	t.Cleanup(func() { _ = Reset() })

	app := &recordingAppender{}
	first, err := InitConfig(Config{
		Appenders: map[string]Appender{"capture": app},
		Root:      Root{Level: LevelInfo},
	})
	if err != nil {
		t.Fatalf("first InitConfig failed: %v", err)
	}

	_, err = InitConfig(Config{
		Appenders: map[string]Appender{"other": &recordingAppender{}},
		Root:      Root{Level: LevelInfo},
	})
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second InitConfig = %v, want ErrAlreadyInitialized", err)
	}

	if Default() != first {
		t.Error("first logger must stay active after a failed re-init")
	}

	// The global helpers route to the first logger.
	Info("through global", nil)
	if len(app.Records()) != 1 {
		t.Errorf("expected 1 record via global helpers, got %d", len(app.Records()))
	}
}

func TestReset_AllowsReinit(t *testing.T) {
	if err := Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	t.Cleanup(func() { _ = Reset() })

	if _, err := InitConfig(Config{
		Appenders: map[string]Appender{"a": &recordingAppender{}},
		Root:      Root{Level: LevelInfo},
	}); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if err := Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if Default() != nil {
		t.Fatal("Default should be nil after Reset")
	}
	if _, err := InitConfig(Config{
		Appenders: map[string]Appender{"b": &recordingAppender{}},
		Root:      Root{Level: LevelInfo},
	}); err != nil {
		t.Fatalf("re-init after Reset failed: %v", err)
	}
}

func TestGlobalHelpers_NoopWithoutInit(t *testing.T) {
	if err := Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	// None of these may panic without an installed logger.
	Debug("d", nil)
	Info("i", nil)
	Warning("w", nil)
	Error("e", nil)
	Flush()
}
