package gelfbuf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, content string) string {
	tempFile := filepath.Join(t.TempDir(), "logging.yaml")
	err := os.WriteFile(tempFile, []byte(content), 0644)
	require.NoError(t, err, "Failed to create temporary config file")
	return tempFile
}

func TestLoadConfig_BufferSectionDefaults(t *testing.T) {
	_, seen := withCaptureSender(t)

	path := createTempConfigFile(t, `
appenders:
  graylog:
    kind: buffer
    hostname: localhost
    port: 12202
    buffer_size: 5
root:
  level: info
  appenders: [graylog]
`)

	cfg, err := LoadConfig(path, DefaultDeserializers())
	require.NoError(t, err)
	defer closeAppenders(cfg.Appenders)

	require.Len(t, cfg.Appenders, 1)
	require.IsType(t, &BufferAppender{}, cfg.Appenders["graylog"])
	assert.Equal(t, []string{"graylog"}, cfg.Root.Appenders)
	assert.Equal(t, LevelInfo, cfg.Root.Level)

	// Explicitly set fields.
	assert.Equal(t, "localhost", seen.hostname)
	assert.Equal(t, 12202, seen.port)
	assert.Equal(t, 5, seen.bufferSize)

	// Everything else at builder defaults.
	assert.Equal(t, LevelInfo, seen.level)
	assert.Equal(t, "tcp", seen.protocol)
	assert.True(t, seen.useTLS)
	assert.True(t, seen.nullCharacter)
	assert.Equal(t, 500*time.Millisecond, seen.bufferDuration)
	assert.Equal(t, 1000, seen.asyncBufferSize)
	assert.Zero(t, seen.connectTimeout)
	assert.Zero(t, seen.writeTimeout)
}

func TestLoadConfig_BufferSectionAllFields(t *testing.T) {
	_, seen := withCaptureSender(t)

	path := createTempConfigFile(t, `
appenders:
  graylog:
    kind: buffer
    level: warn
    hostname: graylog.internal
    port: 12201
    protocol: udp
    use_tls: false
    null_character: false
    compression_type: gzip
    buffer_size: 50
    buffer_duration: 250ms
    async_buffer_size: 500
    connect_timeout: 5
    write_timeout: 2
    filter: "api.*"
    additional_fields:
      component: ingest
      replicas: 3
root:
  level: debug
  appenders: [graylog]
`)

	cfg, err := LoadConfig(path, DefaultDeserializers())
	require.NoError(t, err)
	defer closeAppenders(cfg.Appenders)

	assert.Equal(t, LevelWarning, seen.level)
	assert.Equal(t, "graylog.internal", seen.hostname)
	assert.Equal(t, 12201, seen.port)
	assert.Equal(t, "udp", seen.protocol)
	assert.False(t, seen.useTLS)
	assert.False(t, seen.nullCharacter)
	assert.Equal(t, "gzip", seen.compression)
	assert.Equal(t, 50, seen.bufferSize)
	assert.Equal(t, 250*time.Millisecond, seen.bufferDuration)
	assert.Equal(t, 500, seen.asyncBufferSize)
	assert.Equal(t, 5*time.Second, seen.connectTimeout)
	assert.Equal(t, 2*time.Second, seen.writeTimeout)
	assert.Equal(t, "api.*", seen.filter)
	assert.Equal(t, "ingest", seen.additionalFields["component"].Interface())
	assert.Equal(t, int64(3), seen.additionalFields["replicas"].Interface())
	assert.Equal(t, LevelDebug, cfg.Root.Level)
}

func TestLoadConfig_FileSection(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	path := createTempConfigFile(t, `
appenders:
  local:
    kind: file
    path: `+logPath+`
    level: debug
    rotation:
      max_size: 10
      max_backups: 3
      compress: true
root:
  level: debug
  appenders: [local]
`)

	cfg, err := LoadConfig(path, DefaultDeserializers())
	require.NoError(t, err)
	defer closeAppenders(cfg.Appenders)

	require.IsType(t, &FileAppender{}, cfg.Appenders["local"])
}

func TestLoadConfig_Errors(t *testing.T) {
	_, _ = withCaptureSender(t)

	tests := []struct {
		name    string
		content string
	}{
		{
			name: "Unknown kind",
			content: `
appenders:
  x:
    kind: syslog
`,
		},
		{
			name: "Missing kind",
			content: `
appenders:
  x:
    hostname: localhost
`,
		},
		{
			name: "Port out of range",
			content: `
appenders:
  x:
    kind: buffer
    port: 70000
`,
		},
		{
			name: "Bad protocol",
			content: `
appenders:
  x:
    kind: buffer
    protocol: sctp
`,
		},
		{
			name: "Bad buffer_duration",
			content: `
appenders:
  x:
    kind: buffer
    buffer_duration: fast
`,
		},
		{
			name: "Bad level name",
			content: `
appenders:
  x:
    kind: buffer
    level: loud
`,
		},
		{
			name: "File appender without path",
			content: `
appenders:
  x:
    kind: file
`,
		},
		{
			name: "Root references unknown appender",
			content: `
appenders:
  x:
    kind: buffer
root:
  appenders: [y]
`,
		},
		{
			name:    "Malformed yaml",
			content: "appenders: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempConfigFile(t, tt.content)
			_, err := LoadConfig(path, DefaultDeserializers())
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), DefaultDeserializers())
	assert.Error(t, err)
}

func TestDeserializers_CustomKind(t *testing.T) {
	d := NewDeserializers()
	d.Insert("capture", func(section *yaml.Node) (Appender, error) {
		return &recordingAppender{}, nil
	})

	path := createTempConfigFile(t, `
appenders:
  sink:
    kind: capture
root:
  level: info
  appenders: [sink]
`)

	cfg, err := LoadConfig(path, d)
	require.NoError(t, err)
	require.IsType(t, &recordingAppender{}, cfg.Appenders["sink"])
}

func TestInitFile(t *testing.T) {
	_, _ = withCaptureSender(t)
	require.NoError(t, Reset())
	t.Cleanup(func() { _ = Reset() })

	path := createTempConfigFile(t, `
appenders:
  graylog:
    kind: buffer
    hostname: localhost
    port: 12202
root:
  level: info
  appenders: [graylog]
`)

	logger, err := InitFile(path, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, Default())

	// A second init fails and leaves the first logger installed.
	_, err = InitFile(path, nil)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Same(t, logger, Default())
}
