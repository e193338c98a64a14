package gelfbuf

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Deserializer builds one appender from its YAML configuration section.
type Deserializer func(section *yaml.Node) (Appender, error)

// Deserializers maps the `kind` discriminator of an appender section to the
// Deserializer that understands it.
type Deserializers struct {
	byKind map[string]Deserializer
}

// NewDeserializers returns an empty registry.
func NewDeserializers() *Deserializers {
	return &Deserializers{byKind: make(map[string]Deserializer)}
}

// DefaultDeserializers returns a registry with the built-in appender kinds
// `buffer` and `file` registered.
func DefaultDeserializers() *Deserializers {
	d := NewDeserializers()
	d.Insert("buffer", deserializeBufferAppender)
	d.Insert("file", deserializeFileAppender)
	return d
}

// Insert registers a deserializer under a kind, replacing any previous one.
func (d *Deserializers) Insert(kind string, fn Deserializer) {
	d.byKind[kind] = fn
}

type fileConfig struct {
	Appenders map[string]yaml.Node `yaml:"appenders"`
	Root      rootSection          `yaml:"root"`
}

type rootSection struct {
	Level     Level    `yaml:"level"`
	Appenders []string `yaml:"appenders"`
}

// LoadConfig reads a declarative YAML configuration and builds every
// configured appender through the registry. On error, appenders already
// built are closed again.
func LoadConfig(path string, deserializers *Deserializers) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var raw fileConfig
	raw.Root.Level = LevelInfo
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("error parsing config file '%s': %w", path, err)
	}

	appenders := make(map[string]Appender, len(raw.Appenders))
	for name, section := range raw.Appenders {
		var disc struct {
			Kind string `yaml:"kind"`
		}
		if err := section.Decode(&disc); err != nil {
			closeAppenders(appenders)
			return Config{}, fmt.Errorf("appender '%s': %w", name, err)
		}
		if disc.Kind == "" {
			closeAppenders(appenders)
			return Config{}, fmt.Errorf("appender '%s': missing kind", name)
		}

		fn, ok := deserializers.byKind[disc.Kind]
		if !ok {
			closeAppenders(appenders)
			return Config{}, fmt.Errorf("appender '%s': unknown kind '%s'", name, disc.Kind)
		}

		app, err := fn(&section)
		if err != nil {
			closeAppenders(appenders)
			return Config{}, fmt.Errorf("appender '%s': %w", name, err)
		}
		appenders[name] = app
	}

	for _, name := range raw.Root.Appenders {
		if _, ok := appenders[name]; !ok {
			closeAppenders(appenders)
			return Config{}, fmt.Errorf("root references unknown appender '%s'", name)
		}
	}

	return Config{
		Appenders: appenders,
		Root:      Root{Level: raw.Root.Level, Appenders: raw.Root.Appenders},
	}, nil
}

func closeAppenders(appenders map[string]Appender) {
	for _, app := range appenders {
		_ = app.Close()
	}
}

// bufferSection mirrors the declarative fields of the `buffer` kind. Pointer
// fields distinguish "absent" from zero so missing keys fall back to the
// builder defaults. Timeouts are whole seconds; buffer_duration is a Go
// duration string like "500ms".
type bufferSection struct {
	Kind             string           `yaml:"kind"`
	Level            *Level           `yaml:"level"`
	Hostname         *string          `yaml:"hostname"`
	Port             *int             `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Protocol         *string          `yaml:"protocol" validate:"omitempty,oneof=tcp udp"`
	UseTLS           *bool            `yaml:"use_tls"`
	NullCharacter    *bool            `yaml:"null_character"`
	CompressionType  *string          `yaml:"compression_type" validate:"omitempty,oneof=none gzip zlib"`
	BufferSize       *int             `yaml:"buffer_size" validate:"omitempty,min=1"`
	BufferDuration   *string          `yaml:"buffer_duration"`
	AsyncBufferSize  *int             `yaml:"async_buffer_size" validate:"omitempty,min=1"`
	AdditionalFields map[string]Value `yaml:"additional_fields"`
	ConnectTimeout   *int64           `yaml:"connect_timeout" validate:"omitempty,min=1"`
	WriteTimeout     *int64           `yaml:"write_timeout" validate:"omitempty,min=1"`
	Filter           *string          `yaml:"filter"`
}

func deserializeBufferAppender(section *yaml.Node) (Appender, error) {
	var cfg bufferSection
	if err := section.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid buffer appender config: %w", err)
	}

	builder := NewBufferAppenderBuilder()
	if cfg.Level != nil {
		builder.SetLevel(*cfg.Level)
	}
	if cfg.Hostname != nil {
		builder.SetHostname(*cfg.Hostname)
	}
	if cfg.Port != nil {
		builder.SetPort(*cfg.Port)
	}
	if cfg.Protocol != nil {
		builder.SetProtocol(*cfg.Protocol)
	}
	if cfg.UseTLS != nil {
		builder.SetUseTLS(*cfg.UseTLS)
	}
	if cfg.NullCharacter != nil {
		builder.SetNullCharacter(*cfg.NullCharacter)
	}
	if cfg.CompressionType != nil {
		builder.SetCompression(*cfg.CompressionType)
	}
	if cfg.BufferSize != nil {
		builder.SetBufferSize(*cfg.BufferSize)
	}
	if cfg.BufferDuration != nil {
		d, err := time.ParseDuration(*cfg.BufferDuration)
		if err != nil {
			return nil, fmt.Errorf("invalid buffer_duration '%s': %w", *cfg.BufferDuration, err)
		}
		builder.SetBufferDuration(d)
	}
	if cfg.AsyncBufferSize != nil {
		builder.SetAsyncBufferSize(*cfg.AsyncBufferSize)
	}
	if len(cfg.AdditionalFields) > 0 {
		builder.ExtendAdditionalFields(cfg.AdditionalFields)
	}
	if cfg.ConnectTimeout != nil {
		builder.SetConnectTimeout(time.Duration(*cfg.ConnectTimeout) * time.Second)
	}
	if cfg.WriteTimeout != nil {
		builder.SetWriteTimeout(time.Duration(*cfg.WriteTimeout) * time.Second)
	}
	if cfg.Filter != nil {
		builder.SetFilter(*cfg.Filter)
	}

	return builder.Build()
}

// fileSection mirrors the declarative fields of the `file` kind.
type fileSection struct {
	Kind     string  `yaml:"kind"`
	Path     string  `yaml:"path" validate:"required"`
	Level    *Level  `yaml:"level"`
	Filter   *string `yaml:"filter"`
	Rotation struct {
		MaxSize    int  `yaml:"max_size" validate:"omitempty,min=1"` // MB
		MaxAge     int  `yaml:"max_age" validate:"omitempty,min=1"`  // days
		MaxBackups int  `yaml:"max_backups" validate:"omitempty,min=1"`
		Compress   bool `yaml:"compress"`
	} `yaml:"rotation"`
}

func deserializeFileAppender(section *yaml.Node) (Appender, error) {
	var cfg fileSection
	if err := section.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid file appender config: %w", err)
	}

	level := LevelInfo
	if cfg.Level != nil {
		level = *cfg.Level
	}
	filter := ""
	if cfg.Filter != nil {
		filter = *cfg.Filter
	}

	return NewFileAppender(FileAppenderConfig{
		Path:   cfg.Path,
		Level:  level,
		Filter: filter,
		Rotation: RotationConfig{
			MaxSizeMB:  cfg.Rotation.MaxSize,
			MaxAgeDays: cfg.Rotation.MaxAge,
			MaxBackups: cfg.Rotation.MaxBackups,
			Compress:   cfg.Rotation.Compress,
		},
	})
}
