package gelfbuf

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Omega359/gelfbuf/internal/delivery"
	"github.com/Omega359/gelfbuf/internal/transport"
	"github.com/Omega359/gelfbuf/internal/truncate"
	"github.com/Omega359/gelfbuf/internal/version"
	"github.com/gobwas/glob"
	"golang.org/x/time/rate"
	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

const (
	defaultHostname        = "127.0.0.1"
	defaultPort            = 12202
	defaultBufferSize      = 100
	defaultBufferDuration  = 500 * time.Millisecond
	defaultAsyncBufferSize = 1000

	// maxShortLength bounds short_message; longer messages spill into
	// full_message untruncated.
	maxShortLength = 250
)

// Swappable in tests to observe batches at the collaborator boundary.
var newSender = buildSender

func buildSender(b *BufferAppenderBuilder) (transport.Sender, error) {
	addr := net.JoinHostPort(b.hostname, strconv.Itoa(b.port))
	if b.protocol == "udp" {
		return transport.NewUDPSender(addr, b.compression)
	}
	return transport.NewTCPSender(transport.TCPOptions{
		Addr:           addr,
		UseTLS:         b.useTLS,
		NullCharacter:  b.nullCharacter,
		ConnectTimeout: b.connectTimeout,
		WriteTimeout:   b.writeTimeout,
	}), nil
}

// BufferAppenderBuilder accumulates transport and batching parameters for a
// BufferAppender. Every setter returns the builder itself, so calls chain;
// each intermediate state is fully valid and Build is the only step that can
// fail.
type BufferAppenderBuilder struct {
	level            Level
	hostname         string
	port             int
	protocol         string
	useTLS           bool
	nullCharacter    bool
	compression      string
	bufferSize       int
	bufferDuration   time.Duration
	asyncBufferSize  int
	connectTimeout   time.Duration
	writeTimeout     time.Duration
	additionalFields map[string]Value
	errorHandler     func(error)
	filter           string
}

// NewBufferAppenderBuilder returns a builder with the documented defaults:
// level info, 127.0.0.1:12202 over TCP with TLS and NUL termination, batches
// of 100 records or 500ms, queue capacity 1000, and the package name and
// version pre-seeded as additional fields.
func NewBufferAppenderBuilder() *BufferAppenderBuilder {
	return &BufferAppenderBuilder{
		level:           LevelInfo,
		hostname:        defaultHostname,
		port:            defaultPort,
		protocol:        "tcp",
		useTLS:          true,
		nullCharacter:   true,
		compression:     "none",
		bufferSize:      defaultBufferSize,
		bufferDuration:  defaultBufferDuration,
		asyncBufferSize: defaultAsyncBufferSize,
		additionalFields: map[string]Value{
			"pkg_name":    String(version.AppName),
			"pkg_version": String(version.Version),
		},
	}
}

// SetLevel sets the severity threshold. Records less severe than level are
// ignored by the appender.
func (b *BufferAppenderBuilder) SetLevel(level Level) *BufferAppenderBuilder {
	b.level = level
	return b
}

// SetHostname sets the hostname of the remote server. No validation beyond
// non-empty happens here; a bad host surfaces as a delivery error.
func (b *BufferAppenderBuilder) SetHostname(hostname string) *BufferAppenderBuilder {
	b.hostname = hostname
	return b
}

// SetPort sets the port of the remote server.
func (b *BufferAppenderBuilder) SetPort(port int) *BufferAppenderBuilder {
	b.port = port
	return b
}

// SetProtocol selects "tcp" (default) or "udp" transport.
func (b *BufferAppenderBuilder) SetProtocol(protocol string) *BufferAppenderBuilder {
	b.protocol = protocol
	return b
}

// SetUseTLS activates transport security. Only the TCP transport honors it;
// UDP ignores the flag.
func (b *BufferAppenderBuilder) SetUseTLS(useTLS bool) *BufferAppenderBuilder {
	b.useTLS = useTLS
	return b
}

// SetNullCharacter adds a NUL byte after each entry on the TCP transport.
func (b *BufferAppenderBuilder) SetNullCharacter(nullCharacter bool) *BufferAppenderBuilder {
	b.nullCharacter = nullCharacter
	return b
}

// SetCompression selects UDP payload compression: "gzip", "zlib" or "none".
func (b *BufferAppenderBuilder) SetCompression(compression string) *BufferAppenderBuilder {
	b.compression = compression
	return b
}

// SetBufferSize sets the number of buffered records that forces a flush to
// the remote server. A value <= 0 restores the default.
func (b *BufferAppenderBuilder) SetBufferSize(size int) *BufferAppenderBuilder {
	if size <= 0 {
		size = defaultBufferSize
	}
	b.bufferSize = size
	return b
}

// SetBufferDuration sets the maximum age of a non-empty batch before it is
// flushed regardless of size. A value <= 0 restores the default.
func (b *BufferAppenderBuilder) SetBufferDuration(d time.Duration) *BufferAppenderBuilder {
	if d <= 0 {
		d = defaultBufferDuration
	}
	b.bufferDuration = d
	return b
}

// SetAsyncBufferSize sets the capacity of the internal enqueue channel.
// Append blocks while the channel is full. A value <= 0 restores the default.
func (b *BufferAppenderBuilder) SetAsyncBufferSize(size int) *BufferAppenderBuilder {
	if size <= 0 {
		size = defaultAsyncBufferSize
	}
	b.asyncBufferSize = size
	return b
}

// PutAdditionalField adds one field appended to every outbound record.
// Setting an existing key overwrites it.
func (b *BufferAppenderBuilder) PutAdditionalField(key string, value Value) *BufferAppenderBuilder {
	b.additionalFields[key] = value
	return b
}

// ExtendAdditionalFields merges fields into the configured additional fields.
// Incoming keys overwrite existing ones.
func (b *BufferAppenderBuilder) ExtendAdditionalFields(fields map[string]Value) *BufferAppenderBuilder {
	for k, v := range fields {
		b.additionalFields[k] = v
	}
	return b
}

// SetConnectTimeout sets the connection timeout. Zero means no timeout.
func (b *BufferAppenderBuilder) SetConnectTimeout(d time.Duration) *BufferAppenderBuilder {
	b.connectTimeout = d
	return b
}

// SetWriteTimeout sets the write timeout. Zero means no timeout.
func (b *BufferAppenderBuilder) SetWriteTimeout(d time.Duration) *BufferAppenderBuilder {
	b.writeTimeout = d
	return b
}

// SetFilter restricts the appender to records whose logger name matches the
// glob pattern (for example "api.*"). Empty means no restriction.
func (b *BufferAppenderBuilder) SetFilter(pattern string) *BufferAppenderBuilder {
	b.filter = pattern
	return b
}

// SetBackgroundErrorHandler installs the callback for asynchronous delivery
// failures. The default writes to stderr, rate limited to avoid flooding.
func (b *BufferAppenderBuilder) SetBackgroundErrorHandler(fn func(error)) *BufferAppenderBuilder {
	b.errorHandler = fn
	return b
}

// Build assembles the configuration, constructs the transport sender and the
// background delivery client and returns a ready appender. This is the one
// fallible step of the chain.
func (b *BufferAppenderBuilder) Build() (*BufferAppender, error) {
	if b.hostname == "" {
		return nil, errors.New("hostname must not be empty")
	}
	if b.port < 1 || b.port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", b.port)
	}
	if b.protocol != "tcp" && b.protocol != "udp" {
		return nil, fmt.Errorf("invalid protocol: '%s', must be 'tcp' or 'udp'", b.protocol)
	}
	if b.connectTimeout < 0 || b.writeTimeout < 0 {
		return nil, errors.New("timeouts must not be negative")
	}

	var filter glob.Glob
	if b.filter != "" {
		compiled, err := glob.Compile(b.filter, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern '%s': %w", b.filter, err)
		}
		filter = compiled
	}

	sender, err := newSender(b)
	if err != nil {
		return nil, err
	}

	errorHandler := b.errorHandler
	if errorHandler == nil {
		errorHandler = stderrErrorHandler()
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	fields := make(map[string]Value, len(b.additionalFields))
	for k, v := range b.additionalFields {
		fields[k] = v
	}

	return &BufferAppender{
		level:            b.level,
		host:             host,
		endpoint:         b.protocol + "://" + net.JoinHostPort(b.hostname, strconv.Itoa(b.port)),
		additionalFields: fields,
		filter:           filter,
		client: delivery.NewClient(delivery.Options{
			BatchSize:    b.bufferSize,
			BatchAge:     b.bufferDuration,
			QueueSize:    b.asyncBufferSize,
			Sender:       sender,
			ErrorHandler: errorHandler,
		}),
	}, nil
}

func stderrErrorHandler() func(error) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 5)
	return func(err error) {
		if limiter.Allow() {
			fmt.Fprintf(os.Stderr, "[gelfbuf] delivery error: %v\n", err)
		}
	}
}

// BufferAppender forwards records to a background batching client that ships
// them to a GELF endpoint. Configuration is frozen at construction; Append is
// safe for concurrent use.
type BufferAppender struct {
	level            Level
	host             string
	endpoint         string
	additionalFields map[string]Value
	filter           glob.Glob
	client           *delivery.Client
}

// Append converts the record to a GELF message and enqueues it. Only local
// failures (a closed appender) are reported; delivery errors go to the
// background error handler.
func (a *BufferAppender) Append(r *Record) error {
	if !a.level.Allows(r.Level) {
		return nil
	}
	if err := a.client.Enqueue(a.message(r)); err != nil {
		return fmt.Errorf("enqueue gelf message: %w", err)
	}
	return nil
}

// Flush drains the pending batch, best effort.
func (a *BufferAppender) Flush() {
	a.client.Flush()
}

// Close delivers whatever is still buffered and shuts the client down. Safe
// to call more than once.
func (a *BufferAppender) Close() error {
	return a.client.Close()
}

// Endpoint describes the configured remote, e.g. "tcp://127.0.0.1:12202".
func (a *BufferAppender) Endpoint() string {
	return a.endpoint
}

func (a *BufferAppender) matchesLogger(name string) bool {
	if a.filter == nil {
		return true
	}
	return a.filter.Match(name)
}

func (a *BufferAppender) message(r *Record) *gelf.Message {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	short, full := truncate.Split(r.Message, maxShortLength)
	msg := &gelf.Message{
		Version:  "1.1",
		Host:     a.host,
		Short:    short,
		Full:     full,
		TimeUnix: float64(ts.UnixNano()) / 1e9,
		Level:    int32(r.Level),
		Extra:    make(map[string]interface{}, len(a.additionalFields)+len(r.Fields)+3),
	}

	// Configured fields are base defaults; record fields overwrite them on
	// key collision.
	for k, v := range a.additionalFields {
		msg.Extra[extraKey(k)] = extraValue(v.Interface())
	}
	if r.Logger != "" {
		msg.Extra["_logger"] = r.Logger
	}
	if r.File != "" {
		msg.Extra["_file"] = r.File
		msg.Extra["_line"] = r.Line
	}
	for k, v := range r.Fields {
		msg.Extra[extraKey(k)] = extraValue(v.Interface())
	}

	return msg
}

// GELF requires additional fields to start with an underscore.
func extraKey(k string) string {
	if k == "" || k[0] == '_' {
		return k
	}
	return "_" + k
}

// GELF doesn't support complex data types; anything non-scalar is
// stringified.
func extraValue(v interface{}) interface{} {
	switch v := v.(type) {
	case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64:
		return v
	case nil:
		return nil
	default:
		return fmt.Sprintf("%v", v)
	}
}
