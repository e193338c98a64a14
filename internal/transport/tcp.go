// internal/transport/tcp.go

package transport

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

// TCPOptions configures a TCPSender.
type TCPOptions struct {
	Addr string

	// UseTLS wraps the connection in TLS. TLSConfig overrides the default
	// config; when nil, a config with ServerName derived from Addr is used.
	UseTLS    bool
	TLSConfig *tls.Config

	// NullCharacter appends a NUL byte after each message frame. Graylog's
	// TCP input requires it; some aggregators accept newline framing instead.
	NullCharacter bool

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}

// TCPSender ships batches over a single TCP (optionally TLS) connection.
// The connection is dialed lazily on the first batch and re-dialed on the
// batch after a write failure. A failed batch is not retried.
type TCPSender struct {
	opts TCPOptions

	mu   sync.Mutex
	conn net.Conn
}

// NewTCPSender creates a TCP sender. No connection is made until the first
// batch is sent, so an unreachable host surfaces as a delivery error, not a
// construction error.
func NewTCPSender(opts TCPOptions) *TCPSender {
	return &TCPSender{opts: opts}
}

func (s *TCPSender) dial() (net.Conn, error) {
	dialer := net.Dialer{Timeout: s.opts.ConnectTimeout}

	if s.opts.UseTLS {
		cfg := s.opts.TLSConfig
		if cfg == nil {
			host, _, err := net.SplitHostPort(s.opts.Addr)
			if err != nil {
				return nil, fmt.Errorf("invalid address '%s': %w", s.opts.Addr, err)
			}
			cfg = &tls.Config{ServerName: host}
		}
		return tls.DialWithDialer(&dialer, "tcp", s.opts.Addr, cfg)
	}

	return dialer.Dial("tcp", s.opts.Addr)
}

// SendBatch encodes the whole batch into one buffer and writes it with a
// single conn.Write, so a batch costs one syscall regardless of size.
func (s *TCPSender) SendBatch(batch []*gelf.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.dial()
		if err != nil {
			return fmt.Errorf("gelf dial %s: %w", s.opts.Addr, err)
		}
		s.conn = conn
	}

	var buf bytes.Buffer
	for _, msg := range batch {
		if err := msg.MarshalJSONBuf(&buf); err != nil {
			return fmt.Errorf("gelf encode: %w", err)
		}
		if s.opts.NullCharacter {
			buf.WriteByte(0)
		}
	}

	if s.opts.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
			return fmt.Errorf("gelf set write deadline: %w", err)
		}
	}

	if _, err := s.conn.Write(buf.Bytes()); err != nil {
		// Drop the connection so the next batch re-dials.
		_ = s.conn.Close()
		s.conn = nil
		return fmt.Errorf("gelf tcp write %s: %w", s.opts.Addr, err)
	}
	return nil
}

// Close closes the current connection, if one is open.
func (s *TCPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
