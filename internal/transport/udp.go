// internal/transport/udp.go

package transport

import (
	"fmt"

	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

// Variables for factories to allow mocking in tests
var gelfUDPWriterFactory = gelf.NewUDPWriter

// Function to set compression, can be mocked in tests
var setUDPCompression = func(writer *gelf.UDPWriter, compType gelf.CompressType) {
	writer.CompressionType = compType
}

// UDPSender ships each message of a batch as its own datagram through the
// go-gelf UDP writer, which handles chunking of oversized payloads.
type UDPSender struct {
	writer gelf.Writer
}

// NewUDPSender creates a UDP sender for addr ("host:port"). Compression is
// one of "gzip", "zlib" or "none"; anything else falls back to none.
func NewUDPSender(addr string, compression string) (*UDPSender, error) {
	writer, err := gelfUDPWriterFactory(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create GELF UDP writer: %w", err)
	}

	switch compression {
	case "gzip":
		setUDPCompression(writer, gelf.CompressGzip)
	case "zlib":
		setUDPCompression(writer, gelf.CompressZlib)
	default:
		setUDPCompression(writer, gelf.CompressNone)
	}

	return &UDPSender{writer: writer}, nil
}

// SendBatch writes every message of the batch. The first write error aborts
// the batch; messages already written stay delivered.
func (s *UDPSender) SendBatch(batch []*gelf.Message) error {
	for _, msg := range batch {
		if err := s.writer.WriteMessage(msg); err != nil {
			return fmt.Errorf("gelf udp write: %w", err)
		}
	}
	return nil
}

// Close closes the underlying writer.
func (s *UDPSender) Close() error {
	return s.writer.Close()
}
