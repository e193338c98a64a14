// internal/transport/sender.go

package transport

import (
	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

// Sender delivers batches of GELF messages to a remote endpoint.
// Implementations are used by the delivery worker only and do not need to be
// safe for concurrent use beyond Close racing with a final SendBatch.
type Sender interface {
	// SendBatch transmits all messages of one batch. A failed batch is not
	// retried here; retry policy belongs to the caller (or nobody).
	SendBatch(batch []*gelf.Message) error

	// Close releases the underlying connection, if any.
	Close() error
}
