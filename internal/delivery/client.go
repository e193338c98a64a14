// internal/delivery/client.go

package delivery

import (
	"errors"
	"sync"
	"time"

	"github.com/Omega359/gelfbuf/internal/transport"
	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

// ErrClosed is returned by Enqueue after the client has been closed.
var ErrClosed = errors.New("delivery client is closed")

// Options configures a Client. All values must be validated by the caller:
// BatchSize and QueueSize positive, BatchAge positive, Sender non-nil.
type Options struct {
	// BatchSize is the number of buffered messages that forces a flush.
	BatchSize int
	// BatchAge is the maximum time a non-empty batch may wait before it is
	// flushed regardless of size.
	BatchAge time.Duration
	// QueueSize is the capacity of the enqueue channel. Enqueue blocks when
	// the queue is full.
	QueueSize int

	Sender transport.Sender

	// ErrorHandler receives delivery errors from the background worker.
	// Those errors are never surfaced to Enqueue callers. May be nil.
	ErrorHandler func(error)
}

// Client owns the background worker that batches messages and hands them to
// the sender. Enqueue is safe for concurrent use; the channel is the only
// synchronization point.
type Client struct {
	opts Options

	queue chan *gelf.Message
	flush chan chan struct{}
	done  chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewClient creates a client and starts its worker goroutine.
func NewClient(opts Options) *Client {
	c := &Client{
		opts:  opts,
		queue: make(chan *gelf.Message, opts.QueueSize),
		flush: make(chan chan struct{}),
		done:  make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Enqueue hands one message to the worker. It blocks while the queue is full
// (backpressure) and fails once the client is closed. Network and delivery
// failures never surface here.
func (c *Client) Enqueue(msg *gelf.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.queue <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Flush asks the worker to drain the queue and send the pending batch, then
// waits for the acknowledgement. Calling Flush on a closed client is a no-op.
func (c *Client) Flush() {
	ack := make(chan struct{})
	select {
	case c.flush <- ack:
	case <-c.done:
		return
	}
	select {
	case <-ack:
	case <-c.done:
	}
}

// Close stops the worker, delivers whatever is still queued and closes the
// sender. It is safe to call more than once; only the first call does the
// work and reports the sender's close error.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		c.closeErr = c.opts.Sender.Close()
	})
	return c.closeErr
}

func (c *Client) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.BatchAge)
	defer ticker.Stop()

	batch := make([]*gelf.Message, 0, c.opts.BatchSize)

	send := func() {
		if len(batch) == 0 {
			return
		}
		out := make([]*gelf.Message, len(batch))
		copy(out, batch)
		batch = batch[:0]
		if err := c.opts.Sender.SendBatch(out); err != nil && c.opts.ErrorHandler != nil {
			c.opts.ErrorHandler(err)
		}
	}

	// Pull everything currently queued into the batch, flushing full batches
	// along the way.
	drain := func() {
		for {
			select {
			case msg := <-c.queue:
				batch = append(batch, msg)
				if len(batch) >= c.opts.BatchSize {
					send()
				}
			default:
				return
			}
		}
	}

	for {
		select {
		case msg := <-c.queue:
			batch = append(batch, msg)
			if len(batch) >= c.opts.BatchSize {
				send()
				ticker.Reset(c.opts.BatchAge)
			}
		case <-ticker.C:
			send()
		case ack := <-c.flush:
			drain()
			send()
			ticker.Reset(c.opts.BatchAge)
			close(ack)
		case <-c.done:
			drain()
			send()
			return
		}
	}
}
