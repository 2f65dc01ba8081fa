// Package mailbox provides the unbounded FIFO inbox backing a node's
// message loop.
package mailbox

import (
	"errors"
	"sync"
	"time"

	"clustersim/internal/types"
)

// ErrClosed is returned by Receive once the mailbox has been closed.
var ErrClosed = errors.New("mailbox closed")

// Mailbox is an unbounded, thread-safe FIFO queue of inbound messages for
// one node. Send never blocks; Receive blocks with a timeout and is
// interruptible by Close.
type Mailbox struct {
	owner types.Peer

	mu    sync.Mutex
	queue []types.Message

	signal chan struct{}
	closed chan struct{}
	once   sync.Once
}

// New creates an empty mailbox owned by the given peer. The owner is the
// sender of the synthetic timeout messages Receive produces.
func New(owner types.Peer) *Mailbox {
	return &Mailbox{
		owner:  owner,
		signal: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Send enqueues a message. It never blocks and never fails; messages sent
// after Close are still queued, they are just never received.
func (m *Mailbox) Send(sender types.Peer, kind types.MessageKind, content string) {
	m.mu.Lock()
	m.queue = append(m.queue, types.Message{Sender: sender, Kind: kind, Content: content})
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Receive blocks until a message is available and returns it in FIFO order.
// If the timeout elapses first, it returns a synthetic timeout message sent
// by the owner to itself. If the mailbox is closed while waiting, it
// returns ErrClosed.
func (m *Mailbox) Receive(timeout time.Duration) (types.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if msg, ok := m.pop(); ok {
			return msg, nil
		}
		select {
		case <-m.signal:
		case <-timer.C:
			return types.Message{Sender: m.owner, Kind: types.KindTimeout}, nil
		case <-m.closed:
			return types.Message{}, ErrClosed
		}
	}
}

// Close wakes any blocked Receive. It is idempotent and does not drop
// queued messages.
func (m *Mailbox) Close() {
	m.once.Do(func() { close(m.closed) })
}

// Len reports the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mailbox) pop() (types.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return types.Message{}, false
	}
	msg := m.queue[0]
	m.queue = m.queue[1:]
	return msg, true
}
