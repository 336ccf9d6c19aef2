// Package session tracks the live games of connected players. Each session owns
// one engine.Game and serializes access to it.
package session

import (
	"fmt"
	"sync"
)

// Outbox queues server notices for a session, bridging broadcasts to the
// connection that renders them.
type Outbox struct {
	id     string
	notes  chan string
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the session id.
//
// Postcondition: Returns an Outbox with an open channel of at least one slot.
func NewOutbox(id string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Outbox{
		id:    id,
		notes: make(chan string, bufferSize),
	}
}

// Push enqueues a notice without blocking.
//
// Postcondition: The notice is queued, or an error is returned if the outbox is closed or full.
func (o *Outbox) Push(note string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.id)
	}
	select {
	case o.notes <- note:
		return nil
	default:
		return fmt.Errorf("outbox %s buffer full", o.id)
	}
}

// Notes returns the receive side of the queue. It is closed by Close.
func (o *Outbox) Notes() <-chan string {
	return o.notes
}

// Close closes the queue. It is idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.notes)
	}
}

// IsClosed reports whether Close has been called.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
