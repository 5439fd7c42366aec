package uimanager

import (
	"sync"
	"time"

	"github.com/go-drift/fabric/pkg/shadow"
)

// delivery is one pending delegate notification. Exactly one field is set.
type delivery struct {
	commit      *CommitResult
	transaction *uiTransaction
}

type uiTransaction struct {
	surface      shadow.SurfaceID
	rootChildren []*shadow.Node
	start        time.Time
}

// outbox queues the notifications of one surface in commit order and hands
// them out one drainer at a time, so deliveries for a surface never
// interleave or repeat regardless of which goroutine drains.
type outbox struct {
	mu       sync.Mutex
	queue    []delivery
	draining bool
	closed   bool
}

// push appends d. It reports false once the outbox is closed.
func (o *outbox) push(d delivery) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.queue = append(o.queue, d)
	return true
}

// close drops everything still pending and rejects later pushes.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.queue = nil
	o.mu.Unlock()
}

// drain delivers pending entries in order. If another goroutine is already
// draining it returns at once; that drainer picks up the new entries.
func (o *outbox) drain(deliver func(delivery)) {
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	for len(o.queue) > 0 && !o.closed {
		d := o.queue[0]
		o.queue[0] = delivery{}
		o.queue = o.queue[1:]
		o.mu.Unlock()
		deliver(d)
		o.mu.Lock()
	}
	o.draining = false
	o.mu.Unlock()
}

// pending returns the number of queued entries.
func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}
