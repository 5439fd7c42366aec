package platform

import (
	"sync"

	"github.com/go-drift/fabric/pkg/errors"
)

var (
	dispatchMu   sync.RWMutex
	dispatchFunc func(callback func())
)

// RegisterDispatch sets the function used to schedule callbacks on the
// goroutine that owns the host views. The host calls it once at startup.
func RegisterDispatch(fn func(callback func())) {
	dispatchMu.Lock()
	dispatchFunc = fn
	dispatchMu.Unlock()
}

// Dispatch schedules a callback on the view-owning goroutine.
// Returns false if no dispatch function is registered or the callback is nil.
// Its signature matches uimanager.Dispatcher.
func Dispatch(callback func()) bool {
	dispatchMu.RLock()
	fn := dispatchFunc
	dispatchMu.RUnlock()
	if fn == nil || callback == nil {
		return false
	}
	fn(callback)
	return true
}

// SerialExecutor runs tasks one at a time, in submission order, on a
// dedicated goroutine. It serves both as a scheduler executor and, through
// Dispatch, as the view-owning goroutine of headless hosts.
type SerialExecutor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
}

// NewSerialExecutor starts the executor's goroutine.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{done: make(chan struct{})}
	e.cond = sync.NewCond(&e.mu)
	go e.loop()
	return e
}

// Execute queues task. Tasks submitted after Close are dropped.
func (e *SerialExecutor) Execute(task func()) {
	e.Dispatch(task)
}

// Dispatch queues callback and reports whether it was accepted.
func (e *SerialExecutor) Dispatch(callback func()) bool {
	if callback == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.pending = append(e.pending, callback)
	e.cond.Signal()
	return true
}

// Close runs the tasks already queued, then stops the goroutine. It blocks
// until the goroutine has exited, so it must not be called from a task.
func (e *SerialExecutor) Close() {
	e.mu.Lock()
	e.closed = true
	e.cond.Signal()
	e.mu.Unlock()
	<-e.done
}

// Flush blocks until every task queued before the call has run, including
// one that is running when Flush is called.
//
// Flush must not be called from a task: it would wait for a task queued
// behind the caller and never return. A task that needs work to happen
// after it should Dispatch that work instead.
func (e *SerialExecutor) Flush() {
	ran := make(chan struct{})
	if !e.Dispatch(func() { close(ran) }) {
		return
	}
	<-ran
}

func (e *SerialExecutor) loop() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for len(e.pending) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.pending) == 0 {
			e.mu.Unlock()
			return
		}
		// Swap the queue so tasks may enqueue more work without deadlock.
		batch := e.pending
		e.pending = nil
		e.mu.Unlock()

		for _, task := range batch {
			e.run(task)
		}
	}
}

func (e *SerialExecutor) run(task func()) {
	defer errors.Recover("platform.SerialExecutor")
	task()
}
