package billing

import "sync"

// Executor is the logical execution context billing state lives on. Every
// state mutation and every continuation runs through a single Executor, which
// is what makes the session, the catalog and the pending purchase safe to
// touch without locks.
type Executor interface {
	Submit(fn func())
}

// Loop is the default Executor: one goroutine draining a queue in FIFO order.
type Loop struct {
	fns  chan func()
	stop chan struct{}
	once sync.Once
}

// NewLoop starts a new run loop.
func NewLoop() *Loop {
	l := &Loop{
		fns:  make(chan func(), 128),
		stop: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case fn := <-l.fns:
			fn()
		case <-l.stop:
			// drain what was already queued, then exit
			for {
				select {
				case fn := <-l.fns:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Submit queues fn for execution on the loop. Functions run in submission
// order; fn must not block the loop on another Submit result.
func (l *Loop) Submit(fn func()) {
	select {
	case l.fns <- fn:
	case <-l.stop:
	}
}

// Stop shuts the loop down after draining already-queued work.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
}
