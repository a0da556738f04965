package crm

import (
	"context"
	"sync"
	"time"

	"github.com/eyedocs/caredesk/internal/logging"
)

// idleRetire is how long a drained worker lingers for more work on its key
// before exiting and releasing the key's state.
const idleRetire = time.Minute

// SyncFunc performs one reconciliation attempt.
type SyncFunc func(ctx context.Context) Outcome

// PersistFunc records an outcome on the already-committed local record.
type PersistFunc func(ctx context.Context, o Outcome) error

// Dispatcher runs sync attempts off the request path while keeping two
// guarantees per business key: attempts execute in the order their local
// writes committed, and an earlier attempt that finishes late can never
// overwrite a later write's outcome ("last local write wins").
//
// Attempts are fire-and-forget from the caller's perspective; each one
// carries its own timeout, so nothing is left pending indefinitely.
type Dispatcher struct {
	mu     sync.Mutex
	keys   map[string]*keyState
	closed bool

	wg     sync.WaitGroup
	base   context.Context
	cancel context.CancelFunc

	timeout time.Duration
	idle    time.Duration
	logger  logging.Logger
}

type keyState struct {
	queue chan queuedTask

	mu          sync.Mutex
	lastApplied time.Time
}

type queuedTask struct {
	writeTime time.Time
	run       SyncFunc
	persist   PersistFunc
}

func NewDispatcher(timeout time.Duration, logger logging.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = callTimeout
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		keys:    make(map[string]*keyState),
		base:    base,
		cancel:  cancel,
		timeout: timeout,
		idle:    idleRetire,
		logger:  logger,
	}
}

// Enqueue schedules one sync attempt for the given business key. Callers
// must call it after the local write has committed, in commit order; the
// per-key queue preserves that order. Work enqueued after Close is dropped.
func (d *Dispatcher) Enqueue(key string, writeTime time.Time, run SyncFunc, persist PersistFunc) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	ks, ok := d.keys[key]
	if !ok {
		ks = &keyState{queue: make(chan queuedTask, 64)}
		d.keys[key] = ks
		go d.drain(key, ks)
	}
	d.wg.Add(1)

	task := queuedTask{writeTime: writeTime, run: run, persist: persist}
	select {
	case ks.queue <- task:
		d.mu.Unlock()
	default:
		// Buffer full. The worker cannot retire while its queue is
		// non-empty, so the blocking send is safe outside the lock.
		d.mu.Unlock()
		ks.queue <- task
	}
}

// drain is the per-key worker: it executes tasks in queue order and exits
// once the key has been idle past the grace period, releasing the key's
// state. The retire check holds d.mu, and Enqueue sends under the same
// lock, so a task can never land on a queue nobody is draining.
func (d *Dispatcher) drain(key string, ks *keyState) {
	timer := time.NewTimer(d.idle)
	defer timer.Stop()

	for {
		select {
		case task := <-ks.queue:
			d.runTask(key, ks, task)
			d.wg.Done()
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.idle)
		case <-timer.C:
			d.mu.Lock()
			if len(ks.queue) == 0 {
				delete(d.keys, key)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idle)
		case <-d.base.Done():
			return
		}
	}
}

func (d *Dispatcher) runTask(key string, ks *keyState, task queuedTask) {
	ctx, cancel := context.WithTimeout(d.base, d.timeout)
	defer cancel()

	outcome := task.run(ctx)
	outcome.WriteTime = task.writeTime

	ks.mu.Lock()
	stale := task.writeTime.Before(ks.lastApplied)
	if !stale {
		ks.lastApplied = task.writeTime
	}
	ks.mu.Unlock()

	if stale {
		d.logger.Debug(ctx, "discarding stale sync outcome", "key", key, "writeTime", task.writeTime)
		return
	}

	if task.persist == nil {
		return
	}
	if err := task.persist(ctx, outcome); err != nil {
		// Best effort: the local write already succeeded, a failed status
		// update is logged and dropped.
		d.logger.Warn(ctx, "failed to persist sync outcome", "key", key, "error", err.Error())
	}
}

// Close stops accepting work, waits for everything already enqueued to
// finish, then stops the per-key workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

// Wait blocks until every attempt enqueued so far has completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
