package computepool

import (
	"context"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-foundations/computepool/internal/deque"
)

// v2InboxCapacity bounds a V2 worker's private channel; when the selected
// worker's inbox is full, submitV2 reports the assignment as failed and
// retries selection.
const v2InboxCapacity = 32

// v2PollInterval is how often a V2 worker's dispatch loop re-checks its idle
// deadline while its inbox is empty.
const v2PollInterval = 50 * time.Millisecond

const (
	v2StatusReady int32 = iota
	v2StatusRunning
	v2StatusExiting
)

// worker is one dispatch goroutine. Which of its fields are live depends on
// the owning pool's Variant: inbox/status serve PerWorkerQueue, dq/slot
// serve WorkStealing, and V1 workers use none of them beyond the shared
// lastItem/permanent bookkeeping.
type worker struct {
	name      string
	pool      *Pool
	permanent bool

	lastItem atomic.Int64 // unixnano, updated after every item (including panics)

	// V2
	inbox       chan *workItem
	status      atomic.Int32
	outstanding atomic.Int32

	// V3
	dq   *deque.Deque[workItem]
	slot int
}

// run is the worker's entire lifetime: dispatch until shouldExit, then
// deregister. It is started as its own goroutine by Pool.spawnWorker.
func (w *worker) run() {
	defer w.pool.unregisterWorker(w)
	defer w.pool.sink.PoolWorkerExit(w.name)

	switch w.pool.cfg.Variant {
	case GlobalQueue:
		w.runV1()
	case PerWorkerQueue:
		w.runV2()
	case WorkStealing:
		w.runV3()
	}
}

// shouldExit reports whether the worker should stop dispatching: the pool
// was cancelled, or the worker is non-permanent and has been idle longer
// than the configured timeout.
func (w *worker) shouldExit() bool {
	if w.pool.ctx.Err() != nil {
		return true
	}
	if w.permanent || w.pool.cfg.IdleTimeout == NoIdleTimeout {
		return false
	}
	last := time.Unix(0, w.lastItem.Load())
	return time.Since(last) > w.pool.cfg.IdleTimeout
}

// execute runs item.fn, recovering and reporting any panic, and stamps
// lastItem whether or not the call panicked.
func (w *worker) execute(item *workItem) {
	defer func() { w.lastItem.Store(time.Now().UnixNano()) }()

	ctx, release := item.execContext(w.pool.ctx)
	defer release()
	if w.dq != nil {
		ctx = context.WithValue(ctx, dequeKey{}, w.dq)
	}

	defer func() {
		if r := recover(); r != nil {
			w.pool.reportFailure(r, item.userData)
		}
	}()
	item.fn(ctx, item.userData)
}

// runV1 dispatches against the single global queue: pop if something is
// there, otherwise sleep for QueueArrivalWait (or until cancellation) before
// polling again. A new arrival does not cut the wait short.
func (w *worker) runV1() {
	for {
		if w.shouldExit() {
			return
		}
		if item, ok := w.pool.globalQ.TryDequeue(); ok {
			w.execute(item)
			continue
		}

		timer := time.NewTimer(w.pool.cfg.QueueArrivalWait)
		select {
		case <-w.pool.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runV2 dispatches against the worker's own inbox, using a ticker only to
// re-evaluate the idle deadline while the inbox is empty.
func (w *worker) runV2() {
	ticker := time.NewTicker(v2PollInterval)
	defer ticker.Stop()

	for {
		w.status.Store(v2StatusReady)
		select {
		case <-w.pool.ctx.Done():
			w.exitV2()
			return
		case item, ok := <-w.inbox:
			if !ok {
				// Only this goroutine ever closes its own inbox (via exitV2,
				// which returns immediately after), so this is unreachable
				// in practice; guard against a double close regardless.
				return
			}
			w.status.Store(v2StatusRunning)
			w.execute(item)
			w.outstanding.Add(-1)
		case <-ticker.C:
			if w.shouldExit() {
				w.exitV2()
				return
			}
		}
	}
}

// exitV2 flips status to Exiting and closes inbox under the pool's v2mu, the
// same lock submitV2 holds while selecting a worker and sending, so no send
// can race a close.
func (w *worker) exitV2() {
	w.pool.v2mu.Lock()
	w.status.Store(v2StatusExiting)
	close(w.inbox)
	w.pool.v2mu.Unlock()
}

// runV3 dispatches from, in order, its own deque (owner LIFO), the shared
// overflow queue, and finally one steal attempt per peer deque, starting from
// a random peer. A full
// empty pass yields via Gosched rather than waiting: V3 workers are meant to
// react to newly-stolen-from backlogs immediately.
func (w *worker) runV3() {
	for {
		if w.shouldExit() {
			return
		}
		if item, ok := w.dq.Pop(); ok {
			w.execute(item)
			continue
		}
		if item, ok := w.pool.globalQ.TryDequeue(); ok {
			w.execute(item)
			continue
		}
		if item, ok := w.pool.stealFrom(w); ok {
			w.execute(item)
			continue
		}

		select {
		case <-w.pool.ctx.Done():
			return
		default:
			runtime.Gosched()
		}
	}
}

// stealFrom attempts one Steal against each peer deque, in a random rotation
// starting point so no single deque is preferentially drained under
// contention.
func (p *Pool) stealFrom(w *worker) (*workItem, bool) {
	p.dequesMu.Lock()
	peers := make([]*deque.Deque[workItem], 0, len(p.deques))
	for i, d := range p.deques {
		if d == nil || i == w.slot {
			continue
		}
		peers = append(peers, d)
	}
	p.dequesMu.Unlock()

	if len(peers) == 0 {
		return nil, false
	}
	start := rand.Intn(len(peers))
	for i := range peers {
		if item, ok := peers[(start+i)%len(peers)].Steal(); ok {
			return item, true
		}
	}
	return nil, false
}
