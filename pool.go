package computepool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/go-foundations/computepool/internal/deque"
	"github.com/go-foundations/computepool/internal/queue"
)

const (
	stateRunning int32 = iota
	stateCancelled
	stateDisposed
)

// dequeKey is the context.Value key under which a worker's own
// work-stealing deque is stashed for the duration of executing a work item.
// A recursive Submit call from inside that callable can read it back to
// detect "called from this worker's own dispatch goroutine" — the idiomatic
// Go substitute for a thread-local "current_deque" pointer.
type dequeKey struct{}

// Option configures optional Pool behavior at construction time.
type Option func(*Pool)

// WithEventSink overrides the default no-op EventSink.
func WithEventSink(sink EventSink) Option {
	return func(p *Pool) { p.sink = sink }
}

// Pool is a bounded population of long-lived workers dispatching submitted
// WorkFuncs according to its configured Variant. The zero value is not
// usable; construct with New.
type Pool struct {
	name string
	cfg  Config
	sink EventSink

	ctx    context.Context
	cancel context.CancelFunc

	state       atomic.Int32
	disposeOnce sync.Once

	workersMu sync.RWMutex
	workers   map[string]*worker
	v2order   []string // ordered worker names, for V2 round-robin

	growthMu  sync.Mutex
	lastBirth atomic.Int64 // unixnano
	sizeWarned atomic.Bool

	handlersMu sync.Mutex
	handlers   []ExceptionHandler

	// V1/V3
	globalQ *queue.Queue[workItem]

	// V2
	v2mu    sync.Mutex
	rrIndex int

	// V3
	dequesMu sync.Mutex
	deques   []*deque.Deque[workItem]
}

// New validates cfg, spawns MinThreads permanent workers, and returns a
// running Pool. The returned Pool's lifetime is bound to ctx: cancelling ctx
// is equivalent to calling Dispose.
func New(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	internalCtx, cancel := context.WithCancel(ctx)
	p := &Pool{
		name:    uuid.New().String(),
		cfg:     cfg,
		sink:    NopSink{},
		ctx:     internalCtx,
		cancel:  cancel,
		workers: make(map[string]*worker),
	}
	for _, opt := range opts {
		opt(p)
	}

	if cfg.Variant == GlobalQueue || cfg.Variant == WorkStealing {
		p.globalQ = queue.New[workItem]()
	}
	if cfg.Variant == WorkStealing {
		p.deques = make([]*deque.Deque[workItem], 0, cfg.MinThreads)
	}

	go func() {
		<-p.ctx.Done()
		p.transitionCancelled()
	}()

	for i := 0; i < cfg.MinThreads; i++ {
		p.spawnWorker(true)
	}
	p.lastBirth.Store(time.Now().UnixNano())

	p.sink.PoolStarted(p.name, cfg.MinThreads, cfg.MaxThreads)
	return p, nil
}

// Name returns the pool's stable, process-unique identifier.
func (p *Pool) Name() string { return p.name }

// TotalThreads returns the current, eventually-consistent number of live
// workers.
func (p *Pool) TotalThreads() int {
	p.workersMu.RLock()
	defer p.workersMu.RUnlock()
	return len(p.workers)
}

// OnUserWorkItemException registers a handler invoked, on the worker's own
// goroutine, whenever a submitted WorkFunc panics.
func (p *Pool) OnUserWorkItemException(handler ExceptionHandler) {
	if handler == nil {
		return
	}
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.handlers = append(p.handlers, handler)
}

// Submit admits a work item for execution. It returns (false, nil) without
// side effects if the pool has been cancelled or disposed, and
// (false, *ConfigError) if fn is nil. Otherwise it returns (true, nil); the
// item has been placed into exactly one queue and will eventually run
// unless the pool is cancelled first.
func (p *Pool) Submit(ctx context.Context, fn WorkFunc, userData any) (bool, error) {
	if fn == nil {
		return false, invalidArgument("fn", "must not be nil")
	}
	if p.state.Load() != stateRunning {
		return false, nil
	}

	item := &workItem{fn: fn, userData: userData, submittedAt: time.Now()}
	if p.cfg.CaptureCallerContext && ctx != nil {
		item.callerCtx = ctx
	}

	switch p.cfg.Variant {
	case GlobalQueue:
		p.submitV1(item)
	case PerWorkerQueue:
		if !p.submitV2(item) {
			return false, nil
		}
	case WorkStealing:
		p.submitV3(ctx, item)
	}
	return true, nil
}

// Dispose idempotently cancels the pool and lets its workers drain. Workers
// are signalled, not joined: Dispose returns once cancellation has been
// observed by the pool itself, not once every worker goroutine has exited.
func (p *Pool) Dispose() {
	p.disposeOnce.Do(func() {
		p.cancel()
		p.transitionCancelled()
		p.state.Store(stateDisposed)
	})
}

func (p *Pool) transitionCancelled() {
	if p.state.CompareAndSwap(stateRunning, stateCancelled) {
		p.sink.PoolCancelled(p.name, p.TotalThreads())
	}
}

// maybeGrow spawns one non-permanent worker if spacing, the max-threads
// ceiling, and the variant's backlog condition all allow it. It reports
// whether it spawned a worker.
func (p *Pool) maybeGrow(backlog bool) bool {
	if !backlog {
		return false
	}
	p.growthMu.Lock()
	defer p.growthMu.Unlock()

	if p.TotalThreads() >= p.cfg.MaxThreads {
		return false
	}
	now := time.Now()
	last := time.Unix(0, p.lastBirth.Load())
	if now.Sub(last) < p.cfg.NewThreadSpacing {
		return false
	}

	p.lastBirth.Store(now.UnixNano())
	p.spawnWorker(false)
	return true
}

// spawnWorker creates and registers a new worker and starts its dispatch
// loop. Callers must not hold workersMu.
func (p *Pool) spawnWorker(permanent bool) *worker {
	w := &worker{
		name:      uuid.New().String(),
		pool:      p,
		permanent: permanent,
	}
	w.lastItem.Store(time.Now().UnixNano())

	switch p.cfg.Variant {
	case PerWorkerQueue:
		w.inbox = make(chan *workItem, v2InboxCapacity)
	case WorkStealing:
		w.dq = deque.New[workItem]()
		w.slot = p.assignDequeSlot(w.dq)
	}

	p.workersMu.Lock()
	p.workers[w.name] = w
	if p.cfg.Variant == PerWorkerQueue {
		p.v2order = append(p.v2order, w.name)
	}
	p.workersMu.Unlock()

	p.sink.PoolWorkerStart(w.name)
	p.checkSizeWarning()

	go w.run()
	return w
}

// assignDequeSlot installs dq into the first vacant slot of the shared
// array, growing (doubling) it if every slot is occupied.
func (p *Pool) assignDequeSlot(dq *deque.Deque[workItem]) int {
	p.dequesMu.Lock()
	defer p.dequesMu.Unlock()

	for i, existing := range p.deques {
		if existing == nil {
			p.deques[i] = dq
			return i
		}
	}
	p.deques = append(p.deques, dq)
	return len(p.deques) - 1
}

// unregisterWorker removes w from the registry and, for V2/V3, releases its
// slot/order entry. Called once from the worker's own loop on exit.
func (p *Pool) unregisterWorker(w *worker) {
	p.workersMu.Lock()
	delete(p.workers, w.name)
	if p.cfg.Variant == PerWorkerQueue {
		for i, name := range p.v2order {
			if name == w.name {
				p.v2order = append(p.v2order[:i], p.v2order[i+1:]...)
				break
			}
		}
	}
	p.workersMu.Unlock()

	if p.cfg.Variant == WorkStealing {
		p.dequesMu.Lock()
		if w.slot >= 0 && w.slot < len(p.deques) {
			p.deques[w.slot] = nil
		}
		p.dequesMu.Unlock()
	}

	if p.TotalThreads() < p.cfg.SizeWarningThreshold() {
		p.sizeWarned.Store(false)
	}
}

// checkSizeWarning emits PoolSizeWarning exactly once per crossing of
// SizeWarningThreshold (edge-triggered via sizeWarned).
func (p *Pool) checkSizeWarning() {
	threshold := p.cfg.SizeWarningThreshold()
	total := p.TotalThreads()
	if total >= threshold && p.sizeWarned.CompareAndSwap(false, true) {
		p.sink.PoolSizeWarning(p.name, total, p.cfg.MaxThreads)
	}
}

// reportFailure routes a recovered panic from a work item to the event sink
// and every registered exception handler.
func (p *Pool) reportFailure(recovered any, userData any) {
	p.sink.WorkItemFailure(panicMessage(recovered))

	p.handlersMu.Lock()
	handlers := make([]ExceptionHandler, len(p.handlers))
	copy(handlers, p.handlers)
	p.handlersMu.Unlock()

	for _, h := range handlers {
		h(recovered, userData)
	}
}
