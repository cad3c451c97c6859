package computepool

import (
	"context"
	"time"
)

// WorkFunc is a submitted unit of work. ctx is the work item's cancellation
// handle: the framework never interrupts a running WorkFunc, it is the
// callable's responsibility to observe ctx.Done(). userData is opaque and
// passed through verbatim from Submit.
type WorkFunc func(ctx context.Context, userData any)

// workItem is an inert descriptor of a submitted callable. It is immutable
// after construction.
type workItem struct {
	fn          WorkFunc
	userData    any
	callerCtx   context.Context // non-nil only when CaptureCallerContext is set
	submittedAt time.Time
}

// execContext returns the context.Context that should be passed to fn
// together with a release func the caller must invoke once fn returns: the
// pool's own cancellation context (release is a no-op), or — when the pool
// captures caller context — a context derived from the caller's context but
// cancelled when the pool is cancelled, via context.AfterFunc.
func (w *workItem) execContext(poolCtx context.Context) (ctx context.Context, release func()) {
	if w.callerCtx == nil {
		return poolCtx, func() {}
	}
	ctx, cancel := context.WithCancel(w.callerCtx)
	stop := context.AfterFunc(poolCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
