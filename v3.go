package computepool

import (
	"context"

	"github.com/go-foundations/computepool/internal/deque"
)

// submitV3 routes item either onto the calling worker's own deque (a
// recursive submission from inside a running WorkFunc) or onto the shared
// global overflow queue (an external producer). The distinction is made by
// reading dequeKey back off ctx: a worker's execute wraps the context handed
// to its WorkFunc with its own deque, so a recursive Submit call that reuses
// (or derives from) that context carries the marker; a producer's ambient
// context never does.
func (p *Pool) submitV3(ctx context.Context, item *workItem) {
	if dq, ok := ownerDeque(ctx); ok {
		dq.Push(item)
		backlog := dq.Size() > p.cfg.MinThreads
		p.maybeGrow(backlog)
		return
	}

	p.globalQ.Enqueue(item)
	backlog := p.globalQ.ApproximateCount() > p.cfg.MinThreads
	p.maybeGrow(backlog)
}

func ownerDeque(ctx context.Context) (*deque.Deque[workItem], bool) {
	if ctx == nil {
		return nil, false
	}
	dq, ok := ctx.Value(dequeKey{}).(*deque.Deque[workItem])
	return dq, ok
}
