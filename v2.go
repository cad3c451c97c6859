package computepool

import "math/rand"

// submitV2 selects a target worker per the configured AssignmentPolicy,
// growing the pool first if the selection looks backlogged, and sends the
// item to that worker's private inbox. The final selection and the send
// happen under v2mu so a concurrent exitV2 can never close a worker's inbox
// between selection and send; the growth attempt itself runs with v2mu
// released. It reports whether the item was
// handed off; false means the pool was cancelled before a worker could be
// found for it.
func (p *Pool) submitV2(item *workItem) bool {
	for {
		if p.ctx.Err() != nil || p.state.Load() != stateRunning {
			return false
		}
		p.v2mu.Lock()

		w := p.selectWorkerLocked()
		if w == nil {
			// No live worker at all (pool mid-startup race, or every worker
			// has exited following cancellation); unlock and recheck the
			// pool's lifecycle before retrying rather than spinning forever.
			p.v2mu.Unlock()
			continue
		}

		backlog := w.outstanding.Load() > int32(p.cfg.MinLoadThreshold)
		p.v2mu.Unlock()
		if backlog {
			p.maybeGrow(true)
		}

		p.v2mu.Lock()
		w = p.selectWorkerLocked()
		if w == nil || w.status.Load() == v2StatusExiting {
			if w != nil {
				p.sink.PoolWorkerAssignmentFailed(w.name, int(w.outstanding.Load()))
			}
			p.v2mu.Unlock()
			continue
		}
		select {
		case w.inbox <- item:
			w.outstanding.Add(1)
			p.v2mu.Unlock()
			p.sink.PoolWorkerSelected(w.name, int(w.outstanding.Load()))
			return true
		default:
			// Inbox filled between selection and send; release the lock and
			// retry selection rather than block while holding it.
			p.sink.PoolWorkerAssignmentFailed(w.name, int(w.outstanding.Load()))
			p.v2mu.Unlock()
		}
	}
}

// selectWorkerLocked picks a target worker under the configured
// AssignmentPolicy. Callers must hold v2mu.
func (p *Pool) selectWorkerLocked() *worker {
	p.workersMu.RLock()
	names := make([]string, len(p.v2order))
	copy(names, p.v2order)
	p.workersMu.RUnlock()
	if len(names) == 0 {
		return nil
	}

	switch p.cfg.AssignmentPolicy {
	case RoundRobinAssignment:
		return p.selectRoundRobinLocked(names)
	default:
		return p.selectMinLoadLocked(names)
	}
}

func (p *Pool) selectRoundRobinLocked(names []string) *worker {
	p.rrIndex = (p.rrIndex + 1) % len(names)
	return p.lookupWorker(names[p.rrIndex])
}

func (p *Pool) selectMinLoadLocked(names []string) *worker {
	var candidates []*worker
	best := int32(-1)
	for _, name := range names {
		w := p.lookupWorker(name)
		if w == nil || w.status.Load() == v2StatusExiting {
			continue
		}
		load := w.outstanding.Load()
		switch {
		case best == -1 || load < best:
			best = load
			candidates = candidates[:0]
			candidates = append(candidates, w)
		case load == best:
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rand.Intn(len(candidates))]
}

func (p *Pool) lookupWorker(name string) *worker {
	p.workersMu.RLock()
	defer p.workersMu.RUnlock()
	return p.workers[name]
}
