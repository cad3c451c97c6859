package computepool

// submitV1 enqueues item onto the single global FIFO queue shared by every
// worker, then evaluates growth: a backlog deeper than the live worker count
// is the V1 signal that more competing consumers would help.
func (p *Pool) submitV1(item *workItem) {
	p.globalQ.Enqueue(item)
	backlog := p.globalQ.ApproximateCount() > p.TotalThreads()
	p.maybeGrow(backlog)
}
