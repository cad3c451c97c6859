package computepool

import (
	"math"
	"runtime"
	"time"
)

// Variant selects which dispatching strategy a Pool uses.
type Variant int

const (
	// GlobalQueue (V1) is a single global FIFO queue with competing consumers.
	GlobalQueue Variant = iota
	// PerWorkerQueue (V2) gives each worker a private bounded queue with a
	// cross-worker assignment policy.
	PerWorkerQueue
	// WorkStealing (V3) gives each worker a private work-stealing deque backed
	// by a global overflow queue.
	WorkStealing
)

func (v Variant) String() string {
	switch v {
	case GlobalQueue:
		return "GlobalQueue"
	case PerWorkerQueue:
		return "PerWorkerQueue"
	case WorkStealing:
		return "WorkStealing"
	default:
		return "Unknown"
	}
}

// AssignmentPolicy selects how V2 picks a target worker for a submission.
type AssignmentPolicy int

const (
	// RoundRobinAssignment cycles through live workers in order.
	RoundRobinAssignment AssignmentPolicy = iota
	// MinLoadAssignment picks uniformly among the workers with the fewest
	// outstanding items.
	MinLoadAssignment
)

// NoIdleTimeout disables idle-timeout shrinkage entirely.
const NoIdleTimeout time.Duration = 0

// maxThreadsCeiling is the platform-independent hard cap on MaxThreads,
// protecting against pathological configuration values.
const maxThreadsCeiling = 65536

// Config holds validated, immutable-after-construction pool parameters.
type Config struct {
	// MinThreads is the permanent worker floor. Must be >= 1.
	MinThreads int
	// MaxThreads is the worker ceiling. Must be >= MinThreads.
	MaxThreads int
	// IdleTimeout is how long a non-permanent worker may sit idle before it
	// self-terminates. NoIdleTimeout (zero) disables shrinkage.
	IdleTimeout time.Duration
	// NewThreadSpacing is the minimum wall-clock interval between two
	// successive worker births.
	NewThreadSpacing time.Duration
	// QueueArrivalWait bounds how long a V1 worker waits on an empty global
	// queue before re-checking its exit conditions.
	QueueArrivalWait time.Duration
	// CaptureCallerContext, when true, threads the context.Context passed to
	// Submit through to the callable (linked to pool cancellation via
	// context.AfterFunc) instead of the pool's bare internal context.
	CaptureCallerContext bool
	// Variant selects the dispatch strategy (V1/V2/V3). Immutable after
	// construction; there is no dynamic reconfiguration.
	Variant Variant
	// AssignmentPolicy selects V2's worker-selection policy. Ignored by V1/V3.
	AssignmentPolicy AssignmentPolicy
	// MinLoadThreshold is the outstanding-count threshold above which V2
	// considers a worker loaded enough to justify spawning a peer. The
	// original source compared against zero; this is exposed as a knob for
	// callers who want ">N" semantics, defaulting to 0 to preserve that
	// behavior.
	MinLoadThreshold int
}

// DefaultConfig returns sensible default configuration: one permanent
// worker, a ceiling of runtime.NumCPU(), a 120s idle timeout, 100ms queue
// arrival wait, 5s birth spacing, and the work-stealing variant with
// min-load assignment should the caller switch to V2.
func DefaultConfig() Config {
	return Config{
		MinThreads:           1,
		MaxThreads:           runtime.NumCPU(),
		IdleTimeout:          120 * time.Second,
		NewThreadSpacing:     5 * time.Second,
		QueueArrivalWait:     100 * time.Millisecond,
		CaptureCallerContext: false,
		Variant:              WorkStealing,
		AssignmentPolicy:     MinLoadAssignment,
		MinLoadThreshold:     0,
	}
}

// Validate checks the configuration for internal consistency, returning a
// *ConfigError on the first violation found.
func (c Config) Validate() error {
	if c.MinThreads < 1 {
		return invalidArgument("MinThreads", "must be >= 1")
	}
	if c.MaxThreads < 1 {
		return invalidArgument("MaxThreads", "must be >= 1")
	}
	if c.MaxThreads > maxThreadsCeiling {
		return invalidArgument("MaxThreads", "exceeds platform ceiling")
	}
	if c.MinThreads > c.MaxThreads {
		return outOfRange("MinThreads", "must not exceed MaxThreads")
	}
	if c.NewThreadSpacing < 0 {
		return invalidArgument("NewThreadSpacing", "must be >= 0")
	}
	if c.QueueArrivalWait < 0 {
		return invalidArgument("QueueArrivalWait", "must be >= 0")
	}
	if c.IdleTimeout < 0 {
		return invalidArgument("IdleTimeout", "must be >= 0")
	}
	return nil
}

// SizeWarningThreshold is the advisory high-watermark, 95% of MaxThreads
// rounded up, at which a PoolSizeWarning event fires.
func (c Config) SizeWarningThreshold() int {
	return int(math.Ceil(0.95 * float64(c.MaxThreads)))
}
