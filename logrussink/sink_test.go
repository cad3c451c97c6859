package logrussink

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/go-foundations/computepool"
)

var _ computepool.EventSink = (*Sink)(nil)

func TestNewDefaultsToStandardLogger(t *testing.T) {
	s := New(nil)
	assert.NotNil(t, s.log)
}

func TestSinkMethodsDoNotPanic(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := New(logger)

	assert.NotPanics(t, func() {
		s.PoolStarted("pool-1", 1, 4)
		s.PoolCancelled("pool-1", 2)
		s.PoolWorkerStart("worker-1")
		s.PoolWorkerExit("worker-1")
		s.PoolWorkerSelected("worker-1", 3)
		s.PoolWorkerAssignmentFailed("worker-1", 3)
		s.PoolSizeWarning("pool-1", 4, 4)
		s.WorkItemFailure("boom")
		s.Failure("boom")
	})
}
