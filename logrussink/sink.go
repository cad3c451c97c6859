// Package logrussink provides a computepool.EventSink implementation, a thin
// structured-logging adapter over logrus, mirroring the logger-port-over-
// logrus split used elsewhere in this codebase's lineage. It is opt-in via
// computepool.WithEventSink; without it a Pool uses computepool.NopSink.
package logrussink

import "github.com/sirupsen/logrus"

// Sink adapts a *logrus.Logger to computepool.EventSink. It never blocks: every method is a
// single non-blocking logrus call.
type Sink struct {
	log *logrus.Entry
}

// New wraps logger in a Sink. If logger is nil, logrus.StandardLogger() is
// used.
func New(logger *logrus.Logger) *Sink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sink{log: logrus.NewEntry(logger)}
}

func (s *Sink) PoolStarted(name string, min, max int) {
	s.log.WithFields(logrus.Fields{
		"pool": name,
		"min":  min,
		"max":  max,
	}).Info("pool started")
}

func (s *Sink) PoolCancelled(name string, liveCount int) {
	s.log.WithFields(logrus.Fields{
		"pool": name,
		"live": liveCount,
	}).Info("pool cancelled")
}

func (s *Sink) PoolWorkerStart(workerName string) {
	s.log.WithField("worker", workerName).Debug("worker started")
}

func (s *Sink) PoolWorkerExit(workerName string) {
	s.log.WithField("worker", workerName).Debug("worker exited")
}

func (s *Sink) PoolWorkerSelected(workerName string, taskCount int) {
	s.log.WithFields(logrus.Fields{
		"worker": workerName,
		"tasks":  taskCount,
	}).Trace("worker selected")
}

func (s *Sink) PoolWorkerAssignmentFailed(workerName string, taskCount int) {
	s.log.WithFields(logrus.Fields{
		"worker": workerName,
		"tasks":  taskCount,
	}).Warn("worker assignment failed")
}

func (s *Sink) PoolSizeWarning(poolName string, currentSize, max int) {
	s.log.WithFields(logrus.Fields{
		"pool":    poolName,
		"current": currentSize,
		"max":     max,
	}).Warn("pool size crossed warning threshold")
}

func (s *Sink) WorkItemFailure(message string) {
	s.log.Error(message)
}

func (s *Sink) Failure(message string) {
	s.log.Error(message)
}
