// Package alerts delivers the terminal observation of a countdown, i.e. the
// moment it finishes, to wherever the process owner wants it.
package alerts

import (
	"github.com/kcz17/ticktock/logging"
	"time"
)

type Sink interface {
	// CountdownFinished reports that the countdown called name finished at
	// finishedAt.
	CountdownFinished(name string, finishedAt time.Time) error
}

// logSink reports finished countdowns through the logger.
type logSink struct {
	logger logging.Logger
}

func NewLogSink(logger logging.Logger) *logSink {
	return &logSink{logger: logger}
}

func (s *logSink) CountdownFinished(name string, _ time.Time) error {
	s.logger.LogCountdown(name, 0, "finished")
	return nil
}
