package alerts

import (
	"errors"
	"github.com/kcz17/ticktock/logging"
	"sync"
	"time"
)

// ErrSinkFull is returned when the AsyncSink buffer cannot take another
// observation. The observation is dropped.
var ErrSinkFull = errors.New("alerts: async sink buffer full")

// ErrSinkClosed is returned for observations reported after Close.
var ErrSinkClosed = errors.New("alerts: async sink closed")

// AsyncSink hands finished countdowns to a goroutine which forwards them to
// the wrapped Sink, so that a slow sink never holds up the tick goroutine.
// Forwarding errors are reported through the logger.
type AsyncSink struct {
	sink     Sink
	logger   logging.Logger
	finished chan Finished
	done     chan struct{}

	// closedMux guards closed and the close of finished against concurrent
	// sends.
	closedMux *sync.RWMutex
	closed    bool
}

func NewAsyncSink(sink Sink, logger logging.Logger, buffer int) *AsyncSink {
	s := &AsyncSink{
		sink:      sink,
		logger:    logger,
		finished:  make(chan Finished, buffer),
		done:      make(chan struct{}),
		closedMux: &sync.RWMutex{},
	}
	go s.forward()
	return s
}

func (s *AsyncSink) forward() {
	defer close(s.done)
	for f := range s.finished {
		if err := s.sink.CountdownFinished(f.Name, f.FinishedAt); err != nil {
			s.logger.LogError("alerts "+f.Name, err)
		}
	}
}

// CountdownFinished queues the observation without blocking.
func (s *AsyncSink) CountdownFinished(name string, finishedAt time.Time) error {
	s.closedMux.RLock()
	defer s.closedMux.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	select {
	case s.finished <- Finished{Name: name, FinishedAt: finishedAt}:
		return nil
	default:
		return ErrSinkFull
	}
}

// Close stops accepting observations and waits until the queued ones have
// been forwarded.
func (s *AsyncSink) Close() {
	s.closedMux.Lock()
	if !s.closed {
		s.closed = true
		close(s.finished)
	}
	s.closedMux.Unlock()
	<-s.done
}
