package timeservice

import (
	"errors"
	"github.com/jonboulle/clockwork"
	"github.com/kcz17/ticktock/logging"
	"github.com/kcz17/ticktock/ticklatency"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the tick period used when Options.Interval is unset.
const DefaultInterval = 100 * time.Millisecond

const defaultLatencyWindow = 100

// ErrClockUnavailable is reported when the clock can no longer be read. The
// tick loop cannot continue meaningfully and terminates.
var ErrClockUnavailable = errors.New("timeservice: system clock unavailable")

// TimeReader reads the last published fields without blocking.
type TimeReader interface {
	Hours() int
	Minutes() int
	Seconds() int
}

type Options struct {
	// Clock is sampled on every tick and drives the ticker. Defaults to the
	// real clock; a clock reporting the zero time is treated as unavailable.
	Clock    clockwork.Clock
	Interval time.Duration
	Logger   logging.Logger
	// Collector receives the processing time of every tick.
	Collector ticklatency.Collector
}

// Service publishes changes of the time of day to listeners on every tick.
//
// Fields are stored one at a time, so another goroutine reading the four
// accessors during a tick may mix values from two consecutive samples.
// Listeners are only notified once the whole sample is stored.
type Service struct {
	clock    clockwork.Clock
	interval time.Duration
	logger   logging.Logger
	bus      *Bus
	latency  ticklatency.Collector

	// fields holds the last published value of each field, indexed by Field.
	fields [len(Fields)]atomic.Int32
	// active gates notifications. Inactive ticks still update fields.
	active     atomic.Bool
	lastUpdate atomic.Value // time.Time

	// tickMux serialises tick processing between the loop and Sample.
	tickMux *sync.Mutex

	// loopMux guards the loop lifecycle fields below. loopStarted and
	// loopFailed are atomic so that the loop goroutine can clear them without
	// loopMux, which Stop holds while waiting for that goroutine.
	loopMux     *sync.Mutex
	loopStarted atomic.Bool
	// loopFailed records that the loop exited on a fatal error.
	loopFailed atomic.Bool
	// stopped records an explicit Stop, after which Start re-activates.
	stopped bool
	// As tickLoop runs in a goroutine, loopWaiter and loopStop allow the
	// spawned goroutine to be gracefully stopped.
	loopWaiter *sync.WaitGroup
	loopStop   chan bool

	errs chan error
}

// New creates an active service with fields initialised from the clock. No
// ticks occur until Start is called.
func New(options *Options) *Service {
	if options == nil {
		options = &Options{}
	}

	clock := options.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := options.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	collector := options.Collector
	if collector == nil {
		collector = ticklatency.NewTachymeterCollector(defaultLatencyWindow)
	}

	s := &Service{
		clock:    clock,
		interval: interval,
		logger:   logger,
		bus:      NewBus(logger),
		latency:  collector,
		tickMux:  &sync.Mutex{},
		loopMux:  &sync.Mutex{},
		errs:     make(chan error, 1),
	}
	s.active.Store(true)

	now := clock.Now()
	initial := SnapshotFromTime(now)
	for _, f := range Fields {
		s.fields[f].Store(int32(initial.Get(f)))
	}
	s.lastUpdate.Store(now)

	return s
}

// Start begins ticking at the configured interval. Calling Start while the
// loop runs does nothing. Starting again after Stop, or after the loop exited
// on a fatal error, re-activates the service.
func (s *Service) Start() {
	s.loopMux.Lock()
	defer s.loopMux.Unlock()

	if s.loopStarted.Load() {
		return
	}
	if s.stopped || s.loopFailed.Load() {
		s.active.Store(true)
		s.stopped = false
		s.loopFailed.Store(false)
	}

	// The ticker is created before the goroutine so that the clock observes it
	// as soon as Start returns.
	ticker := s.clock.NewTicker(s.interval)
	s.loopStop = make(chan bool, 1)
	s.loopWaiter = &sync.WaitGroup{}
	s.loopWaiter.Add(1)
	// Set before launching, so a loop failing at once clears it afterwards.
	s.loopStarted.Store(true)
	go s.tickLoop(ticker, s.loopStop, s.loopWaiter)

	s.logger.LogServiceState(true, s.active.Load())
}

// Stop cancels the ticker and deactivates the service. Once Stop returns no
// further tick is processed. A loop which already exited on a fatal error has
// nothing left to stop. Stop must not be called from a listener, as it waits
// for the tick which is running that listener.
func (s *Service) Stop() {
	s.loopMux.Lock()
	defer s.loopMux.Unlock()

	s.active.Store(false)
	s.stopped = true
	if !s.loopStarted.Load() {
		return
	}

	close(s.loopStop)
	s.loopWaiter.Wait()
	s.loopStarted.Store(false)
	s.logger.LogServiceState(false, false)
}

// Close stops the service and drops every subscription.
func (s *Service) Close() {
	s.Stop()
	s.bus.Clear()
}

func (s *Service) tickLoop(ticker clockwork.Ticker, stop chan bool, waiter *sync.WaitGroup) {
	defer waiter.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			// A stop requested while this tick was pending wins.
			select {
			case <-stop:
				return
			default:
			}

			if err := s.tick(); err != nil {
				s.fail(err)
				s.loopFailed.Store(true)
				s.loopStarted.Store(false)
				s.report(err)
				return
			}
		case <-stop:
			return
		}
	}
}

// Sample processes one tick synchronously, exactly as the loop does. It must
// not be called from a listener.
func (s *Service) Sample() error {
	if err := s.tick(); err != nil {
		s.fail(err)
		s.report(err)
		return err
	}
	return nil
}

func (s *Service) tick() error {
	s.tickMux.Lock()
	defer s.tickMux.Unlock()

	startTime := time.Now()
	now := s.clock.Now()
	if now.IsZero() {
		return ErrClockUnavailable
	}

	// Every changed field is stored before the first change is dispatched, so
	// listeners read the sample they are being notified about.
	changes := DetectChanges(s.Snapshot(), SnapshotFromTime(now))
	secondsChanged := false
	for _, change := range changes {
		s.fields[change.Field].Store(int32(change.New))
		if change.Field == Seconds {
			secondsChanged = true
		}
	}
	s.lastUpdate.Store(now)

	if s.active.Load() {
		for _, change := range changes {
			s.logger.LogFieldChange(change.Field.String(), change.Old, change.New)
			s.bus.Fire(change.Field, change.Old, change.New)
		}
	}
	s.latency.Add(time.Since(startTime))

	// Report tick latency once a second.
	if secondsChanged {
		aggregation := s.latency.Aggregate()
		s.logger.LogTickLatency(
			ticklatency.Seconds(aggregation.P50),
			ticklatency.Seconds(aggregation.P75),
			ticklatency.Seconds(aggregation.P95),
		)
		s.latency.Reset()
	}

	return nil
}

func (s *Service) fail(err error) {
	s.active.Store(false)
	s.logger.LogError("timeservice", err)
}

func (s *Service) report(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Err delivers fatal conditions, after which the tick loop has terminated.
func (s *Service) Err() <-chan error {
	return s.errs
}

func (s *Service) SetActive(active bool) {
	s.active.Store(active)
	s.logger.LogServiceState(s.IsStarted(), active)
}

func (s *Service) IsActive() bool {
	return s.active.Load()
}

// IsStarted reports whether the tick loop is running: started, not stopped,
// and not exited on a fatal error.
func (s *Service) IsStarted() bool {
	return s.loopStarted.Load()
}

func (s *Service) Hours() int   { return int(s.fields[Hours].Load()) }
func (s *Service) Minutes() int { return int(s.fields[Minutes].Load()) }
func (s *Service) Seconds() int { return int(s.fields[Seconds].Load()) }
func (s *Service) Tenths() int  { return int(s.fields[Tenths].Load()) }

// Snapshot reads the four fields one after another.
func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		Hours:   s.Hours(),
		Minutes: s.Minutes(),
		Seconds: s.Seconds(),
		Tenths:  s.Tenths(),
	}
}

// LastUpdate returns the clock time of the last processed tick.
func (s *Service) LastUpdate() time.Time {
	return s.lastUpdate.Load().(time.Time)
}

func (s *Service) Interval() time.Duration {
	return s.interval
}

// Latency returns the tick processing times aggregated since the last report.
func (s *Service) Latency() *ticklatency.Aggregation {
	return s.latency.Aggregate()
}

// Subscribe registers l for field changes. A nil listener is ignored and nil
// is returned.
func (s *Service) Subscribe(l Listener) *Subscription {
	return s.bus.Subscribe(l)
}

// Unsubscribe removes one registration. Unknown or nil handles are ignored.
func (s *Service) Unsubscribe(sub *Subscription) {
	s.bus.Unsubscribe(sub)
}

// Subscribers returns the number of live registrations.
func (s *Service) Subscribers() int {
	return s.bus.Len()
}
