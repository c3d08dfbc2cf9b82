// Package countdown counts down whole seconds using the time service's
// seconds notifications.
package countdown

import (
	"github.com/jonboulle/clockwork"
	"github.com/kcz17/ticktock/alerts"
	"github.com/kcz17/ticktock/logging"
	"github.com/kcz17/ticktock/timeservice"
	"sync"
	"time"
)

type State int

const (
	Running State = iota
	Finished
)

func (s State) String() string {
	return [...]string{"running", "finished"}[s]
}

type Options struct {
	Name string
	// Start is the number of seconds to count down from. Values of zero or
	// less finish the countdown immediately.
	Start     int
	Registrar timeservice.Registrar
	Clock     clockwork.Clock
	Logger    logging.Logger
	// Sink receives the terminal observation. Defaults to logging it.
	Sink alerts.Sink
}

// Countdown decrements once per seconds change. When it reaches zero it
// unsubscribes itself and reports to its Sink.
type Countdown struct {
	name      string
	registrar timeservice.Registrar
	clock     clockwork.Clock
	logger    logging.Logger
	sink      alerts.Sink

	// mux protects the fields below, as Reset is called from outside the tick
	// goroutine.
	mux          *sync.Mutex
	remaining    int
	state        State
	startedAt    time.Time
	subscription *timeservice.Subscription
}

func New(options *Options) *Countdown {
	clock := options.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	sink := options.Sink
	if sink == nil {
		sink = alerts.NewLogSink(logger)
	}

	c := &Countdown{
		name:      options.Name,
		registrar: options.Registrar,
		clock:     clock,
		logger:    logger,
		sink:      sink,
		mux:       &sync.Mutex{},
	}
	c.mux.Lock()
	c.begin(options.Start)
	c.mux.Unlock()

	return c
}

// OnFieldChanged only reacts to seconds changes.
func (c *Countdown) OnFieldChanged(field timeservice.Field, _, _ int) {
	if field != timeservice.Seconds {
		return
	}

	c.mux.Lock()
	defer c.mux.Unlock()
	if c.state != Running {
		return
	}

	c.remaining--
	c.logger.LogCountdown(c.name, c.remaining, c.state.String())
	if c.remaining == 0 {
		c.finish()
	}
}

// Reset restarts the countdown from n, subscribing again if it had finished.
func (c *Countdown) Reset(n int) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.begin(n)
}

// begin must be called with mux held.
func (c *Countdown) begin(n int) {
	if n < 0 {
		n = 0
	}
	c.remaining = n
	c.state = Running
	c.startedAt = c.clock.Now()
	c.logger.LogCountdown(c.name, c.remaining, c.state.String())

	if n == 0 {
		c.finish()
		return
	}
	if c.subscription == nil {
		c.subscription = c.registrar.Subscribe(c)
	}
}

// finish must be called with mux held.
func (c *Countdown) finish() {
	c.state = Finished
	c.unsubscribe()
	if err := c.sink.CountdownFinished(c.name, c.clock.Now()); err != nil {
		c.logger.LogError("countdown "+c.name, err)
	}
}

func (c *Countdown) unsubscribe() {
	if c.subscription != nil {
		c.registrar.Unsubscribe(c.subscription)
		c.subscription = nil
	}
}

// Close detaches the countdown from the service without reporting it as
// finished.
func (c *Countdown) Close() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.state = Finished
	c.unsubscribe()
}

func (c *Countdown) Name() string {
	return c.name
}

func (c *Countdown) Remaining() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.remaining
}

func (c *Countdown) State() State {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.state
}

func (c *Countdown) IsRunning() bool {
	return c.State() == Running
}

// Elapsed returns the time since the countdown was last started.
func (c *Countdown) Elapsed() time.Duration {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.clock.Since(c.startedAt)
}
