// Package dashboard holds the state machine and view model of the graphical
// countdown dashboard. Rendering is left to whichever client polls View.
package dashboard

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/kcz17/ticktock/alerts"
	"github.com/kcz17/ticktock/logging"
	"github.com/kcz17/ticktock/timeservice"
	"strconv"
	"strings"
	"sync"
)

type State int

const (
	Idle State = iota
	Running
	Paused
	Finished
)

func (s State) String() string {
	return [...]string{"idle", "running", "paused", "finished"}[s]
}

type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Thresholds are percentages of the countdown remaining.
const (
	warningThreshold  = 50
	criticalThreshold = 20
)

var (
	ErrInvalidNumber    = errors.New("please enter valid numbers")
	ErrNegativeDuration = errors.New("please enter positive values")
	ErrZeroDuration     = errors.New("the duration must be greater than zero")
)

// Duration is the countdown length as entered by the user.
type Duration struct {
	Hours   int `json:"hours" validate:"min=0"`
	Minutes int `json:"minutes" validate:"min=0"`
	Seconds int `json:"seconds" validate:"min=0"`
}

// Total returns the duration in seconds.
func (d Duration) Total() int {
	return d.Hours*3600 + d.Minutes*60 + d.Seconds
}

type Buttons struct {
	StartEnabled bool   `json:"startEnabled"`
	StartLabel   string `json:"startLabel"`
	PauseEnabled bool   `json:"pauseEnabled"`
	PauseLabel   string `json:"pauseLabel"`
	StopEnabled  bool   `json:"stopEnabled"`
}

type View struct {
	Time          string  `json:"time"`
	Countdown     string  `json:"countdown"`
	Progress      float64 `json:"progress"`
	ProgressLabel string  `json:"progressLabel"`
	Level         Level   `json:"level"`
	State         string  `json:"state"`
	Buttons       Buttons `json:"buttons"`
}

type Options struct {
	// Name identifies the dashboard in logs and finished observations.
	Name      string
	Reader    timeservice.TimeReader
	Registrar timeservice.Registrar
	Clock     clockwork.Clock
	Logger    logging.Logger
	Sink      alerts.Sink
}

type Dashboard struct {
	name         string
	reader       timeservice.TimeReader
	registrar    timeservice.Registrar
	clock        clockwork.Clock
	logger       logging.Logger
	sink         alerts.Sink
	validate     *validator.Validate
	subscription *timeservice.Subscription

	// mux guards the countdown state, which control requests change from
	// outside the tick goroutine.
	mux       *sync.Mutex
	state     State
	remaining int
	initial   int
	timeText  string
}

// New creates an idle dashboard subscribed to the service.
func New(options *Options) *Dashboard {
	name := options.Name
	if name == "" {
		name = "dashboard"
	}
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

	d := &Dashboard{
		name:      name,
		reader:    options.Reader,
		registrar: options.Registrar,
		clock:     clock,
		logger:    logger,
		sink:      sink,
		validate:  validator.New(),
		mux:       &sync.Mutex{},
		state:     Idle,
	}
	d.timeText = d.readTime()
	d.subscription = d.registrar.Subscribe(d)

	return d
}

func (d *Dashboard) readTime() string {
	return formatClock(d.reader.Hours(), d.reader.Minutes(), d.reader.Seconds())
}

func formatClock(hours, minutes, seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func formatRemaining(total int) string {
	return formatClock(total/3600, (total%3600)/60, total%60)
}

// Start begins a countdown of length duration. A paused countdown with time
// remaining is resumed instead, ignoring duration.
func (d *Dashboard) Start(duration Duration) error {
	d.mux.Lock()
	defer d.mux.Unlock()

	if d.resumeIfPaused() {
		return nil
	}
	return d.start(duration)
}

// StartFromInput parses the text fields of the start form and starts the
// countdown. Invalid input leaves the dashboard unchanged.
func (d *Dashboard) StartFromInput(hours, minutes, seconds string) error {
	d.mux.Lock()
	defer d.mux.Unlock()

	if d.resumeIfPaused() {
		return nil
	}

	var values [3]int
	for i, text := range []string{hours, minutes, seconds} {
		value, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidNumber, text)
		}
		values[i] = value
	}

	return d.start(Duration{Hours: values[0], Minutes: values[1], Seconds: values[2]})
}

// start must be called with mux held.
func (d *Dashboard) start(duration Duration) error {
	if err := d.validate.Struct(duration); err != nil {
		return fmt.Errorf("%w: %s", ErrNegativeDuration, err)
	}
	total := duration.Total()
	if total == 0 {
		return ErrZeroDuration
	}

	d.initial = total
	d.remaining = total
	d.setState(Running)
	return nil
}

// resumeIfPaused must be called with mux held.
func (d *Dashboard) resumeIfPaused() bool {
	if d.state != Paused || d.remaining == 0 {
		return false
	}
	d.setState(Running)
	return true
}

func (d *Dashboard) setState(state State) {
	d.state = state
	d.logger.LogCountdown(d.name, d.remaining, state.String())
}

func (d *Dashboard) Pause() {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.state == Running {
		d.setState(Paused)
	}
}

func (d *Dashboard) Resume() {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.resumeIfPaused()
}

// TogglePause switches between running and paused. It does nothing without a
// countdown in progress.
func (d *Dashboard) TogglePause() {
	d.mux.Lock()
	defer d.mux.Unlock()
	switch d.state {
	case Running:
		d.setState(Paused)
	case Paused:
		d.setState(Running)
	}
}

// Stop abandons the countdown and returns to idle.
func (d *Dashboard) Stop() {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.remaining = 0
	d.initial = 0
	d.setState(Idle)
}

// OnFieldChanged refreshes the displayed time and advances the countdown on
// every seconds change.
func (d *Dashboard) OnFieldChanged(field timeservice.Field, _, _ int) {
	if field != timeservice.Seconds {
		return
	}

	d.mux.Lock()
	defer d.mux.Unlock()
	d.timeText = d.readTime()
	if d.state != Running {
		return
	}

	d.remaining--
	if d.remaining > 0 {
		return
	}

	d.setState(Finished)
	if err := d.sink.CountdownFinished(d.name, d.clock.Now()); err != nil {
		d.logger.LogError(d.name, err)
	}
}

func (d *Dashboard) State() State {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.state
}

func (d *Dashboard) Remaining() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.remaining
}

func (d *Dashboard) View() View {
	d.mux.Lock()
	defer d.mux.Unlock()

	view := View{
		Time:      d.timeText,
		Countdown: formatRemaining(0),
		Level:     LevelNormal,
		State:     d.state.String(),
	}

	hasCountdown := d.state == Running || d.state == Paused
	paused := d.state == Paused
	switch {
	case hasCountdown:
		view.Countdown = formatRemaining(d.remaining)
		view.Progress = float64(d.remaining) * 100 / float64(d.initial)
		view.ProgressLabel = fmt.Sprintf("%.0f%%", view.Progress)
		if view.Progress <= criticalThreshold {
			view.Level = LevelCritical
		} else if view.Progress <= warningThreshold {
			view.Level = LevelWarning
		}
	case d.state == Finished:
		view.Countdown = "FINISHED"
		view.ProgressLabel = "FINISHED!"
	}

	view.Buttons = Buttons{
		StartEnabled: !hasCountdown || paused,
		StartLabel:   "START",
		PauseEnabled: hasCountdown && !paused,
		PauseLabel:   "PAUSE",
		StopEnabled:  hasCountdown,
	}
	if paused {
		view.Buttons.StartLabel = "RESUME"
		view.Buttons.PauseLabel = "RESUME"
	}

	return view
}

// Close unsubscribes the dashboard.
func (d *Dashboard) Close() {
	d.registrar.Unsubscribe(d.subscription)
}
