// Package display prints the time of day once per second, the console
// rendering of the time service.
package display

import (
	"fmt"
	"github.com/kcz17/ticktock/timeservice"
	"io"
	"sync"
)

// ClockDisplay writes "<name> displays HH:MM:SS" on every seconds change
// while enabled, counting how many times it has done so.
type ClockDisplay struct {
	name         string
	reader       timeservice.TimeReader
	registrar    timeservice.Registrar
	writer       io.Writer
	subscription *timeservice.Subscription

	// mux guards displayCount and enabled, which the control API reads and
	// toggles from outside the tick goroutine.
	mux          *sync.Mutex
	displayCount int
	enabled      bool
}

// NewClockDisplay creates an enabled display and subscribes it.
func NewClockDisplay(name string, reader timeservice.TimeReader, registrar timeservice.Registrar, writer io.Writer) *ClockDisplay {
	d := &ClockDisplay{
		name:      name,
		reader:    reader,
		registrar: registrar,
		writer:    writer,
		mux:       &sync.Mutex{},
		enabled:   true,
	}
	d.subscription = registrar.Subscribe(d)
	return d
}

func (d *ClockDisplay) OnFieldChanged(field timeservice.Field, _, _ int) {
	if field != timeservice.Seconds {
		return
	}

	d.mux.Lock()
	defer d.mux.Unlock()
	if !d.enabled {
		return
	}

	fmt.Fprintln(d.writer, d.format())
	d.displayCount++
}

func (d *ClockDisplay) format() string {
	return fmt.Sprintf("%s displays %02d:%02d:%02d", d.name, d.reader.Hours(), d.reader.Minutes(), d.reader.Seconds())
}

func (d *ClockDisplay) Name() string {
	return d.name
}

func (d *ClockDisplay) Enable() {
	d.mux.Lock()
	d.enabled = true
	d.mux.Unlock()
}

func (d *ClockDisplay) Disable() {
	d.mux.Lock()
	d.enabled = false
	d.mux.Unlock()
}

func (d *ClockDisplay) IsEnabled() bool {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.enabled
}

// DisplayCount returns the number of lines written since the last reset.
func (d *ClockDisplay) DisplayCount() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.displayCount
}

func (d *ClockDisplay) ResetCount() {
	d.mux.Lock()
	d.displayCount = 0
	d.mux.Unlock()
}

// Close unsubscribes the display.
func (d *ClockDisplay) Close() {
	d.registrar.Unsubscribe(d.subscription)
}
