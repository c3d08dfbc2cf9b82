package timeservice

import (
	"fmt"
	"github.com/kcz17/ticktock/logging"
	"reflect"
	"sync"
	"sync/atomic"
)

// Listener reacts to field changes. Listeners filter to the fields they care
// about themselves.
type Listener interface {
	OnFieldChanged(field Field, oldValue, newValue int)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(field Field, oldValue, newValue int)

func (f ListenerFunc) OnFieldChanged(field Field, oldValue, newValue int) {
	f(field, oldValue, newValue)
}

// Registrar is the subscription side of the service, as seen by listeners
// which manage their own registration.
type Registrar interface {
	Subscribe(l Listener) *Subscription
	Unsubscribe(sub *Subscription)
}

// Subscription is the handle returned by Subscribe and accepted by
// Unsubscribe. Each call to Subscribe creates a distinct registration, even
// for a listener which is already registered.
type Subscription struct {
	listener Listener
	// removed is set as soon as the registration is withdrawn, so that a fire
	// already iterating over an older registration list skips it.
	removed atomic.Bool
}

// Bus dispatches field changes to listeners in registration order.
type Bus struct {
	logger logging.Logger
	// subscriptions is replaced rather than mutated on every change, so Fire
	// can iterate over the slice it read without holding subscriptionsMux.
	subscriptions    []*Subscription
	subscriptionsMux *sync.Mutex
}

func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		logger:           logger,
		subscriptions:    []*Subscription{},
		subscriptionsMux: &sync.Mutex{},
	}
}

// isNilListener reports whether l is nil or holds a nil pointer or function,
// which would panic on every fire.
func isNilListener(l Listener) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Subscribe registers l and returns its handle. A nil listener, including a
// typed nil pointer, is ignored and nil is returned.
func (b *Bus) Subscribe(l Listener) *Subscription {
	if isNilListener(l) {
		return nil
	}

	sub := &Subscription{listener: l}

	b.subscriptionsMux.Lock()
	defer b.subscriptionsMux.Unlock()
	subscriptions := make([]*Subscription, len(b.subscriptions), len(b.subscriptions)+1)
	copy(subscriptions, b.subscriptions)
	b.subscriptions = append(subscriptions, sub)

	return sub
}

// Unsubscribe removes exactly the registration behind sub. Nil, unknown or
// already removed handles are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.subscriptionsMux.Lock()
	defer b.subscriptionsMux.Unlock()
	for i, s := range b.subscriptions {
		if s != sub {
			continue
		}

		sub.removed.Store(true)
		subscriptions := make([]*Subscription, 0, len(b.subscriptions)-1)
		subscriptions = append(subscriptions, b.subscriptions[:i]...)
		b.subscriptions = append(subscriptions, b.subscriptions[i+1:]...)
		return
	}
}

// Fire calls every listener registered when the fire began, synchronously
// and in registration order. Listeners removed mid-fire are skipped and a
// panicking listener does not stop the others.
func (b *Bus) Fire(field Field, oldValue, newValue int) {
	b.subscriptionsMux.Lock()
	subscriptions := b.subscriptions
	b.subscriptionsMux.Unlock()

	for _, sub := range subscriptions {
		if sub.removed.Load() {
			continue
		}
		if err := b.deliver(sub.listener, field, oldValue, newValue); err != nil {
			b.logger.LogListenerFailure(field.String(), err)
		}
	}
}

func (b *Bus) deliver(l Listener, field Field, oldValue, newValue int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %T panicked on %s %d -> %d: %v", l, field, oldValue, newValue, r)
		}
	}()

	l.OnFieldChanged(field, oldValue, newValue)
	return nil
}

// Len returns the number of live registrations.
func (b *Bus) Len() int {
	b.subscriptionsMux.Lock()
	defer b.subscriptionsMux.Unlock()
	return len(b.subscriptions)
}

// Clear removes every registration.
func (b *Bus) Clear() {
	b.subscriptionsMux.Lock()
	defer b.subscriptionsMux.Unlock()
	for _, sub := range b.subscriptions {
		sub.removed.Store(true)
	}
	b.subscriptions = []*Subscription{}
}
