package eventbus

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Callback receives the arguments passed to Emit, in order.
type Callback func(args ...any)

// Unsubscribe removes the subscription it was returned for. Calling it more
// than once is a no-op.
type Unsubscribe func()

type subscription struct {
	id   uint64
	fn   Callback
	once bool
}

// Bus is an in-process publish/subscribe primitive. Listeners for a given
// event name are invoked in registration order against a snapshot taken at
// emit time, so subscribing or unsubscribing from inside a callback never
// affects the dispatch pass already in flight.
type Bus struct {
	mu        sync.Mutex
	nextID    atomic.Uint64
	listeners map[string][]subscription
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		listeners: map[string][]subscription{},
		logger:    logger,
	}
}

// On subscribes fn to the named event and returns an unsubscribe func.
func (b *Bus) On(name string, fn Callback) Unsubscribe {
	return b.subscribe(name, fn, false)
}

// Once subscribes fn for a single delivery. The subscription is removed
// before fn runs, so a panicking callback is still unsubscribed.
func (b *Bus) Once(name string, fn Callback) Unsubscribe {
	return b.subscribe(name, fn, true)
}

func (b *Bus) subscribe(name string, fn Callback, once bool) Unsubscribe {
	if fn == nil {
		return func() {}
	}
	id := b.nextID.Add(1)

	b.mu.Lock()
	b.listeners[name] = append(b.listeners[name], subscription{id: id, fn: fn, once: once})
	b.mu.Unlock()

	return func() { b.removeByID(name, id) }
}

// Off removes every subscription of fn for the named event. Matching is by
// code pointer, so method values of the same method bound to different
// receivers all match and are all removed. Use the unsubscribe func
// returned by On or Once to remove a single subscription precisely.
func (b *Bus) Off(name string, fn Callback) {
	if fn == nil {
		return
	}
	target := callbackPointer(fn)

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[name]
	kept := subs[:0]
	for _, s := range subs {
		if callbackPointer(s.fn) != target {
			kept = append(kept, s)
		}
	}
	b.setLocked(name, kept)
}

// Emit dispatches the event to all current listeners in registration order.
// A panicking listener is logged and does not block the remaining listeners.
func (b *Bus) Emit(name string, args ...any) {
	b.mu.Lock()
	subs := b.listeners[name]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		if s.once {
			b.removeByID(name, s.id)
		}
		b.invoke(name, s, args)
	}
}

func (b *Bus) invoke(name string, s subscription, args []any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				zap.String("event", name),
				zap.Any("panic", r),
			)
		}
	}()
	s.fn(args...)
}

// RemoveAllListeners drops every subscription for the given names, or every
// subscription on the bus when called with no names.
func (b *Bus) RemoveAllListeners(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(names) == 0 {
		b.listeners = map[string][]subscription{}
		return
	}
	for _, name := range names {
		delete(b.listeners, name)
	}
}

// ListenerCount reports the number of live subscriptions for name.
func (b *Bus) ListenerCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[name])
}

// EventNames returns the names that currently have at least one listener.
func (b *Bus) EventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.listeners))
	for name, subs := range b.listeners {
		if len(subs) > 0 {
			names = append(names, name)
		}
	}
	return names
}

func (b *Bus) removeByID(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[name]
	kept := subs[:0]
	for _, s := range subs {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	b.setLocked(name, kept)
}

// callbackPointer identifies a callback for Off. Closures are distinct
// values, but method values share the code pointer of their method
// regardless of receiver.
func callbackPointer(fn Callback) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func (b *Bus) setLocked(name string, subs []subscription) {
	if len(subs) == 0 {
		delete(b.listeners, name)
		return
	}
	b.listeners[name] = subs
}
