package petal

import (
	"reflect"
	"sync"
)

// signalBase provides type-erased subscriber management.
// It is embedded in Signal[T] and Memo[T] to share subscription logic.
type signalBase struct {
	id uint64

	// subs are the listeners subscribed to this signal, in the order
	// they first subscribed. Notification replays in this order.
	subs []Listener

	// subMu protects the subs slice.
	subMu sync.Mutex
}

// subscribe adds a listener to this signal's subscribers.
// Deduplicates by listener ID to prevent double-subscription.
func (s *signalBase) subscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return
		}
	}

	s.subs = append(s.subs, l)
}

// unsubscribe removes a listener from this signal's subscribers.
// Removal preserves the subscription order of the remaining listeners.
// Removing a listener that is not subscribed is a no-op.
func (s *signalBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// notifySubscribers notifies all subscribers that this signal changed.
//
// The live subscriber set is snapshotted and cleared before any listener
// runs. A listener that re-reads this signal during its own run re-adds
// itself to the now-empty set; a listener that no longer reads it stays
// unsubscribed. Clearing first also means a listener that writes this
// signal again mid-replay operates on its own snapshot and cannot
// re-trigger itself indefinitely.
func (s *signalBase) notifySubscribers() {
	s.subMu.Lock()
	subs := s.subs
	s.subs = nil
	s.subMu.Unlock()

	if getBatchDepth() > 0 {
		for _, sub := range subs {
			queuePendingUpdate(sub)
		}
		return
	}

	// Synchronous, depth-first: the write does not return until every
	// subscriber (and anything their reruns write in turn) has settled.
	for _, sub := range subs {
		sub.MarkDirty()
	}
}

// getID returns the unique identifier for this signal.
func (s *signalBase) getID() uint64 {
	return s.id
}

// subscriberCount reports the current number of live subscribers.
func (s *signalBase) subscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

// Signal is a reactive value container.
// Reading a Signal's value during a tracked frame (an effect body or a
// memo computation) automatically subscribes the current listener to be
// notified when the value changes.
type Signal[T any] struct {
	base signalBase

	// value is the current signal value.
	value T

	// mu protects the value.
	mu sync.RWMutex

	// equal is the equality function used to decide whether a write
	// changed the value. If nil, uses default equality.
	equal func(T, T) bool
}

// NewSignal creates a new signal with the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		base: signalBase{
			id: nextID(),
		},
		value: initial,
	}
}

// CreateSignal creates a signal and returns its paired read accessor and
// write mutator. The two closures share one private cell; no other
// reference to the cell escapes.
//
//	read, write := petal.CreateSignal(0)
//	write(1)
//	_ = read()
func CreateSignal[T any](initial T) (read func() T, write func(T)) {
	s := NewSignal(initial)
	return s.Get, s.Set
}

// Get returns the current value and subscribes the current listener.
// Reading outside any tracked frame performs no subscription.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	// Track dependency after releasing the value lock to prevent
	// deadlock through re-entrant reads.
	track(&s.base)

	return value
}

// track subscribes the current listener, if any, to the given cell and
// records the inverse edge needed for teardown.
func track(base *signalBase) {
	listener := currentListener()
	if listener == nil {
		return
	}

	base.subscribe(listener)

	switch l := listener.(type) {
	case *Effect:
		// Give the effect the inverse edge so disposal can sever this
		// subscription without enumerating signals.
		l.OnCleanup(func() { base.unsubscribe(listener) })
	case memoSource:
		l.addSource(base)
	}
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the signal's value and synchronously re-runs subscribers.
// Writing a value equal to the current one is a complete no-op: no store,
// no notification.
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
}

// Update atomically reads and updates the signal's value.
// The function receives the current value and returns the new value.
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.Lock()
	oldValue := s.value
	newValue := fn(oldValue)
	changed := !s.equals(oldValue, newValue)
	if changed {
		s.value = newValue
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
}

// WithEquals returns the signal configured with a custom equality function.
// Useful for types where reflect.DeepEqual is too expensive or has the
// wrong semantics.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

// SubscriberCount reports how many listeners are currently subscribed.
// Intended for tests and diagnostics.
func (s *Signal[T]) SubscriberCount() int {
	return s.base.subscriberCount()
}

// equals checks two values with the configured equality function.
func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals provides type-appropriate equality checking.
// Uses == for comparable kinds and reflect.DeepEqual for the rest.
// Float comparison uses IEEE semantics, so writing NaN over NaN counts
// as a change.
func defaultEquals[T any](a, b T) bool {
	switch any(a).(type) {
	case nil:
		return any(b) == nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, string, bool:
		// Interface equality is safe here even when b holds a different
		// dynamic type, and preserves NaN != NaN for floats.
		return any(a) == any(b)
	default:
		return reflect.DeepEqual(a, b)
	}
}
