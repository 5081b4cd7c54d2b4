package petal

import (
	"sync"
	"sync/atomic"
)

// Memo is a cached derived computation that tracks its dependencies.
// When any dependency changes, the memo is invalidated and recomputes on
// the next read.
//
// Memos are lazy: they only compute when Get is called. If several
// sources change before a read, the memo recomputes once. Memos can be
// subscribed to like signals, so derived values chain.
type Memo[T any] struct {
	base signalBase

	// compute is the function that computes the memo's value.
	compute func() T

	// value is the cached computed value.
	value   T
	valueMu sync.RWMutex

	// valid indicates whether the cached value is current.
	valid atomic.Bool

	// sources are the cells this memo read during its last computation.
	// Stale edges are severed at the start of every recomputation.
	sources   []*signalBase
	sourcesMu sync.Mutex

	// computing breaks recursion on circular dependencies.
	computing atomic.Bool
}

// memoSource lets the type-erased tracking path recognize memo listeners.
// Needed because Memo is generic and cannot be type-asserted directly.
type memoSource interface {
	Listener
	addSource(source *signalBase)
}

// NewMemo creates a new memo with the given computation function.
// The computation does not run immediately; it runs lazily on first Get.
func NewMemo[T any](compute func() T) *Memo[T] {
	return &Memo[T]{
		base: signalBase{
			id: nextID(),
		},
		compute: compute,
	}
}

// Get returns the memo's value, recomputing if necessary, and subscribes
// the current listener.
func (m *Memo[T]) Get() T {
	track(&m.base)

	if !m.valid.Load() {
		m.recompute()
	}

	m.valueMu.RLock()
	value := m.value
	m.valueMu.RUnlock()
	return value
}

// Peek returns the memo's value without subscribing.
// Still recomputes if the cached value is stale.
func (m *Memo[T]) Peek() T {
	if !m.valid.Load() {
		m.recompute()
	}

	m.valueMu.RLock()
	value := m.value
	m.valueMu.RUnlock()
	return value
}

// MarkDirty invalidates the memo and propagates to subscribers.
// Implements the Listener interface.
func (m *Memo[T]) MarkDirty() {
	if m.valid.CompareAndSwap(true, false) {
		m.base.notifySubscribers()
	}
}

// ID returns the unique identifier for this memo.
// Implements the Listener interface.
func (m *Memo[T]) ID() uint64 {
	return m.base.id
}

// addSource records a cell read during computation.
// Implements the memoSource interface.
func (m *Memo[T]) addSource(source *signalBase) {
	m.sourcesMu.Lock()
	defer m.sourcesMu.Unlock()

	for _, s := range m.sources {
		if s == source {
			return
		}
	}
	m.sources = append(m.sources, source)
}

// recompute runs the computation inside a tracked frame and refreshes
// the cached value.
func (m *Memo[T]) recompute() {
	// Circular dependency: a memo that (transitively) reads itself keeps
	// its stale value rather than recursing.
	if m.computing.Swap(true) {
		return
	}
	defer m.computing.Store(false)

	// Sever edges from the previous computation so sources this run no
	// longer reads stop invalidating the memo.
	m.sourcesMu.Lock()
	for _, source := range m.sources {
		source.unsubscribe(m)
	}
	m.sources = m.sources[:0]
	m.sourcesMu.Unlock()

	// The pop is deferred so a panicking compute still restores the
	// outer tracking frame before unwinding, same as Effect.run.
	pushListener(m)
	defer popListener()

	newValue := m.compute()

	m.valueMu.Lock()
	m.value = newValue
	m.valueMu.Unlock()

	m.valid.Store(true)
}

var _ memoSource = (*Memo[int])(nil)
