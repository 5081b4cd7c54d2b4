package petal

import (
	"sync"
	"sync/atomic"
)

// Effect is a re-runnable tracked function. It runs once when created and
// re-runs synchronously whenever a signal it read during its last run is
// written.
//
// An effect holds no references to the signals it depends on. The
// relationship is recorded from the signal side (the subscriber list) and
// inverted through the effect's cleanup set: every subscription registers
// an unsubscribe closure here, so disposal severs all edges without
// enumerating signals.
type Effect struct {
	id uint64

	// fn is the effect body. It may return a Cleanup that runs before
	// the next re-run and on disposal.
	fn func() Cleanup

	// cleanups are the registered cleanup functions: unsubscribe
	// closures added by signal reads, external registrations added by
	// the directive layer, and the body's returned Cleanup.
	cleanups   []Cleanup
	cleanupsMu sync.Mutex

	// owner is the Owner that owns this effect, if any.
	owner *Owner

	// disposed is set once by Dispose. A disposed effect never executes
	// its body again, even if a stale snapshot still triggers it.
	disposed atomic.Bool

	// name is an optional label for logs and traces.
	name string
}

// MarkDirty re-runs the effect synchronously.
// Implements the Listener interface. Triggering a disposed effect is a
// silent no-op; disposal races with in-flight notifications are expected.
func (e *Effect) MarkDirty() {
	e.run()
}

// ID returns the unique identifier for this effect.
// Implements the Listener interface.
func (e *Effect) ID() uint64 {
	return e.id
}

// Name returns the effect's label, or "" if none was set.
func (e *Effect) Name() string {
	return e.name
}

// IsDisposed returns true once Dispose has been called.
func (e *Effect) IsDisposed() bool {
	return e.disposed.Load()
}

// run executes the effect body inside a tracked frame.
//
// Protocol: tear down the previous run's subscriptions and cleanups,
// push self onto the observer stack, run the body, pop the stack. The
// pop is deferred so a panicking body still restores the outer tracking
// frame before unwinding.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.runCleanups()

	pushListener(e)
	defer popListener()

	cleanup := e.fn()
	if cleanup != nil {
		e.OnCleanup(cleanup)
	}
}

// OnCleanup registers a cleanup function to run before the next re-run
// and on disposal. If the effect is already disposed, the function runs
// immediately.
//
// The directive layer uses this for external registrations (removing a
// bound DOM listener, releasing a cloned subtree) tied to the effect's
// lifetime.
func (e *Effect) OnCleanup(fn Cleanup) {
	if fn == nil {
		return
	}
	if e.disposed.Load() {
		fn()
		return
	}

	e.cleanupsMu.Lock()
	e.cleanups = append(e.cleanups, fn)
	e.cleanupsMu.Unlock()
}

// runCleanups runs and clears the registered cleanups in reverse
// registration order.
func (e *Effect) runCleanups() {
	e.cleanupsMu.Lock()
	cleanups := e.cleanups
	e.cleanups = nil
	e.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Dispose permanently detaches the effect: the disposed flag is set, all
// registered cleanups run (severing every subscription edge and external
// registration), and the cleanup set is cleared. Dispose is idempotent.
//
// Disposal is immediate but not cooperative: if called from inside the
// effect's own body, the in-flight run completes; no future run executes.
func (e *Effect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	e.runCleanups()
}

// EffectOption configures an Effect at creation time.
type EffectOption interface {
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// EffectName labels the effect for logs and trace attributes.
func EffectName(name string) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.name = name
	})
}

// CreateEffect creates an effect and runs it once synchronously before
// returning. The effect re-runs whenever any signal or memo it read
// during its last run changes.
//
// If the body returns a Cleanup, it is called before every re-run and on
// disposal.
//
//	petal.CreateEffect(func() petal.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
func CreateEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: getCurrentOwner(),
	}

	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if e.owner != nil {
		e.owner.registerEffect(e)
	}

	e.run()

	return e
}

// CreateEffectFunc is the paired-function form of CreateEffect: it takes
// a plain body and returns only the dispose function.
func CreateEffectFunc(fn func()) (dispose func()) {
	e := CreateEffect(func() Cleanup {
		fn()
		return nil
	})
	return e.Dispose
}

// OnMount creates an effect that runs exactly once: the body reads no
// signals under tracking, so nothing ever re-triggers it.
func OnMount(fn func()) {
	CreateEffect(func() Cleanup {
		Untracked(fn)
		return nil
	})
}

// OnUnmount registers a function to run when the current owner is
// disposed. No-op outside an owner scope.
func OnUnmount(fn func()) {
	if owner := getCurrentOwner(); owner != nil {
		owner.OnCleanup(fn)
	}
}

// OnUpdate creates an effect that skips its callback on the first run.
// The deps function is always called to establish dependencies; the
// callback fires only on subsequent runs.
func OnUpdate(deps func(), callback func()) {
	first := true
	CreateEffect(func() Cleanup {
		deps()
		if first {
			first = false
			return nil
		}
		callback()
		return nil
	})
}
