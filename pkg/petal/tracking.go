package petal

import (
	"runtime"
	"sync"
)

// TrackingContext holds the reactive state for a goroutine.
// Each goroutine has its own tracking context, so independent reactive
// graphs (one per session, one per test) never interfere.
type TrackingContext struct {
	// listeners is the observer stack. The top of the stack is the
	// listener that signal reads attribute subscriptions to; a nil top
	// (or an empty stack) means reads are untracked.
	//
	// A stack rather than a single slot is required so that creating an
	// effect inside a running effect restores the outer effect's tracking
	// as soon as the inner one finishes its initial run.
	listeners []Listener

	// currentOwner is the Owner that will own newly created effects.
	currentOwner *Owner

	// batchDepth tracks nested Batch() calls.
	// When > 0, signal writes queue notifications instead of firing them.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when the outermost
	// batch completes. Deduplicated by ID before notification.
	pendingUpdates []Listener
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the runtime stack header ("goroutine <id> ...").
// This is an implementation detail and must not be relied upon externally.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current
// goroutine, creating one if none exists. Only state-mutating paths
// (push, owner set, batch enter) call this; read paths use
// lookupTrackingContext so that a plain signal read on a fresh
// goroutine never allocates a registry entry.
func getTrackingContext() *TrackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*TrackingContext)
	}

	ctx := &TrackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// lookupTrackingContext returns the current goroutine's context, or nil
// if none exists.
func lookupTrackingContext() *TrackingContext {
	if ctx, ok := trackingContexts.Load(getGoroutineID()); ok {
		return ctx.(*TrackingContext)
	}
	return nil
}

// idle reports whether the context holds no state worth retaining.
func (ctx *TrackingContext) idle() bool {
	return len(ctx.listeners) == 0 &&
		ctx.currentOwner == nil &&
		ctx.batchDepth == 0 &&
		len(ctx.pendingUpdates) == 0
}

// releaseIfIdle drops the goroutine's registry entry once it is empty.
// Goroutine IDs are monotonic and never reused, so an entry left behind
// by an exited goroutine would otherwise be retained forever. Every
// state-clearing path (pop, owner restore, batch exit) releases.
func releaseIfIdle() {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok && ctx.(*TrackingContext).idle() {
		trackingContexts.Delete(gid)
	}
}

// currentListener returns the listener on top of the observer stack.
// Returns nil if no tracking is active.
func currentListener() Listener {
	ctx := lookupTrackingContext()
	if ctx == nil || len(ctx.listeners) == 0 {
		return nil
	}
	return ctx.listeners[len(ctx.listeners)-1]
}

// pushListener pushes a listener onto the observer stack.
// Pushing nil suppresses tracking for the duration of the frame.
func pushListener(l Listener) {
	ctx := getTrackingContext()
	ctx.listeners = append(ctx.listeners, l)
}

// popListener removes the top of the observer stack.
// The pop must run even when the tracked body panics; callers use defer.
func popListener() {
	ctx := lookupTrackingContext()
	if ctx == nil {
		return
	}
	if n := len(ctx.listeners); n > 0 {
		ctx.listeners[n-1] = nil
		ctx.listeners = ctx.listeners[:n-1]
	}
	releaseIfIdle()
}

// trackingDepth reports the current observer stack depth.
func trackingDepth() int {
	ctx := lookupTrackingContext()
	if ctx == nil {
		return 0
	}
	return len(ctx.listeners)
}

// getCurrentOwner returns the current owner for the goroutine.
// Returns nil if no owner context is set.
func getCurrentOwner() *Owner {
	ctx := lookupTrackingContext()
	if ctx == nil {
		return nil
	}
	return ctx.currentOwner
}

// setCurrentOwner sets the current owner for effect creation.
// Returns the previous owner so it can be restored.
func setCurrentOwner(o *Owner) *Owner {
	ctx := getTrackingContext()
	old := ctx.currentOwner
	ctx.currentOwner = o
	releaseIfIdle()
	return old
}

// CurrentOwner returns the owner newly created effects would register
// with, or nil outside any WithOwner call.
func CurrentOwner() *Owner {
	return getCurrentOwner()
}

// getBatchDepth returns the current batch nesting depth.
func getBatchDepth() int {
	ctx := lookupTrackingContext()
	if ctx == nil {
		return 0
	}
	return ctx.batchDepth
}

// incrementBatchDepth increases the batch depth by 1.
func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth decreases the batch depth by 1.
// Returns true if batch depth reached 0 (batch complete).
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	done := ctx.batchDepth == 0
	if done {
		releaseIfIdle()
	}
	return done
}

// queuePendingUpdate adds a listener to the pending updates queue.
// Called during batch mode when a signal is written.
func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

// drainPendingUpdates returns and clears the pending updates queue.
func drainPendingUpdates() []Listener {
	ctx := lookupTrackingContext()
	if ctx == nil {
		return nil
	}
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	releaseIfIdle()
	return updates
}

// WithOwner runs a function with the specified owner as the current owner.
// Used when spawning goroutines that need to create effects belonging to
// a specific scope.
func WithOwner(owner *Owner, fn func()) {
	old := setCurrentOwner(owner)
	defer setCurrentOwner(old)
	fn()
}

// WithListener runs a function with the specified listener on top of the
// observer stack. Used internally and by tests to set up tracking.
func WithListener(l Listener, fn func()) {
	pushListener(l)
	defer popListener()
	fn()
}
