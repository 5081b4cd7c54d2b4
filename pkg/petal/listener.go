package petal

// Listener is anything that can be notified when a dependency changes.
// The two implementations in this package are effects and memos; the
// directive layer never implements it directly.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	// For effects, this re-runs the effect body synchronously.
	// For memos, this invalidates the cached value.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for subscription deduplication and batch coalescing.
	ID() uint64
}

// Cleanup is a function returned by effects to release resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()
