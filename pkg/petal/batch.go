package petal

// Batch groups multiple signal writes into a single notification phase.
// All subscriber notifications inside the batch function are collected,
// deduplicated by listener ID, and fired once when the outermost batch
// completes. An effect depending on two signals written in the same batch
// runs once instead of twice.
//
// Batches can be nested; notifications fire only when the outermost
// batch completes. Batching is explicit and synchronous; there is no
// frame scheduler.
//
//	petal.Batch(func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	})
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			processPendingUpdates()
		}
	}()

	fn()
}

// processPendingUpdates deduplicates and notifies all pending listeners.
func processPendingUpdates() {
	updates := drainPendingUpdates()
	if len(updates) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(updates))
	unique := make([]Listener, 0, len(updates))

	for _, listener := range updates {
		id := listener.ID()
		if !seen[id] {
			seen[id] = true
			unique = append(unique, listener)
		}
	}

	for _, listener := range unique {
		listener.MarkDirty()
	}
}

// Untracked runs a function with tracking suppressed: signal reads inside
// it do not subscribe the current listener.
//
// For a single read, prefer signal.Peek().
func Untracked(fn func()) {
	pushListener(nil)
	defer popListener()
	fn()
}

// UntrackedGet reads a signal's value without creating a dependency.
// Equivalent to s.Peek().
func UntrackedGet[T any](s *Signal[T]) T {
	return s.Peek()
}
