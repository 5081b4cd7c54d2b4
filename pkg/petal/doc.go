// Package petal provides fine-grained reactivity: signals, effects, and
// derived memos with automatic dependency tracking.
//
// Reading a signal inside an effect body subscribes the effect to that
// signal; writing the signal synchronously re-runs every subscriber.
// There is no virtual DOM and no frame scheduler: propagation is
// strictly synchronous and depth-first, and an effect's subscriptions
// are refreshed on every run, so they always reflect exactly the signals
// the last run read.
//
// # Core types
//
// Signal[T] is a reactive value container:
//
//	count := petal.NewSignal(0)
//	value := count.Get()  // read (subscribes the current listener)
//	count.Set(5)          // write (re-runs subscribers if changed)
//
// The paired-function form mirrors the closure style of the reference
// API:
//
//	read, write := petal.CreateSignal(0)
//
// Effect runs side effects when its dependencies change:
//
//	e := petal.CreateEffect(func() petal.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
//	e.Dispose()
//
// Memo[T] is a lazily cached derived value:
//
//	doubled := petal.NewMemo(func() int { return count.Get() * 2 })
//
// # Writes and loops
//
// Writing a value equal to the current one is a no-op: no notification,
// no re-run. This guard is the only protection against self-triggering
// loops; an effect that unconditionally writes a signal it also reads
// with ever-changing values recurses until the stack is exhausted.
//
// # Disposal
//
// Dispose is the only way to permanently detach an effect. Owners group
// effects into disposal scopes; the directive layer creates one owner
// per bound document region and disposes it before detaching the region.
//
// # Concurrency
//
// The tracking context is per-goroutine. Reactive graphs on different
// goroutines are independent; sharing one graph across goroutines
// requires external synchronization of the write side.
package petal
