package petal

import (
	"testing"
)

func TestEffectRunsImmediately(t *testing.T) {
	runs := 0
	CreateEffect(func() Cleanup {
		runs++
		return nil
	})

	if runs != 1 {
		t.Errorf("effect should run once on creation, runs = %d", runs)
	}
}

func TestEffectBasicPropagation(t *testing.T) {
	count := NewSignal(0)
	var seen []int

	CreateEffect(func() Cleanup {
		seen = append(seen, count.Get())
		return nil
	})

	count.Set(1)
	count.Set(2)
	count.Set(2) // no-op

	want := []int{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
}

func TestEffectDisposeHaltsFutureRuns(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal("x")
	runs := 0

	e := CreateEffect(func() Cleanup {
		_ = a.Get()
		_ = b.Get()
		runs++
		return nil
	})

	e.Dispose()

	a.Set(1)
	b.Set("y")

	if runs != 1 {
		t.Errorf("disposed effect must not run, runs = %d", runs)
	}
	if a.SubscriberCount() != 0 || b.SubscriberCount() != 0 {
		t.Error("disposal must sever every subscription edge")
	}
}

func TestEffectDisposeIdempotent(t *testing.T) {
	cleanups := 0
	e := CreateEffect(func() Cleanup {
		return func() { cleanups++ }
	})

	e.Dispose()
	e.Dispose()
	e.Dispose()

	if cleanups != 1 {
		t.Errorf("cleanup should run once across repeated disposals, ran %d", cleanups)
	}
	if !e.IsDisposed() {
		t.Error("effect should report disposed")
	}
}

func TestEffectCleanupBeforeRerun(t *testing.T) {
	count := NewSignal(0)
	var log []string

	CreateEffect(func() Cleanup {
		n := count.Get()
		log = append(log, "run")
		return func() {
			log = append(log, "cleanup")
			_ = n
		}
	})

	count.Set(1)

	want := []string{"run", "cleanup", "run"}
	if len(log) != len(want) {
		t.Fatalf("expected %v, got %v", want, log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, log)
		}
	}
}

func TestNestedEffectsPreserveOuterTracking(t *testing.T) {
	x := NewSignal(0)
	y := NewSignal(0)
	runsA := 0
	runsB := 0

	CreateEffect(func() Cleanup {
		_ = x.Get()
		runsA++

		if runsA == 1 {
			// Constructing B inside A must not corrupt A's tracking:
			// the read of x after B returns still attributes to A.
			CreateEffect(func() Cleanup {
				_ = y.Get()
				runsB++
				return nil
			})
		}

		_ = x.Get()
		return nil
	})

	if runsA != 1 || runsB != 1 {
		t.Fatalf("expected one initial run each, got A=%d B=%d", runsA, runsB)
	}

	x.Set(1)
	if runsA != 2 {
		t.Errorf("writing x should rerun A, runsA = %d", runsA)
	}
	if runsB != 1 {
		t.Errorf("writing x must not touch B, runsB = %d", runsB)
	}

	y.Set(1)
	if runsB != 2 {
		t.Errorf("writing y should rerun B, runsB = %d", runsB)
	}
	if runsA != 2 {
		t.Errorf("writing y must not touch A, runsA = %d", runsA)
	}
}

func TestEffectResubscribesOnDivergentBranches(t *testing.T) {
	flag := NewSignal(true)
	a := NewSignal("a")
	b := NewSignal("b")
	runs := 0

	CreateEffect(func() Cleanup {
		if flag.Get() {
			_ = a.Get()
		} else {
			_ = b.Get()
		}
		runs++
		return nil
	})

	if runs != 1 {
		t.Fatalf("expected 1 run, got %d", runs)
	}

	// Flip to the else branch: the effect now reads b, not a.
	flag.Set(false)
	if runs != 2 {
		t.Fatalf("flag change should rerun, runs = %d", runs)
	}

	// Writing a must not rerun the effect; its last run never read a.
	a.Set("a2")
	if runs != 2 {
		t.Errorf("stale branch signal fired the effect, runs = %d", runs)
	}

	b.Set("b2")
	if runs != 3 {
		t.Errorf("live branch signal should fire, runs = %d", runs)
	}
}

func TestReentrantWriteStabilizes(t *testing.T) {
	// The effect increments its own dependency until it hits a ceiling,
	// then writes the identical ceiling value. The equal-value no-op
	// guard terminates the recursion.
	const ceiling = 5
	n := NewSignal(0)
	runs := 0

	CreateEffect(func() Cleanup {
		v := n.Get()
		runs++
		if v < ceiling {
			n.Set(v + 1)
		} else {
			n.Set(ceiling) // no-op
		}
		return nil
	})

	if n.Peek() != ceiling {
		t.Errorf("expected value to stabilize at %d, got %d", ceiling, n.Peek())
	}
	if runs != ceiling+1 {
		t.Errorf("expected %d runs, got %d", ceiling+1, runs)
	}
}

func TestEffectDisposedDuringReplayIsSkipped(t *testing.T) {
	// Effect B is disposed by effect A while both are in the same
	// snapshot. Triggering B's stale rerun callback is a silent no-op.
	trigger := NewSignal(0)
	runsB := 0

	var b *Effect
	CreateEffect(func() Cleanup {
		_ = trigger.Get()
		if b != nil {
			b.Dispose()
		}
		return nil
	})
	b = CreateEffect(func() Cleanup {
		_ = trigger.Get()
		runsB++
		return nil
	})

	trigger.Set(1)

	if runsB != 1 {
		t.Errorf("effect disposed mid-replay must not run, runsB = %d", runsB)
	}
}

func TestEffectSelfDisposeCompletesRun(t *testing.T) {
	count := NewSignal(0)
	var e *Effect
	tail := false
	runs := 0

	e = CreateEffect(func() Cleanup {
		_ = count.Get()
		runs++
		if e != nil {
			e.Dispose()
		}
		tail = true
		return nil
	})

	count.Set(1)
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}
	if !tail {
		t.Error("in-flight run should complete after self-dispose")
	}

	count.Set(2)
	if runs != 2 {
		t.Errorf("no run may follow self-dispose, runs = %d", runs)
	}
}

func TestEffectPanicRestoresTracking(t *testing.T) {
	count := NewSignal(0)

	func() {
		defer func() { recover() }()
		CreateEffect(func() Cleanup {
			_ = count.Get()
			panic("body error")
		})
	}()

	if trackingDepth() != 0 {
		t.Fatalf("observer stack leaked after body panic, depth %d", trackingDepth())
	}

	// A subsequent untracked read must not attribute to the dead frame.
	probe := NewSignal(0)
	_ = probe.Get()
	if probe.SubscriberCount() != 0 {
		t.Error("tracking context leaked into unrelated code")
	}
}

func TestEffectExternalCleanupRegistration(t *testing.T) {
	count := NewSignal(0)
	released := 0

	e := CreateEffect(func() Cleanup {
		_ = count.Get()
		return nil
	})

	// The directive layer registers external teardown against the effect.
	e.OnCleanup(func() { released++ })

	count.Set(1)
	if released != 1 {
		t.Errorf("external cleanup should run before rerun, ran %d", released)
	}

	e.Dispose()
	e.OnCleanup(func() { released++ })
	if released != 2 {
		t.Errorf("cleanup registered after disposal should run immediately, ran %d", released)
	}
}

func TestCreateEffectFunc(t *testing.T) {
	count := NewSignal(0)
	runs := 0

	dispose := CreateEffectFunc(func() {
		_ = count.Get()
		runs++
	})

	count.Set(1)
	dispose()
	count.Set(2)

	if runs != 2 {
		t.Errorf("expected 2 runs, got %d", runs)
	}
}

func TestEffectName(t *testing.T) {
	e := CreateEffect(func() Cleanup { return nil }, EffectName("binding:text"))
	if e.Name() != "binding:text" {
		t.Errorf("expected name binding:text, got %q", e.Name())
	}
}

func TestOnMountRunsOnce(t *testing.T) {
	count := NewSignal(0)
	runs := 0

	OnMount(func() {
		_ = count.Get()
		runs++
	})

	count.Set(1)
	if runs != 1 {
		t.Errorf("OnMount body must not re-run, runs = %d", runs)
	}
}

func TestOnUpdateSkipsFirstRun(t *testing.T) {
	count := NewSignal(0)
	calls := 0

	OnUpdate(
		func() { _ = count.Get() },
		func() { calls++ },
	)

	if calls != 0 {
		t.Fatalf("callback must not fire on first run, calls = %d", calls)
	}

	count.Set(1)
	if calls != 1 {
		t.Errorf("callback should fire on change, calls = %d", calls)
	}
}
