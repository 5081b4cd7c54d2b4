package petal

import (
	"math"
	"testing"
)

func TestSignalBasic(t *testing.T) {
	count := NewSignal(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestSignalPeek(t *testing.T) {
	count := NewSignal(42)

	listener := newTestListener()
	WithListener(listener, func() {
		if count.Peek() != 42 {
			t.Errorf("expected 42, got %d", count.Peek())
		}
	})

	count.Set(100)
	if listener.getDirtyCount() != 0 {
		t.Errorf("Peek should not subscribe, got %d notifications", listener.getDirtyCount())
	}
}

func TestSignalEqualWriteIsNoOp(t *testing.T) {
	count := NewSignal(7)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = count.Get()
	})

	count.Set(7)
	if listener.getDirtyCount() != 0 {
		t.Errorf("equal write should be a no-op, got %d notifications", listener.getDirtyCount())
	}
	if count.SubscriberCount() != 1 {
		t.Errorf("equal write must not touch the subscriber set, count %d", count.SubscriberCount())
	}
}

func TestSignalSubscriptionIsOneShot(t *testing.T) {
	// The subscriber set is cleared before replay. A listener that does
	// not re-read during its notification is notified exactly once.
	count := NewSignal(0)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = count.Get()
	})

	count.Set(1)
	if listener.getDirtyCount() != 1 {
		t.Fatalf("expected 1 notification, got %d", listener.getDirtyCount())
	}

	count.Set(2)
	if listener.getDirtyCount() != 1 {
		t.Errorf("listener should have been dropped after first replay, got %d", listener.getDirtyCount())
	}
	if count.SubscriberCount() != 0 {
		t.Errorf("expected empty subscriber set, got %d", count.SubscriberCount())
	}
}

func TestSignalNoTrackingOutsideContext(t *testing.T) {
	count := NewSignal(0)

	// Reading with an empty observer stack performs no subscription.
	_ = count.Get()

	if count.SubscriberCount() != 0 {
		t.Errorf("untracked read subscribed something, count %d", count.SubscriberCount())
	}
}

func TestSignalSubscriptionDedupe(t *testing.T) {
	count := NewSignal(0)
	listener := newTestListener()

	WithListener(listener, func() {
		_ = count.Get()
		_ = count.Get()
		_ = count.Get()
	})

	if count.SubscriberCount() != 1 {
		t.Errorf("repeated reads should subscribe once, count %d", count.SubscriberCount())
	}
}

func TestSignalNotificationOrder(t *testing.T) {
	// Subscribers fire in first-subscribed order at snapshot time.
	count := NewSignal(0)

	var fired []int
	for i := 0; i < 4; i++ {
		i := i
		CreateEffect(func() Cleanup {
			_ = count.Get()
			fired = append(fired, i)
			return nil
		})
	}

	fired = nil
	count.Set(1)

	if len(fired) != 4 {
		t.Fatalf("expected 4 effects fired, got %d", len(fired))
	}
	for i, got := range fired {
		if got != i {
			t.Fatalf("expected firing order [0 1 2 3], got %v", fired)
		}
	}
}

func TestSignalNaNWriteFires(t *testing.T) {
	// IEEE semantics: NaN != NaN, so writing NaN over NaN is a change.
	s := NewSignal(math.NaN())
	runs := 0

	CreateEffect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})

	s.Set(math.NaN())
	if runs != 2 {
		t.Errorf("NaN write should fire, runs = %d", runs)
	}
}

func TestSignalWithEquals(t *testing.T) {
	// Case-insensitive equality: "GO" over "go" is not a change.
	s := NewSignal("go").WithEquals(func(a, b string) bool {
		return len(a) == len(b)
	})
	runs := 0

	CreateEffect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})

	s.Set("GO")
	if runs != 1 {
		t.Errorf("custom equality should suppress the write, runs = %d", runs)
	}

	s.Set("gopher")
	if runs != 2 {
		t.Errorf("length change should fire, runs = %d", runs)
	}
}

func TestSignalSliceDeepEquals(t *testing.T) {
	s := NewSignal([]int{1, 2, 3})
	runs := 0

	CreateEffect(func() Cleanup {
		_ = s.Get()
		runs++
		return nil
	})

	s.Set([]int{1, 2, 3})
	if runs != 1 {
		t.Errorf("deep-equal slice write should be a no-op, runs = %d", runs)
	}

	s.Set([]int{1, 2, 3, 4})
	if runs != 2 {
		t.Errorf("changed slice should fire, runs = %d", runs)
	}
}

func TestCreateSignalPair(t *testing.T) {
	read, write := CreateSignal("hello")

	if read() != "hello" {
		t.Errorf("expected hello, got %q", read())
	}

	var seen []string
	CreateEffect(func() Cleanup {
		seen = append(seen, read())
		return nil
	})

	write("world")
	write("world") // no-op

	if len(seen) != 2 || seen[0] != "hello" || seen[1] != "world" {
		t.Errorf("expected [hello world], got %v", seen)
	}
}
