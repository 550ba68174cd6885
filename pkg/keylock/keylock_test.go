package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	t.Parallel()

	m := New()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("order-1")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if m.size() != 0 {
		t.Fatalf("size() = %d, want 0 after all unlocks", m.size())
	}
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	m := New()
	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock("b")
		unlock()
		close(done)
	}()
	<-done
}

func TestUnlockIsIdempotent(t *testing.T) {
	t.Parallel()

	m := New()
	unlock := m.Lock("k")
	unlock()
	unlock()

	again := m.Lock("k")
	again()
	if m.size() != 0 {
		t.Fatalf("size() = %d, want 0", m.size())
	}
}
