package usecase

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSessionLockerSerializes(t *testing.T) {
	sl := NewSessionLocker()

	var inCritical, maxConcurrent int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := sl.Lock(context.Background(), "s1")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			inCritical++
			if inCritical > maxConcurrent {
				maxConcurrent = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxConcurrent != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxConcurrent)
	}
	if sl.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d after all released", sl.ActiveCount())
	}
}

func TestSessionLockerIndependentSessions(t *testing.T) {
	sl := NewSessionLocker()

	unlockA, err := sl.Lock(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := sl.Lock(context.Background(), "b")
		if err != nil {
			t.Error(err)
			return
		}
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on independent session blocked")
	}
}

func TestSessionLockerCancellation(t *testing.T) {
	sl := NewSessionLocker()

	unlock, err := sl.Lock(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := sl.Lock(ctx, "s1"); err == nil {
		t.Fatal("expected cancellation error")
	}

	unlock()

	// A cancelled waiter leaves nothing behind; a fresh lock succeeds
	// as soon as the holder releases.
	unlock2, err := sl.Lock(context.Background(), "s1")
	if err != nil {
		t.Fatalf("lock after cancellation: %v", err)
	}
	unlock2()

	if sl.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d after all released", sl.ActiveCount())
	}
}
