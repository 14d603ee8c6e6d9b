package usecase

import (
	"context"
	"fmt"
	"sync"
)

// SessionLocker provides operation-level mutual exclusion per session.
// It prevents two concurrent task runs from operating on the same
// session simultaneously.
type SessionLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a channel-token lock: whichever goroutine holds the
// token in slot holds the lock. Acquisition is a plain select, so a
// cancelled waiter walks away without leaving anything to clean up.
type sessionLock struct {
	slot    chan struct{}
	waiters int
}

// NewSessionLocker creates a new session locker.
func NewSessionLocker() *SessionLocker {
	return &SessionLocker{
		locks: make(map[string]*sessionLock),
	}
}

// Lock acquires the lock for the given session ID. It blocks until the
// lock is acquired or the context is cancelled. Returns an unlock function
// that MUST be called when the operation is complete.
func (sl *SessionLocker) Lock(ctx context.Context, sessionID string) (unlock func(), err error) {
	sl.mu.Lock()
	l, ok := sl.locks[sessionID]
	if !ok {
		l = &sessionLock{slot: make(chan struct{}, 1)}
		sl.locks[sessionID] = l
	}
	l.waiters++
	sl.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
		return func() {
			<-l.slot
			sl.release(sessionID, l)
		}, nil

	case <-ctx.Done():
		sl.release(sessionID, l)
		return nil, fmt.Errorf("session lock: %w", ctx.Err())
	}
}

func (sl *SessionLocker) release(sessionID string, l *sessionLock) {
	sl.mu.Lock()
	l.waiters--
	if l.waiters == 0 {
		delete(sl.locks, sessionID)
	}
	sl.mu.Unlock()
}

// ActiveCount returns the number of sessions with active or pending locks.
// Intended for testing.
func (sl *SessionLocker) ActiveCount() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.locks)
}
