package twophase

import (
	"context"
	"golang.org/x/sync/semaphore"
	"sync"
)

// Lock is an exclusive lock that is taken with one Acquire but only given
// back after two Release calls. A lobby holds it until both of its player
// clients have reported readiness, one Release per client.
type Lock struct {
	sem      *semaphore.Weighted
	mu       sync.Mutex
	held     bool
	releases int
}

func NewLock() *Lock {
	return &Lock{
		sem: semaphore.NewWeighted(1),
	}
}

// Acquire blocks until the lock is free or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	l.mu.Lock()
	l.held = true
	l.releases = 0
	l.mu.Unlock()
	return nil
}

// Release counts one release signal. The second signal of a held period
// unlocks; anything past that is ignored until the next Acquire.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return
	}

	l.releases++
	if l.releases >= 2 {
		l.held = false
		l.sem.Release(1)
	}
}

func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}
