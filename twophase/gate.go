package twophase

import (
	"context"
	"fmt"
	"golang.org/x/sync/semaphore"
	"sync"
)

// Gate is a counting admission gate of fixed capacity. Acquire takes a slot;
// a slot only returns to the pool after two Release calls. Releases are a
// plain counter: any two calls free one slot, whichever Acquire they belong to.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64
	mu       sync.Mutex
	inUse    int64
	pending  int64
}

func NewGate(capacity int) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gate capacity must be positive, got %d", capacity)
	}

	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}, nil
}

func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	g.mu.Lock()
	g.inUse++
	g.mu.Unlock()
	return nil
}

func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending++
	if g.pending < 2 {
		return
	}

	g.pending = 0
	// A pair with nothing in use has no slot to give back.
	if g.inUse == 0 {
		return
	}

	g.inUse--
	g.sem.Release(1)
}

// Available reports free slots; an odd pending release does not count.
func (g *Gate) Available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.capacity - g.inUse + g.pending/2)
}

func (g *Gate) InUse() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.inUse)
}

func (g *Gate) Capacity() int {
	return int(g.capacity)
}
