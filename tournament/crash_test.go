package tournament

import (
	"fmt"
	"github.com/stretchr/testify/assert"
	"sync"
	"testing"
)

func TestCrashFirstWriterWins(t *testing.T) {
	c := NewCrash()
	assert.False(t, c.Tripped())
	assert.Empty(t, c.Message())

	assert.True(t, c.Trip("first"))
	assert.False(t, c.Trip("second"))

	assert.True(t, c.Tripped())
	assert.Equal(t, "first", c.Message())
}

func TestCrashDoneBroadcasts(t *testing.T) {
	c := NewCrash()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-c.Done()
		}()
	}

	c.Trip("boom")
	wg.Wait()
}

func TestCrashConcurrentTrips(t *testing.T) {
	c := NewCrash()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if c.Trip(fmt.Sprintf("crash %d", i)) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Contains(t, c.Message(), "crash ")
}

func TestCrashError(t *testing.T) {
	var err error = &CrashError{Message: "ERROR: boom"}
	assert.EqualError(t, err, "tournament crashed: ERROR: boom")

	crash, ok := IsCrash(fmt.Errorf("run: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "ERROR: boom", crash.Message)

	_, ok = IsCrash(ErrNoMatches)
	assert.False(t, ok)
}
