package tournament

import (
	"fmt"
	"sync"
)

// Crash is the run-wide failure flag. It is set at most once; the first
// message wins and Done is closed for every waiter.
type Crash struct {
	once    sync.Once
	done    chan struct{}
	message string
}

func NewCrash() *Crash {
	return &Crash{done: make(chan struct{})}
}

// Trip sets the flag and reports whether this call was the one that set it.
func (c *Crash) Trip(message string) bool {
	tripped := false
	c.once.Do(func() {
		c.message = message
		tripped = true
		close(c.done)
	})
	return tripped
}

func (c *Crash) Tripped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Message is empty until the flag is tripped.
func (c *Crash) Message() string {
	if !c.Tripped() {
		return ""
	}
	return c.message
}

func (c *Crash) Done() <-chan struct{} {
	return c.done
}

// CrashError ends a run that was stopped by the crash flag.
type CrashError struct {
	Message string
	// LogDir is where the match host keeps its own logs.
	LogDir string
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("tournament crashed: %s", e.Message)
}
