package global

import (
	"sync"
	"sync/atomic"
)

// ClosableCh runs its close callbacks at most once.
type ClosableCh struct {
	closed atomic.Bool

	mu sync.Mutex
}

func NewClosableCh() ClosableCh {
	return ClosableCh{}
}

func (c *ClosableCh) Close(calls ...func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IsClosed() {
		return
	}

	for _, call := range calls {
		call()
	}
	c.closed.Store(true)
}

func (c *ClosableCh) IsClosed() bool {
	return c.closed.Load()
}
