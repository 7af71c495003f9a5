package lstore

import (
	"sync/atomic"
	"time"
)

// hybridClock hands out strictly increasing versions that follow wall time
// in nanoseconds: next = max(now, last+1).
//
// Thread-safety: This type is thread-safe since it uses atomic operations.
type hybridClock struct {
	last atomic.Uint64
	now  func() uint64
}

func newHybridClock() *hybridClock {
	return &hybridClock{now: func() uint64 { return uint64(time.Now().UnixNano()) }}
}

// Next returns a version greater than every version returned or observed before
func (c *hybridClock) Next() uint64 {
	for {
		last := c.last.Load()
		next := c.now()
		if next <= last {
			next = last + 1
		}
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Observe makes sure later versions are greater than v
func (c *hybridClock) Observe(v uint64) {
	for {
		last := c.last.Load()
		if v <= last || c.last.CompareAndSwap(last, v) {
			return
		}
	}
}
