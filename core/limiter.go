package core

import (
	"fmt"
	"sync"
)

// ModelLimiter bounds model invocations for one run. The budget is shared
// across all pipeline stages, so a tool loop stuck in one stage cannot starve
// the rest of the run silently; it fails fast instead.
type ModelLimiter struct {
	mu    sync.Mutex
	max   int
	count int
}

// NewModelLimiter creates a limiter allowing up to max calls. A max of 0
// disables the bound.
func NewModelLimiter(max int) *ModelLimiter {
	return &ModelLimiter{max: max}
}

// Increment consumes one call from the budget. The call is counted even when
// the budget is exhausted, so Count stays an accurate invocation tally.
func (ml *ModelLimiter) Increment() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.count++
	if ml.max > 0 && ml.count > ml.max {
		return fmt.Errorf("exceeded max model calls: %d", ml.max)
	}

	return nil
}

// Count returns the number of calls consumed so far.
func (ml *ModelLimiter) Count() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	return ml.count
}

// Remaining returns the calls left in the budget, or -1 when unbounded.
func (ml *ModelLimiter) Remaining() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max == 0 {
		return -1
	}

	return ml.max - ml.count
}
