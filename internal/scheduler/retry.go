package scheduler

import "sync"

// MaxRetry is the number of additional attempts a Failed node gets after its
// first one.
const MaxRetry = 2

// RetryCounter tracks how many times each node has been re-dispatched in the
// current run.
type RetryCounter struct {
	mu     sync.Mutex
	max    int
	counts map[string]int
}

// NewRetryCounter creates a counter allowing max retries per node.
func NewRetryCounter(max int) *RetryCounter {
	return &RetryCounter{max: max, counts: make(map[string]int)}
}

// Max returns the retry limit.
func (c *RetryCounter) Max() int {
	return c.max
}

// CanRetry implements Budget.
func (c *RetryCounter) CanRetry(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[id] < c.max
}

// Record counts one re-dispatch of the node and returns the new total.
func (c *RetryCounter) Record(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[id]++
	return c.counts[id]
}

// Count returns how many retries the node has used.
func (c *RetryCounter) Count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[id]
}

// Reset gives the node its full budget back.
func (c *RetryCounter) Reset(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, id)
}

// ResetAll clears every counter.
func (c *RetryCounter) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
}
