package transport

import (
	"context"
	"sync"
)

// Coordinator serializes token refreshes: at most one refresh is outstanding,
// and callers arriving while it runs wait for its outcome instead of issuing
// their own.
type Coordinator struct {
	mux        sync.Mutex
	refreshing bool
	waiters    []*Waiter
}

// Waiter is one caller parked behind an in-flight refresh. It is settled
// exactly once.
type Waiter struct {
	done chan outcome
}

type outcome struct {
	token string
	err   error
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Begin reports whether the caller now owns the refresh. When a refresh is
// already in flight it returns a waiter queued behind it instead.
func (c *Coordinator) Begin() (bool, *Waiter) {
	c.mux.Lock()
	defer c.mux.Unlock()
	if !c.refreshing {
		c.refreshing = true
		return true, nil
	}
	w := &Waiter{done: make(chan outcome, 1)}
	c.waiters = append(c.waiters, w)
	return false, w
}

// Resolve ends the refresh and resumes every queued waiter with token.
func (c *Coordinator) Resolve(token string) {
	c.settle(outcome{token: token})
}

// Reject ends the refresh and fails every queued waiter with err.
func (c *Coordinator) Reject(err error) {
	c.settle(outcome{err: err})
}

// settle drains the queue in arrival order under one lock, so every waiter
// of a refresh observes the same outcome.
func (c *Coordinator) settle(result outcome) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.refreshing = false
	for _, w := range c.waiters {
		w.done <- result
	}
	c.waiters = nil
}

// Refreshing reports whether a refresh is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.refreshing
}

// Pending returns the number of queued waiters.
func (c *Coordinator) Pending() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return len(c.waiters)
}

// Await blocks until the refresh settles or ctx ends.
func (w *Waiter) Await(ctx context.Context) (string, error) {
	select {
	case result := <-w.done:
		return result.token, result.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
