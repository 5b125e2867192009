package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCoordinator_SingleOwner(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewCoordinator()

	owner, waiter := c.Begin()
	assert.True(t, owner)
	assert.Nil(t, waiter)
	assert.True(t, c.Refreshing())

	owner, waiter = c.Begin()
	assert.False(t, owner)
	require.NotNil(t, waiter)
	assert.Equal(t, 1, c.Pending())

	c.Resolve("token")
	assert.False(t, c.Refreshing())
	assert.Equal(t, 0, c.Pending())

	token, err := waiter.Await(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "token", token)

	// idle again: next caller owns a new refresh
	owner, _ = c.Begin()
	assert.True(t, owner)
}

func TestCoordinator_ResolveAll(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewCoordinator()
	owner, _ := c.Begin()
	require.True(t, owner)

	const n = 8
	waiters := make([]*Waiter, n)
	for i := 0; i < n; i++ {
		_, waiters[i] = c.Begin()
	}
	c.Resolve("fresh")

	var wg sync.WaitGroup
	for _, w := range waiters {
		wg.Add(1)
		go func(w *Waiter) {
			defer wg.Done()
			token, err := w.Await(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "fresh", token)
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 0, c.Pending())
}

func TestCoordinator_QueueOrder(t *testing.T) {
	c := NewCoordinator()
	_, _ = c.Begin()
	var expect []*Waiter
	for i := 0; i < 3; i++ {
		_, w := c.Begin()
		expect = append(expect, w)
	}
	c.mux.Lock()
	actual := append([]*Waiter(nil), c.waiters...)
	c.mux.Unlock()
	assert.Equal(t, expect, actual)
	c.Reject(errors.New("boom"))
}

func TestCoordinator_Reject(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewCoordinator()
	_, _ = c.Begin()
	_, w1 := c.Begin()
	_, w2 := c.Begin()
	cause := errors.New("refresh failed")
	c.Reject(cause)

	for _, w := range []*Waiter{w1, w2} {
		token, err := w.Await(context.Background())
		assert.ErrorIs(t, err, cause)
		assert.Empty(t, token)
	}
	assert.False(t, c.Refreshing())
}

func TestWaiter_AwaitDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := NewCoordinator()
	_, _ = c.Begin()
	_, w := c.Begin()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := w.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// settling after the waiter gave up must not block
	c.Resolve("late")
	assert.False(t, c.Refreshing())
}
