package treehash

import (
	"context"
	"sync"
)

// BoundedChannel is a FIFO queue with capacity bound >= 1, guarded by a
// single mutex and two condition variables (spec.md §3.5, §4.1). A single
// shared condition is not enough here: producers waiting on "not full" and
// consumers waiting on "not empty" must be woken independently, or a
// producer's Signal could wake another producer instead of a waiting
// consumer (and vice versa) when both sides are blocked at once.
//
// The channel carries values of T directly; there is no separate "closed"
// state; sentinels (e.g. a worker-count of termination markers) are carried
// in-band as ordinary values of T, exactly as spec.md §3.5 specifies.
type BoundedChannel[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	bound uint
	items []T
}

// NewBoundedChannel creates a channel with the given capacity. bound must be
// >= 1.
func NewBoundedChannel[T any](bound uint) *BoundedChannel[T] {
	if bound == 0 {
		panic("treehash: bounded channel capacity must be >= 1")
	}
	ch := &BoundedChannel[T]{bound: bound, items: make([]T, 0, bound)}
	ch.notFull = sync.NewCond(&ch.mu)
	ch.notEmpty = sync.NewCond(&ch.mu)
	return ch
}

// Push blocks while the queue holds >= bound elements, then enqueues v and
// wakes exactly one waiter on the pop side.
func (c *BoundedChannel[T]) Push(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for uint(len(c.items)) >= c.bound {
		c.notFull.Wait()
	}
	c.items = append(c.items, v)
	c.notEmpty.Signal()
}

// Pop blocks on an empty queue, then dequeues the oldest value and wakes
// exactly one waiter on the push side.
func (c *BoundedChannel[T]) Pop() T {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.items) == 0 {
		c.notEmpty.Wait()
	}
	v := c.items[0]
	c.items = c.items[1:]
	c.notFull.Signal()
	return v
}

// Len returns the current queue length. Intended for diagnostics/tests only
// — by the time it returns, another goroutine may have already changed it.
func (c *BoundedChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// PushCtx behaves like Push, but returns ctx's error instead of blocking
// forever once ctx is done. A blocked Push/Pop only wakes on its own side's
// Signal, so cancellation must be delivered the same way: CancelOn arranges
// for both conditions to be Broadcast once ctx is done, and PushCtx/PopCtx
// recheck ctx.Err() each time they wake. Used by the threaded hasher (C7)
// so a collector failure unblocks producers and workers instead of wedging
// them against a full, permanently-undrained channel (spec.md §5, §7).
func (c *BoundedChannel[T]) PushCtx(ctx context.Context, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for uint(len(c.items)) >= c.bound {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.notFull.Wait()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.items = append(c.items, v)
	c.notEmpty.Signal()
	return nil
}

// PopCtx behaves like Pop, but returns ctx's error instead of blocking
// forever once ctx is done.
func (c *BoundedChannel[T]) PopCtx(ctx context.Context) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.items) == 0 {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		c.notEmpty.Wait()
	}
	v := c.items[0]
	c.items = c.items[1:]
	c.notFull.Signal()
	return v, nil
}

// CancelOn spawns a goroutine that broadcasts to both conditions once ctx is
// done, waking every blocked PushCtx/PopCtx waiter so it can observe
// ctx.Err() and return instead of blocking past the lifetime of ctx.
func (c *BoundedChannel[T]) CancelOn(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		c.notFull.Broadcast()
		c.notEmpty.Broadcast()
		c.mu.Unlock()
	}()
}
