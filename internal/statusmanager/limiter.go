package statusmanager

import "context"

// limiter bounds in-flight transactions at a fixed size, per spec §5's
// concurrency-limiter requirement: a buffered-channel semaphore, FIFO-fair
// by channel-send order, which is simpler and more idiomatic than a
// condition-variable-guarded counter for this fixed-capacity use.
type limiter struct {
	slots chan struct{}
}

func newLimiter(capacity int) *limiter {
	if capacity <= 0 {
		capacity = 200
	}
	return &limiter{slots: make(chan struct{}, capacity)}
}

// Execute acquires a slot, runs fn, and releases the slot; a cancelled
// ctx aborts the wait for a slot without running fn.
func (l *limiter) Execute(ctx context.Context, fn func() error) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.slots }()
	return fn()
}
