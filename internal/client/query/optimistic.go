package query

import (
	"context"
	"time"
)

type snapshot struct {
	value       any
	err         error
	updatedAt   time.Time
	invalidated bool
}

// Optimistic applies update to the cached value of key before op runs, so
// readers see the new value immediately. If op fails the exact prior value is
// restored, unless a newer write replaced the provisional one meanwhile.
// Whatever the outcome, key and every reconcile prefix are marked stale
// afterwards. When key holds no value of type T, nothing is applied and only
// op and the final invalidation run.
//
// update must return a new value and leave its argument untouched.
func Optimistic[T, R any](ctx context.Context, c *Cache, key Key, update func(T) T, op func(context.Context) (R, error), reconcile ...Key) (R, error) {
	var zero R

	c.mu.Lock()
	e, err := c.entryLocked(key, false)
	if err != nil {
		c.mu.Unlock()
		return zero, err
	}

	var (
		applied bool
		snap    snapshot
		rev     uint64
	)
	if e != nil && e.hasValue {
		if cur, ok := e.value.(T); ok {
			snap = snapshot{value: e.value, err: e.err, updatedAt: e.updatedAt, invalidated: e.invalidated}
			next := update(cur)
			e.value = next
			e.err = nil
			e.updatedAt = c.opts.Now()
			e.invalidated = false
			e.inflight = nil
			e.gen++
			e.rev++
			rev = e.rev
			applied = true
			c.publishLocked(e.key, EventUpdated, next, nil)
		}
	}
	c.mu.Unlock()

	result, opErr := op(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if opErr != nil && applied && c.entries[e.key] == e && e.rev == rev {
		e.value = snap.value
		e.err = snap.err
		e.updatedAt = snap.updatedAt
		e.invalidated = snap.invalidated
		e.gen++
		e.rev++
		c.publishLocked(e.key, EventUpdated, snap.value, nil)
		c.opts.Logger.Debug(ctx, "optimistic update rolled back", "key", e.key, "error", opErr)
	}

	for _, prefix := range append([]Key{key}, reconcile...) {
		if _, err := c.invalidateLocked(prefix); err != nil && opErr == nil {
			return result, err
		}
	}
	return result, opErr
}
