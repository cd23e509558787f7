package query

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/prodcat/internal/client/metrics"
	"github.com/sethvargo/go-retry"
)

// Fetcher loads the value for one key from the backend.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Read returns the value for key. A fresh entry is served without calling
// fetch. Otherwise one fetch runs for all concurrent callers of key and they
// all receive its result. A failed fetch caches nothing; the next Read tries
// again.
//
// The fetch is detached from ctx so that a caller giving up does not fail the
// other waiters; ctx only bounds how long this caller waits.
func Read[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	e, err := c.entryLocked(key, true)
	if err != nil {
		c.mu.Unlock()
		return zero, err
	}

	if e.freshLocked(c.opts.Now(), c.opts.StaleTime) {
		v := e.value
		c.mu.Unlock()
		c.opts.Metrics.RecordCache(metrics.CacheHit)
		return cast[T](v, e.key)
	}

	cl := e.inflight
	if cl != nil {
		c.mu.Unlock()
		c.opts.Metrics.RecordCache(metrics.CacheDedup)
	} else {
		cl = &call{done: make(chan struct{})}
		e.inflight = cl
		gen := e.gen
		c.publishLocked(e.key, EventLoading, nil, nil)
		c.mu.Unlock()
		c.opts.Metrics.RecordCache(metrics.CacheMiss)

		go c.run(context.WithoutCancel(ctx), e, gen, cl, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	}

	select {
	case <-cl.done:
		if cl.err != nil {
			return zero, cl.err
		}
		return cast[T](cl.val, e.key)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func cast[T any](v any, key string) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s holds %T, want %T", key, v, zero)
	}
	return t, nil
}

func (c *Cache) run(ctx context.Context, e *entry, gen uint64, cl *call, fetch func(context.Context) (any, error)) {
	val, err := c.fetchWithRetry(ctx, e.key, fetch)

	c.mu.Lock()
	if e.inflight == cl {
		e.inflight = nil
	}
	if c.currentLocked(e, gen) {
		if err == nil {
			e.value = val
			e.hasValue = true
			e.err = nil
			e.updatedAt = c.opts.Now()
			e.invalidated = false
			e.rev++
			c.publishLocked(e.key, EventFetched, val, nil)
		} else {
			e.err = err
			c.publishLocked(e.key, EventFailed, nil, err)
		}
	} else {
		c.opts.Logger.Debug(ctx, "discarding superseded fetch", "key", e.key)
	}
	cl.val, cl.err = val, err
	close(cl.done)
	c.mu.Unlock()

	if err != nil {
		c.opts.Metrics.RecordCache(metrics.CacheError)
		c.opts.Logger.Warn(ctx, "fetch failed", "key", e.key, "error", err)
	}
}

func (c *Cache) fetchWithRetry(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	var (
		val     any
		attempt int
	)

	backoff := retry.WithMaxRetries(c.opts.Retries, retry.NewConstant(c.opts.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := fetch(ctx)
		if err != nil {
			if c.opts.Retryable(err) {
				c.opts.Logger.Debug(ctx, "fetch attempt failed", "key", key, "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		val = v
		return nil
	})
	return val, err
}
