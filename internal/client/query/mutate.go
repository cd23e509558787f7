package query

import "context"

type changeOp int

const (
	opSet changeOp = iota
	opInvalidate
	opRemove
)

// Change is one cache edit produced by an Effect.
type Change struct {
	op    changeOp
	key   Key
	value any
}

// Effect maps a mutation result to the cache change it implies.
type Effect[T any] func(result T) Change

// Set stores the mutation result under key.
func Set[T any](key Key) Effect[T] {
	return func(result T) Change {
		return Change{op: opSet, key: key, value: result}
	}
}

// SetAt stores a value derived from the result under a key derived from it,
// e.g. the created entity under its server-assigned id.
func SetAt[T, V any](key func(T) Key, value func(T) V) Effect[T] {
	return func(result T) Change {
		return Change{op: opSet, key: key(result), value: value(result)}
	}
}

// InvalidatePrefix marks every entry under prefix stale.
func InvalidatePrefix[T any](prefix Key) Effect[T] {
	return func(T) Change {
		return Change{op: opInvalidate, key: prefix}
	}
}

func Remove[T any](key Key) Effect[T] {
	return func(T) Change {
		return Change{op: opRemove, key: key}
	}
}

// Mutate runs op and, only when it succeeds, applies effects as one atomic
// cache update.
func Mutate[T any](ctx context.Context, c *Cache, op func(context.Context) (T, error), effects ...Effect[T]) (T, error) {
	result, err := op(ctx)
	if err != nil {
		return result, err
	}

	changes := make([]Change, 0, len(effects))
	for _, eff := range effects {
		changes = append(changes, eff(result))
	}
	if err := c.apply(changes...); err != nil {
		return result, err
	}
	return result, nil
}

func (c *Cache) apply(changes ...Change) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range changes {
		var err error
		switch ch.op {
		case opSet:
			err = c.setLocked(ch.key, ch.value)
		case opInvalidate:
			_, err = c.invalidateLocked(ch.key)
		case opRemove:
			err = c.removeLocked(ch.key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
