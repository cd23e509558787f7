package query

import "github.com/google/uuid"

type EventType int

const (
	EventLoading EventType = iota
	EventFetched
	EventFailed
	EventUpdated
	EventInvalidated
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventLoading:
		return "loading"
	case EventFetched:
		return "fetched"
	case EventFailed:
		return "failed"
	case EventUpdated:
		return "updated"
	case EventInvalidated:
		return "invalidated"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// Event is published to a key's subscribers whenever its entry changes.
type Event struct {
	Key   string
	Type  EventType
	Value any
	Err   error
}

const subscriberBuffer = 16

// Subscribe registers for changes of key. The returned function
// unsubscribes and closes the channel; it is safe to call more than once.
// Slow subscribers miss events rather than block the cache.
func (c *Cache) Subscribe(key Key) (<-chan Event, func()) {
	k := key.String()
	id := uuid.New()
	ch := make(chan Event, subscriberBuffer)

	c.mu.Lock()
	subs, ok := c.subscribers[k]
	if !ok {
		subs = make(map[uuid.UUID]chan Event)
		c.subscribers[k] = subs
	}
	subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if subs, ok := c.subscribers[k]; ok {
			if ch, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}
			if len(subs) == 0 {
				delete(c.subscribers, k)
			}
		}
	}
}

// publishLocked must be called with c.mu held.
func (c *Cache) publishLocked(k string, typ EventType, value any, err error) {
	for _, ch := range c.subscribers[k] {
		select {
		case ch <- Event{Key: k, Type: typ, Value: value, Err: err}:
		default:
		}
	}
}
