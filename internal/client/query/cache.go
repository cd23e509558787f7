package query

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/client/api"
	"github.com/dmitrijs2005/prodcat/internal/client/metrics"
	"github.com/dmitrijs2005/prodcat/internal/logging"
	"github.com/google/uuid"
)

// DefaultStaleTime is how long a fetched value is served without refetching.
const DefaultStaleTime = 5 * time.Minute

type State int

const (
	StateAbsent State = iota
	StateLoading
	StateFresh
	StateStale
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateFailed:
		return "failed"
	}
	return "absent"
}

type Options struct {
	StaleTime time.Duration
	// Retries is how many times a failed fetch is repeated when Retryable
	// accepts the error.
	Retries    uint64
	RetryDelay time.Duration
	Retryable  func(error) bool
	Metrics    metrics.Recorder
	Logger     logging.Logger
	Now        func() time.Time
}

func DefaultOptions() Options {
	return Options{
		StaleTime:  DefaultStaleTime,
		Retries:    1,
		RetryDelay: 200 * time.Millisecond,
		Retryable:  api.IsRetryable,
	}
}

type entry struct {
	parts []string
	key   string

	value    any
	hasValue bool
	err      error

	updatedAt   time.Time
	invalidated bool

	// gen changes on every write; rev changes only when value changes.
	gen      uint64
	rev      uint64
	inflight *call
}

type call struct {
	done chan struct{}
	val  any
	err  error
}

// Cache is safe for concurrent use.
type Cache struct {
	mu          sync.Mutex
	entries     map[string]*entry
	subscribers map[string]map[uuid.UUID]chan Event
	opts        Options
}

// New builds a cache. Zero fields in opts take their defaults; set Retries
// through DefaultOptions to keep the default single retry.
func New(opts Options) *Cache {
	def := DefaultOptions()
	if opts.StaleTime <= 0 {
		opts.StaleTime = def.StaleTime
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.Retryable == nil {
		opts.Retryable = def.Retryable
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		entries:     make(map[string]*entry),
		subscribers: make(map[string]map[uuid.UUID]chan Event),
		opts:        opts,
	}
}

func (c *Cache) StaleTime() time.Duration {
	return c.opts.StaleTime
}

func (e *entry) freshLocked(now time.Time, staleTime time.Duration) bool {
	return e.hasValue && e.err == nil && !e.invalidated && now.Sub(e.updatedAt) < staleTime
}

func (e *entry) stateLocked(now time.Time, staleTime time.Duration) State {
	switch {
	case e.inflight != nil:
		return StateLoading
	case e.err != nil:
		return StateFailed
	case !e.hasValue:
		return StateAbsent
	case e.freshLocked(now, staleTime):
		return StateFresh
	default:
		return StateStale
	}
}

// entryLocked returns the entry for key, creating it when create is set.
func (c *Cache) entryLocked(key Key, create bool) (*entry, error) {
	parts, err := key.encode()
	if err != nil {
		return nil, err
	}
	k := join(parts)
	e, ok := c.entries[k]
	if !ok && create {
		e = &entry{parts: parts, key: k}
		c.entries[k] = e
	}
	return e, nil
}

func (c *Cache) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.entryLocked(key, false)
	if err != nil || e == nil {
		return StateAbsent
	}
	return e.stateLocked(c.opts.Now(), c.opts.StaleTime)
}

// GetData returns the cached value for key regardless of freshness.
func GetData[T any](c *Cache, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, err := c.entryLocked(key, false)
	if err != nil || e == nil || !e.hasValue {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// SetData replaces the value for key and marks it fresh.
func (c *Cache) SetData(key Key, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(key, value)
}

func (c *Cache) setLocked(key Key, value any) error {
	e, err := c.entryLocked(key, true)
	if err != nil {
		return err
	}
	e.value = value
	e.hasValue = true
	e.err = nil
	e.updatedAt = c.opts.Now()
	e.invalidated = false
	e.inflight = nil
	e.gen++
	e.rev++
	c.publishLocked(e.key, EventUpdated, value, nil)
	return nil
}

// Invalidate marks every entry under prefix stale without evicting values.
// In-flight fetches for those entries are superseded. It returns the number
// of entries touched.
func (c *Cache) Invalidate(prefix Key) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidateLocked(prefix)
}

func (c *Cache) invalidateLocked(prefix Key) (int, error) {
	pp, err := prefix.encode()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range c.entries {
		if !hasPrefix(e.parts, pp) {
			continue
		}
		e.invalidated = true
		e.inflight = nil
		e.gen++
		n++
		c.publishLocked(e.key, EventInvalidated, nil, nil)
	}
	return n, nil
}

// Remove drops the entry for key. Subscribers stay registered.
func (c *Cache) Remove(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(key)
}

func (c *Cache) removeLocked(key Key) error {
	e, err := c.entryLocked(key, false)
	if err != nil || e == nil {
		return err
	}
	e.gen++
	delete(c.entries, e.key)
	c.publishLocked(e.key, EventRemoved, nil, nil)
	return nil
}

// Clear drops every entry, e.g. when the tenant or user changes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		e.gen++
		delete(c.entries, k)
		c.publishLocked(k, EventRemoved, nil, nil)
	}
}

// Len is the number of entries, including failed and loading ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// currentLocked reports whether e is still the live entry at generation gen.
func (c *Cache) currentLocked(e *entry, gen uint64) bool {
	return c.entries[e.key] == e && e.gen == gen
}
