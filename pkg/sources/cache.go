package sources

import (
	"context"
	"sync"
	"time"

	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/pkg/resolver"
)

// cacheState enumerates the explicit states of a cached source. The state
// is derived from the snapshot's age on each access; refresh tracks the
// single in-flight reload shared by all concurrent callers.
type cacheState int

const (
	cacheEmpty cacheState = iota // no snapshot yet; first load blocks
	cacheFresh                   // snapshot within TTL; served directly
	cacheStale                   // past TTL, within stale window; served while one refresh runs
	cacheExpired                 // past stale window; callers block on the shared refresh
)

// refreshCall is the shared in-flight reload. All callers needing a reload
// wait on done and read the same outcome; the reference is cleared when the
// call settles so the next staleness can start a new one.
type refreshCall struct {
	done   chan struct{}
	values map[string]string
	err    error
}

// Cached wraps a resolver with a TTL cache and stale-while-revalidate
// semantics: within StaleFor after the TTL elapses, callers get the stale
// snapshot immediately while a single background refresh runs. Past the
// stale window, callers block until the shared refresh settles.
//
// The wrapper preserves the inner resolver's name so policy matching still
// sees the true source; its metadata reports cached: true whenever the last
// serve came from the snapshot.
type Cached struct {
	inner    resolver.Resolver
	ttl      time.Duration
	staleFor time.Duration

	mu        sync.Mutex
	values    map[string]string
	fetchedAt time.Time
	refresh   *refreshCall
	servedHit bool

	now func() time.Time
}

// NewCached wraps inner with a cache. ttl is the fresh window; staleFor is
// the additional window during which stale values are served while a
// background refresh runs.
func NewCached(inner resolver.Resolver, ttl, staleFor time.Duration) *Cached {
	return &Cached{inner: inner, ttl: ttl, staleFor: staleFor, now: time.Now}
}

// Name implements resolver.Resolver. The inner name is preserved for
// provenance and policy matching.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Metadata implements resolver.Resolver.
func (c *Cached) Metadata() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta := map[string]interface{}{"cached": c.servedHit}
	for k, v := range c.innerMetadata() {
		meta[k] = v
	}
	return meta
}

func (c *Cached) innerMetadata() map[string]interface{} {
	return c.inner.Metadata()
}

func (c *Cached) state() cacheState {
	if c.values == nil {
		return cacheEmpty
	}
	age := c.now().Sub(c.fetchedAt)
	switch {
	case age <= c.ttl:
		return cacheFresh
	case age <= c.ttl+c.staleFor:
		return cacheStale
	default:
		return cacheExpired
	}
}

// Load implements resolver.Resolver.
func (c *Cached) Load(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()

	switch c.state() {
	case cacheFresh:
		snapshot := copyValues(c.values)
		c.servedHit = true
		c.mu.Unlock()
		return snapshot, nil

	case cacheStale:
		snapshot := copyValues(c.values)
		c.servedHit = true
		if c.refresh == nil {
			c.startRefresh(context.WithoutCancel(ctx))
		}
		c.mu.Unlock()
		return snapshot, nil

	default: // cacheEmpty, cacheExpired
		if c.refresh == nil {
			c.startRefresh(ctx)
		}
		call := c.refresh
		c.servedHit = false
		c.mu.Unlock()

		select {
		case <-call.done:
			return call.values, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// startRefresh launches the single in-flight reload. Caller must hold mu.
func (c *Cached) startRefresh(ctx context.Context) {
	call := &refreshCall{done: make(chan struct{})}
	c.refresh = call

	go func() {
		values, err := c.inner.Load(ctx)

		c.mu.Lock()
		if err == nil {
			c.values = values
			c.fetchedAt = c.now()
		}
		c.refresh = nil
		c.mu.Unlock()

		call.values = copyValues(values)
		call.err = err
		close(call.done)
	}()
}

// LoadSync implements resolver.SyncResolver when the inner source does. A
// fresh or stale snapshot is served without touching the source; otherwise
// the inner source is loaded inline. Stale serves on the sync path do not
// start a background refresh.
func (c *Cached) LoadSync() (map[string]string, error) {
	c.mu.Lock()

	switch c.state() {
	case cacheFresh, cacheStale:
		snapshot := copyValues(c.values)
		c.servedHit = true
		c.mu.Unlock()
		return snapshot, nil
	}
	c.servedHit = false
	c.mu.Unlock()

	sync, ok := resolver.SyncCapable(c.inner)
	if !ok {
		return nil, typerrors.ConfigError{
			Field:   "cache",
			Value:   c.inner.Name(),
			Message: "wrapped source does not support synchronous loading",
		}
	}

	values, err := sync.LoadSync()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.values = values
	c.fetchedAt = c.now()
	c.mu.Unlock()

	return copyValues(values), nil
}

// Invalidate drops the snapshot so the next load goes to the source.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = nil
	c.fetchedAt = time.Time{}
}

func copyValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
