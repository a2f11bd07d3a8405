package resolver

import (
	"context"
	"sync"
	"time"
)

// Fake is an in-memory resolver for tests. It supports injected failures,
// artificial load delays, and counts how often it was consulted.
//
//	r := resolver.NewFake("remote").
//	    WithValue("PORT", "8080").
//	    WithDelay(50 * time.Millisecond)
type Fake struct {
	name string

	mu       sync.Mutex
	values   map[string]string
	err      error
	delay    time.Duration
	metadata map[string]interface{}
	loads    int
}

// NewFake creates an empty fake resolver with the given name.
func NewFake(name string) *Fake {
	return &Fake{
		name:   name,
		values: make(map[string]string),
	}
}

// WithValue sets a single key and returns the fake for chaining.
func (f *Fake) WithValue(key, value string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return f
}

// WithValues replaces all values.
func (f *Fake) WithValues(values map[string]string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = make(map[string]string, len(values))
	for k, v := range values {
		f.values[k] = v
	}
	return f
}

// WithErr makes every load fail with err.
func (f *Fake) WithErr(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// WithDelay makes asynchronous loads sleep before returning, simulating a
// slow remote source.
func (f *Fake) WithDelay(delay time.Duration) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = delay
	return f
}

// WithMetadata sets a metadata attribute.
func (f *Fake) WithMetadata(key string, value interface{}) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metadata == nil {
		f.metadata = make(map[string]interface{})
	}
	f.metadata[key] = value
	return f
}

// LoadCount reports how many times Load or LoadSync was invoked.
func (f *Fake) LoadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// Name implements Resolver.
func (f *Fake) Name() string {
	return f.name
}

// Metadata implements Resolver.
func (f *Fake) Metadata() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metadata
}

// Load implements Resolver.
func (f *Fake) Load(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return f.load()
}

// LoadSync implements SyncResolver. Delays are ignored on the sync path.
func (f *Fake) LoadSync() (map[string]string, error) {
	return f.load()
}

func (f *Fake) load() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loads++
	if f.err != nil {
		return nil, f.err
	}

	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

// Async hides a fake's synchronous capability so tests can exercise the
// async-only code paths.
func (f *Fake) Async() Resolver {
	return asyncOnly{f}
}

type asyncOnly struct {
	inner *Fake
}

func (a asyncOnly) Name() string { return a.inner.Name() }

func (a asyncOnly) Metadata() map[string]interface{} { return a.inner.Metadata() }

func (a asyncOnly) Load(ctx context.Context) (map[string]string, error) {
	return a.inner.Load(ctx)
}
