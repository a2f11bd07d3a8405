// Package merge executes an ordered list of resolvers against a priority
// policy and produces a single flat raw map plus per-key provenance.
//
// Under last-wins priority all resolvers load concurrently but their results
// are applied in list order, so precedence stays deterministic regardless of
// which load settles first. Under first-wins priority resolvers run
// sequentially and remaining resolvers are skipped once every declared key
// has a value.
package merge

import (
	"context"
	"sync"
	"time"

	"github.com/systmms/typenv/internal/audit"
	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/internal/logging"
	"github.com/systmms/typenv/internal/metrics"
	"github.com/systmms/typenv/pkg/resolver"
)

// Priority selects which resolver wins when several supply the same key.
type Priority string

const (
	// PriorityFirst gives the earliest resolver in list order precedence and
	// enables early termination.
	PriorityFirst Priority = "first"

	// PriorityLast gives the latest resolver in list order precedence.
	// This is the default.
	PriorityLast Priority = "last"
)

// Provenance records which resolver supplied a key's value and when it was
// written into the merged map.
type Provenance struct {
	Source    string
	Timestamp time.Time
	Cached    bool
}

// Options configures a merge run.
type Options struct {
	Priority    Priority
	Strict      bool
	Interpolate bool

	// AllKeys is the full declared schema key set, including optional and
	// defaulted keys. Under PriorityFirst, once every key in AllKeys has a
	// value, remaining resolvers are skipped entirely.
	AllKeys []string

	Audit   *audit.Log
	Session audit.SessionToken
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

func (o *Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}

func (o *Options) recordResolverError(name string, err error) {
	o.Metrics.IncResolverError()
	if o.Audit == nil {
		return
	}
	o.Audit.Record(audit.Event{
		Type:    audit.ResolverError,
		Source:  name,
		Error:   err.Error(),
		Session: o.Session,
	})
}

type settled struct {
	values map[string]string
	err    error
}

// Merge runs the resolvers per the priority policy and returns the merged
// environment and per-key provenance.
func Merge(ctx context.Context, resolvers []resolver.Resolver, opts Options) (map[string]string, map[string]Provenance, error) {
	if opts.Priority == "" {
		opts.Priority = PriorityLast
	}

	var (
		env  map[string]string
		prov map[string]Provenance
		err  error
	)
	if opts.Priority == PriorityFirst {
		env, prov, err = mergeFirst(ctx, resolvers, opts)
	} else {
		env, prov, err = mergeLast(ctx, resolvers, opts)
	}
	if err != nil {
		return nil, nil, err
	}

	if opts.Interpolate {
		env = Interpolate(env)
	}
	return env, prov, nil
}

// mergeLast starts every resolver's load before awaiting any of them, then
// applies results in original list order. Later resolvers always overwrite
// earlier ones for the same key; completion order never matters.
func mergeLast(ctx context.Context, resolvers []resolver.Resolver, opts Options) (map[string]string, map[string]Provenance, error) {
	results := make([]settled, len(resolvers))

	var wg sync.WaitGroup
	for i, r := range resolvers {
		wg.Add(1)
		go func(i int, r resolver.Resolver) {
			defer wg.Done()
			values, err := r.Load(ctx)
			results[i] = settled{values: values, err: err}
		}(i, r)
	}
	wg.Wait()

	env := make(map[string]string)
	prov := make(map[string]Provenance)

	for i, r := range resolvers {
		res := results[i]
		if res.err != nil {
			opts.recordResolverError(r.Name(), res.err)
			if opts.Strict {
				return nil, nil, typerrors.ResolverError{Resolver: r.Name(), Err: res.err}
			}
			opts.logger().Warn("Skipping source %s: %v", r.Name(), res.err)
			continue
		}
		apply(env, prov, r, res.values, true)
	}

	return env, prov, nil
}

// mergeFirst runs resolvers strictly sequentially. A key written by an
// earlier resolver is never overwritten, and once every declared key has a
// value the remaining resolvers are not invoked at all.
func mergeFirst(ctx context.Context, resolvers []resolver.Resolver, opts Options) (map[string]string, map[string]Provenance, error) {
	env := make(map[string]string)
	prov := make(map[string]Provenance)

	for _, r := range resolvers {
		if satisfied(env, opts.AllKeys) {
			opts.logger().Debug("All %d declared keys satisfied, skipping remaining sources", len(opts.AllKeys))
			break
		}

		values, err := r.Load(ctx)
		if err != nil {
			opts.recordResolverError(r.Name(), err)
			if opts.Strict {
				return nil, nil, typerrors.ResolverError{Resolver: r.Name(), Err: err}
			}
			opts.logger().Warn("Skipping source %s: %v", r.Name(), err)
			continue
		}
		apply(env, prov, r, values, false)
	}

	return env, prov, nil
}

// MergeSync is the synchronous path. It is always sequential regardless of
// priority. Resolvers without synchronous capability fail the call under
// strict mode and are skipped otherwise.
func MergeSync(resolvers []resolver.Resolver, opts Options) (map[string]string, map[string]Provenance, error) {
	if opts.Priority == "" {
		opts.Priority = PriorityLast
	}

	env := make(map[string]string)
	prov := make(map[string]Provenance)

	for _, r := range resolvers {
		if opts.Priority == PriorityFirst && satisfied(env, opts.AllKeys) {
			break
		}

		sync, ok := resolver.SyncCapable(r)
		if !ok {
			if opts.Strict {
				return nil, nil, typerrors.ConfigError{
					Field:      "resolvers",
					Value:      r.Name(),
					Message:    "source does not support synchronous loading",
					Suggestion: "Use the asynchronous resolve path, or drop strict mode to skip it",
				}
			}
			opts.logger().Debug("Skipping async-only source %s on sync path", r.Name())
			continue
		}

		values, err := sync.LoadSync()
		if err != nil {
			opts.recordResolverError(r.Name(), err)
			if opts.Strict {
				return nil, nil, typerrors.ResolverError{Resolver: r.Name(), Err: err}
			}
			opts.logger().Warn("Skipping source %s: %v", r.Name(), err)
			continue
		}
		apply(env, prov, r, values, opts.Priority == PriorityLast)
	}

	if opts.Interpolate {
		env = Interpolate(env)
	}
	return env, prov, nil
}

// apply writes a resolver's values into the merged map. Provenance is
// recorded the instant a key is written: first writer under first-wins,
// most recent writer under last-wins.
func apply(env map[string]string, prov map[string]Provenance, r resolver.Resolver, values map[string]string, overwrite bool) {
	cached := resolver.Cached(r)
	for key, value := range values {
		if !overwrite {
			if _, exists := env[key]; exists {
				continue
			}
		}
		env[key] = value
		prov[key] = Provenance{
			Source:    r.Name(),
			Timestamp: time.Now(),
			Cached:    cached,
		}
	}
}

// satisfied reports whether every declared key already has a value. An empty
// declared set is never satisfied, so a schema-less merge still consults all
// sources.
func satisfied(env map[string]string, allKeys []string) bool {
	if len(allKeys) == 0 {
		return false
	}
	for _, key := range allKeys {
		if _, ok := env[key]; !ok {
			return false
		}
	}
	return true
}
