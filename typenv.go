// Package typenv resolves typed environment configuration from ordered
// sources. A resolve call merges raw key/value pairs from its sources,
// validates and coerces each declared key against a schema, enforces
// security policies against value provenance, and records an audit trail
// of what happened.
//
// The minimal call validates the process environment:
//
//	result, err := typenv.Resolve(ctx, typenv.Spec{
//	    "PORT":         "port:8080",
//	    "DATABASE_URL": "postgres",
//	    "DEBUG":        "boolean:false",
//	})
//
// Values come back coerced: result.Int("PORT") is 8080 unless a source
// overrode it. Additional sources are ordered; by default the last source
// supplying a key wins.
package typenv

import (
	"context"
	"sort"
	"time"

	"github.com/systmms/typenv/internal/audit"
	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/internal/merge"
	"github.com/systmms/typenv/internal/validate"
	"github.com/systmms/typenv/pkg/resolver"
	"github.com/systmms/typenv/pkg/schema"
	"github.com/systmms/typenv/pkg/sources"
)

// Spec declares the expected variables. Each value is either a shorthand
// string like "port:8080" or a schema.Definition for the long form.
type Spec = map[string]interface{}

// Issue is one per-key problem found during resolution.
type Issue = typerrors.Issue

// Error is the failure of a resolve call. It aggregates every issue found
// in the call rather than stopping at the first.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	return typerrors.AggregateError{Issues: e.Issues}.Error()
}

// Resolve loads, merges, validates, and audits the declared variables.
// All issues are collected before failing; a returned *Error lists one
// issue per offending key.
func Resolve(ctx context.Context, spec Spec, opts ...Option) (*Result, error) {
	return run(ctx, spec, buildOptions(opts), false)
}

// ResolveSync is Resolve without goroutines or network waits: every source
// loads sequentially on the calling goroutine, and sources that cannot
// load synchronously are skipped (or fail the call under WithStrict).
func ResolveSync(spec Spec, opts ...Option) (*Result, error) {
	return run(context.Background(), spec, buildOptions(opts), true)
}

// MustResolve is Resolve but panics on failure. Intended for program
// startup where a bad environment should abort the process.
func MustResolve(ctx context.Context, spec Spec, opts ...Option) *Result {
	result, err := Resolve(ctx, spec, opts...)
	if err != nil {
		panic(err)
	}
	return result
}

// MustResolveSync is ResolveSync but panics on failure.
func MustResolveSync(spec Spec, opts ...Option) *Result {
	result, err := ResolveSync(spec, opts...)
	if err != nil {
		panic(err)
	}
	return result
}

// GetAuditLog returns audit events. With a result, only the events of that
// call's session; with nil, every event in the process-wide log.
func GetAuditLog(result *Result) []audit.Event {
	if result == nil {
		return audit.Default().Events()
	}
	log := result.auditLog
	if log == nil {
		log = audit.Default()
	}
	if result.AuditToken == "" {
		return nil
	}
	return log.SessionEvents(result.AuditToken)
}

// ClearAuditLog discards every event in the process-wide audit log.
func ClearAuditLog() {
	audit.Default().Clear()
}

func run(ctx context.Context, spec Spec, o *Options, syncMode bool) (*Result, error) {
	start := time.Now()

	sch, resolvers, err := assemble(spec, o)
	if err != nil {
		o.metrics.ObserveResolve(false, time.Since(start))
		return nil, err
	}

	// Name validation happens before any source is contacted.
	if err := schema.CheckNames(sch); err != nil {
		o.metrics.ObserveResolve(false, time.Since(start))
		if serr, ok := err.(typerrors.SchemaError); ok {
			return nil, &Error{Issues: []Issue{
				typerrors.NewIssue(serr.Key, serr.Error(), typerrors.CodeInvalidName),
			}}
		}
		return nil, err
	}

	var session audit.SessionToken
	if o.auditEnabled() {
		session = o.auditLog.BeginSession()
	}

	mergeOpts := merge.Options{
		Priority:    o.priority,
		Strict:      o.strict,
		Interpolate: o.interpolate,
		AllKeys:     sch.Keys(),
		Audit:       auditIf(session, o),
		Session:     session,
		Logger:      o.logger,
		Metrics:     o.metrics,
	}

	var (
		env  map[string]string
		prov map[string]merge.Provenance
	)
	if syncMode {
		env, prov, err = merge.MergeSync(resolvers, mergeOpts)
	} else {
		env, prov, err = merge.Merge(ctx, resolvers, mergeOpts)
	}
	if err != nil {
		o.metrics.ObserveResolve(false, time.Since(start))
		if rerr, ok := err.(typerrors.ResolverError); ok {
			return nil, &Error{Issues: []Issue{
				{Message: rerr.Error(), Code: typerrors.CodeResolverFailed},
			}}
		}
		return nil, err
	}

	keys := sch.Keys()
	sort.Strings(keys)

	values := make(map[string]interface{}, len(keys))
	var issues []Issue

	for _, key := range keys {
		def := sch[key]

		var raw *string
		rawValue, supplied := env[key]
		if supplied {
			raw = &rawValue
		}

		if supplied {
			if msg := o.enforcer.Check(key, prov[key].Source, o.policies); msg != "" {
				issues = append(issues, typerrors.NewIssue(key, msg, typerrors.CodePolicyViolation))
				o.metrics.IncPolicyViolation()
				record(o, session, audit.Event{
					Type:   audit.PolicyViolation,
					Key:    key,
					Source: prov[key].Source,
					Error:  msg,
				})
				continue
			}
		}

		value, keyIssues := validate.Validate(key, def, raw, validate.Options{
			ValidateDefaults: o.validateDefaults,
			SecretsDir:       o.secretsDir,
		})
		if len(keyIssues) > 0 {
			issues = append(issues, keyIssues...)
			o.metrics.IncValidationFailure()
			for _, ki := range keyIssues {
				record(o, session, audit.Event{
					Type:  audit.ValidationFailure,
					Key:   key,
					Error: ki.Message,
				})
			}
			continue
		}

		if _, undefined := value.(validate.Undefined); !undefined {
			values[key] = value
		}
		if supplied {
			record(o, session, audit.Event{
				Type:   audit.EnvLoaded,
				Key:    key,
				Source: prov[key].Source,
				Cached: prov[key].Cached,
			})
		}
	}

	if len(issues) > 0 {
		o.metrics.ObserveResolve(false, time.Since(start))
		return nil, &Error{Issues: issues}
	}

	record(o, session, audit.Event{
		Type:     audit.ValidationSuccess,
		Metadata: map[string]interface{}{"variables": len(values)},
	})
	o.metrics.ObserveResolve(true, time.Since(start))

	result := &Result{
		Values:     values,
		Provenance: prov,
		AuditToken: session,
		auditLog:   o.auditLog,
	}
	if o.nestedDelimiter != "" {
		result.flatValues = values
		result.Values = nestValues(values, o.nestedDelimiter)
	}
	return result, nil
}

// assemble normalizes the call schema plus each source's schema fragment
// and produces the ordered resolver list. Without explicit sources the
// process environment is the only source.
func assemble(spec Spec, o *Options) (schema.Schema, []resolver.Resolver, error) {
	sch, err := schema.Normalize(spec)
	if err != nil {
		return nil, nil, err
	}

	if len(o.sources) == 0 {
		return sch, []resolver.Resolver{sources.NewEnv()}, nil
	}

	resolvers := make([]resolver.Resolver, 0, len(o.sources))
	for _, src := range o.sources {
		if src.Resolver != nil {
			resolvers = append(resolvers, src.Resolver)
		}
		if src.Spec == nil {
			continue
		}
		fragment, err := schema.Normalize(src.Spec)
		if err != nil {
			return nil, nil, err
		}
		for key, def := range fragment {
			sch[key] = def
		}
	}
	return sch, resolvers, nil
}

func auditIf(session audit.SessionToken, o *Options) *audit.Log {
	if session == "" {
		return nil
	}
	return o.auditLog
}

func record(o *Options, session audit.SessionToken, event audit.Event) {
	if session == "" {
		return
	}
	event.Session = session
	o.auditLog.Record(event)
}
