package typenv

import (
	"github.com/systmms/typenv/internal/audit"
	"github.com/systmms/typenv/internal/logging"
	"github.com/systmms/typenv/internal/merge"
	"github.com/systmms/typenv/internal/metrics"
	"github.com/systmms/typenv/internal/policy"
	"github.com/systmms/typenv/pkg/resolver"
)

// Priority selects which source wins when several supply the same key.
type Priority = merge.Priority

const (
	// First gives the earliest source precedence and skips remaining
	// sources once every declared key has a value.
	First = merge.PriorityFirst

	// Last gives the latest source precedence. Sources load concurrently
	// but precedence follows list order, not completion order.
	Last = merge.PriorityLast
)

// Policies re-exports the security policy set.
type Policies = policy.Policies

// Source pairs a resolver with the schema fragment it contributes. A nil
// Spec contributes no keys of its own; the resolver still supplies raw
// values for the call's schema.
type Source struct {
	Resolver resolver.Resolver
	Spec     Spec
}

// Options is the assembled per-call configuration. Construct via Option
// functions.
type Options struct {
	priority         Priority
	interpolate      bool
	strict           bool
	policies         Policies
	enableAudit      *bool
	validateDefaults bool
	secretsDir       string
	nestedDelimiter  string
	sources          []Source
	logger           *logging.Logger
	auditLog         *audit.Log
	metrics          *metrics.Metrics
	enforcer         *policy.Enforcer
}

// Option customizes a resolve call.
type Option func(*Options)

// WithPriority sets the merge precedence policy. Default is Last.
func WithPriority(p Priority) Option {
	return func(o *Options) { o.priority = p }
}

// WithInterpolation substitutes ${VAR} references in merged values.
func WithInterpolation() Option {
	return func(o *Options) { o.interpolate = true }
}

// WithStrict makes source failures fatal instead of skipping the source,
// and makes async-only sources an error on the sync path.
func WithStrict() Option {
	return func(o *Options) { o.strict = true }
}

// WithPolicies sets the security policies evaluated against provenance.
func WithPolicies(p Policies) Option {
	return func(o *Options) { o.policies = p }
}

// WithAudit forces auditing on or off for this call. Without it, auditing
// is enabled only when the process runs in production.
func WithAudit(enabled bool) Option {
	return func(o *Options) { o.enableAudit = &enabled }
}

// WithValidateDefaults re-runs literal defaults through type conversion so
// out-of-range defaults are rejected.
func WithValidateDefaults() Option {
	return func(o *Options) { o.validateDefaults = true }
}

// WithSecretsDir sets the global fallback directory for file-typed keys.
func WithSecretsDir(dir string) Option {
	return func(o *Options) { o.secretsDir = dir }
}

// WithNestedDelimiter restructures flat keys containing the delimiter into
// nested lower-cased objects after validation, e.g. DATABASE__HOST with
// delimiter "__" becomes Values["database"].(map[string]interface{})["host"].
func WithNestedDelimiter(delim string) Option {
	return func(o *Options) { o.nestedDelimiter = delim }
}

// WithResolvers replaces the default source chain (the process
// environment) with the given ordered resolvers.
func WithResolvers(resolvers ...resolver.Resolver) Option {
	return func(o *Options) {
		for _, r := range resolvers {
			o.sources = append(o.sources, Source{Resolver: r})
		}
	}
}

// WithSources replaces the default source chain with ordered
// resolver+schema pairs. Schema fragments merge into the call's schema;
// later fragments win on key collisions.
func WithSources(sources ...Source) Option {
	return func(o *Options) { o.sources = append(o.sources, sources...) }
}

// WithLogger routes engine diagnostics to the given logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithAuditLog uses a dedicated audit log instead of the process-wide one.
func WithAuditLog(log *audit.Log) Option {
	return func(o *Options) { o.auditLog = log }
}

// WithMetrics records resolve outcomes on the given metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.metrics = m }
}

// withEnforcer is a test hook to force the production flag.
func withEnforcer(e *policy.Enforcer) Option {
	return func(o *Options) { o.enforcer = e }
}

func buildOptions(opts []Option) *Options {
	o := &Options{priority: Last}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.auditLog == nil {
		o.auditLog = audit.Default()
	}
	if o.enforcer == nil {
		o.enforcer = policy.New()
	}
	return o
}

func (o *Options) auditEnabled() bool {
	if o.enableAudit != nil {
		return *o.enableAudit
	}
	return o.enforcer.Production
}
