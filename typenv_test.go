package typenv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/typenv/internal/audit"
	"github.com/systmms/typenv/internal/policy"
	"github.com/systmms/typenv/pkg/resolver"
)

func fakeSource(name string, values map[string]string) resolver.Resolver {
	return resolver.NewFake(name).WithValues(values)
}

func TestResolve_HappyPath(t *testing.T) {
	t.Parallel()

	src := fakeSource("env", map[string]string{
		"PORT":         "8080",
		"DATABASE_URL": "postgres://h/db",
		"DEBUG":        "yes",
		"TIMEOUT":      "2m",
	})

	result, err := Resolve(context.Background(), Spec{
		"PORT":         "port",
		"DATABASE_URL": "postgres",
		"DEBUG":        "boolean",
		"TIMEOUT":      "duration",
		"LOG_LEVEL":    "string:info",
	}, WithResolvers(src))
	require.NoError(t, err)

	assert.Equal(t, 8080, result.Int("PORT"))
	assert.Equal(t, "postgres://h/db", result.String("DATABASE_URL"))
	assert.True(t, result.Bool("DEBUG"))
	assert.Equal(t, 2*time.Minute, result.Duration("TIMEOUT"))
	assert.Equal(t, "info", result.String("LOG_LEVEL"), "default applied")

	assert.Equal(t, "env", result.Provenance["PORT"].Source)
	_, hasProv := result.Provenance["LOG_LEVEL"]
	assert.False(t, hasProv, "defaulted keys have no provenance")
}

func TestResolve_AggregatesAllIssues(t *testing.T) {
	t.Parallel()

	src := fakeSource("env", map[string]string{"PORT": "notaport"})

	_, err := Resolve(context.Background(), Spec{
		"PORT":    "port",
		"API_KEY": "string",
		"DB_URL":  "postgres",
	}, WithResolvers(src))
	require.Error(t, err)

	var resolveErr *Error
	require.ErrorAs(t, err, &resolveErr)
	assert.Len(t, resolveErr.Issues, 3)
	assert.Contains(t, err.Error(), "3 issue(s)")
	assert.Contains(t, err.Error(), "Missing required environment variable: API_KEY")
}

func TestResolve_InvalidNameFailsEveryEntryPoint(t *testing.T) {
	t.Parallel()

	spec := Spec{"lowercase": "string"}

	_, err := Resolve(context.Background(), spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid environment variable name")

	_, err = ResolveSync(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid environment variable name")

	assert.Panics(t, func() { MustResolve(context.Background(), spec) })
	assert.Panics(t, func() { MustResolveSync(spec) })
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	src := fakeSource("env", map[string]string{"PORT": "8080", "HOSTS": "a, b"})
	spec := Spec{"PORT": "port", "HOSTS": "string[]"}

	first, err := Resolve(context.Background(), spec, WithResolvers(src))
	require.NoError(t, err)
	second, err := Resolve(context.Background(), spec, WithResolvers(src))
	require.NoError(t, err)

	assert.Equal(t, first.Values, second.Values)
}

func TestResolve_PriorityLast(t *testing.T) {
	t.Parallel()

	base := fakeSource("base", map[string]string{"KEY": "base"})
	override := fakeSource("override", map[string]string{"KEY": "override"})

	result, err := Resolve(context.Background(), Spec{"KEY": "string"},
		WithResolvers(base, override))
	require.NoError(t, err)
	assert.Equal(t, "override", result.String("KEY"))
	assert.Equal(t, "override", result.Provenance["KEY"].Source)
}

func TestResolve_PriorityFirstTerminatesEarly(t *testing.T) {
	t.Parallel()

	primary := resolver.NewFake("primary").WithValue("KEY", "first")
	secondary := resolver.NewFake("secondary").WithValue("KEY", "second")

	result, err := Resolve(context.Background(), Spec{"KEY": "string"},
		WithResolvers(primary, secondary), WithPriority(First))
	require.NoError(t, err)
	assert.Equal(t, "first", result.String("KEY"))
	assert.Equal(t, 0, secondary.LoadCount())
}

func TestResolve_StrictSourceFailure(t *testing.T) {
	t.Parallel()

	bad := resolver.NewFake("remote").WithErr(assert.AnError)

	_, err := Resolve(context.Background(), Spec{"KEY": "string?"},
		WithResolvers(bad), WithStrict())
	require.Error(t, err)

	var resolveErr *Error
	require.ErrorAs(t, err, &resolveErr)
	require.Len(t, resolveErr.Issues, 1)
	assert.Contains(t, resolveErr.Issues[0].Message, "remote")
}

func TestResolveSync_SkipsAsyncOnlySources(t *testing.T) {
	t.Parallel()

	local := resolver.NewFake("local").WithValue("A", "1")
	remote := resolver.NewFake("remote").WithValue("B", "2")

	result, err := ResolveSync(Spec{"A": "string", "B": "string?"},
		WithResolvers(local, remote.Async()))
	require.NoError(t, err)
	assert.Equal(t, "1", result.String("A"))
	_, present := result.Lookup("B")
	assert.False(t, present)
}

func TestResolve_Interpolation(t *testing.T) {
	t.Parallel()

	src := fakeSource("env", map[string]string{
		"HOST": "db.internal",
		"URL":  "postgres://${HOST}/app",
	})

	result, err := Resolve(context.Background(), Spec{
		"HOST": "string",
		"URL":  "postgres",
	}, WithResolvers(src), WithInterpolation())
	require.NoError(t, err)
	assert.Equal(t, "postgres://db.internal/app", result.String("URL"))
}

func TestResolve_DotenvPolicyInProduction(t *testing.T) {
	t.Parallel()

	dotenv := fakeSource("dotenv:.env", map[string]string{"API_KEY": "k"})
	prod := withEnforcer(&policy.Enforcer{Production: true})

	t.Run("rejected_by_default", func(t *testing.T) {
		t.Parallel()
		_, err := Resolve(context.Background(), Spec{"API_KEY": "string"},
			WithResolvers(dotenv), prod, WithAudit(false))
		require.Error(t, err)

		var resolveErr *Error
		require.ErrorAs(t, err, &resolveErr)
		assert.Contains(t, resolveErr.Issues[0].Message, "dotenv source")
	})

	t.Run("allow_list_permits_named_key", func(t *testing.T) {
		t.Parallel()
		result, err := Resolve(context.Background(), Spec{"API_KEY": "string"},
			WithResolvers(dotenv), prod, WithAudit(false),
			WithPolicies(Policies{AllowDotenvInProduction: []string{"API_KEY"}}))
		require.NoError(t, err)
		assert.Equal(t, "k", result.String("API_KEY"))
	})
}

func TestResolve_AllowedSourcesPolicy(t *testing.T) {
	t.Parallel()

	src := fakeSource("process_env", map[string]string{"DB_PASSWORD": "x"})

	_, err := Resolve(context.Background(), Spec{"DB_PASSWORD": "string"},
		WithResolvers(src),
		WithPolicies(Policies{EnforceAllowedSources: map[string][]string{
			"DB_PASSWORD": {"aws_secrets_manager"},
		}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be sourced from one of [aws_secrets_manager]")
}

func TestResolve_NestedDelimiter(t *testing.T) {
	t.Parallel()

	src := fakeSource("env", map[string]string{
		"DATABASE__HOST": "db",
		"DATABASE__PORT": "5432",
		"DEBUG":          "true",
	})

	result, err := Resolve(context.Background(), Spec{
		"DATABASE__HOST": "string",
		"DATABASE__PORT": "port",
		"DEBUG":          "boolean",
	}, WithResolvers(src), WithNestedDelimiter("__"))
	require.NoError(t, err)

	database, ok := result.Values["database"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "db", database["host"])
	assert.Equal(t, 5432, database["port"])
	assert.Equal(t, true, result.Values["DEBUG"])

	// Typed getters keep answering on the original flat keys.
	assert.Equal(t, 5432, result.Int("DATABASE__PORT"))
}

func TestResolve_AuditSessions(t *testing.T) {
	t.Parallel()

	log := audit.NewLog()
	specA := Spec{"SHARED_KEY": "string"}

	srcA := fakeSource("source_a", map[string]string{"SHARED_KEY": "a"})
	srcB := fakeSource("source_b", map[string]string{"SHARED_KEY": "b"})

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	for i, src := range []resolver.Resolver{srcA, srcB} {
		wg.Add(1)
		go func(i int, src resolver.Resolver) {
			defer wg.Done()
			result, err := Resolve(context.Background(), specA,
				WithResolvers(src), WithAudit(true), WithAuditLog(log))
			assert.NoError(t, err)
			results[i] = result
		}(i, src)
	}
	wg.Wait()

	for i, wantSource := range []string{"source_a", "source_b"} {
		events := GetAuditLog(results[i])
		var loaded []audit.Event
		for _, e := range events {
			if e.Type == audit.EnvLoaded && e.Key == "SHARED_KEY" {
				loaded = append(loaded, e)
			}
		}
		require.Len(t, loaded, 1, "session %d must only see its own load", i)
		assert.Equal(t, wantSource, loaded[0].Source)
	}

	// The shared log still holds both calls' events.
	var total int
	for _, e := range log.Events() {
		if e.Type == audit.EnvLoaded && e.Key == "SHARED_KEY" {
			total++
		}
	}
	assert.Equal(t, 2, total)
}

func TestResolve_AuditDisabledRecordsNothing(t *testing.T) {
	t.Parallel()

	log := audit.NewLog()
	src := fakeSource("env", map[string]string{"KEY": "v"})

	result, err := Resolve(context.Background(), Spec{"KEY": "string"},
		WithResolvers(src), WithAudit(false), WithAuditLog(log))
	require.NoError(t, err)
	assert.Empty(t, result.AuditToken)
	assert.Zero(t, log.Len())
	assert.Empty(t, GetAuditLog(result))
}

func TestResolve_AuditRecordsFailures(t *testing.T) {
	t.Parallel()

	log := audit.NewLog()
	src := fakeSource("env", map[string]string{"PORT": "bad"})

	_, err := Resolve(context.Background(), Spec{"PORT": "port"},
		WithResolvers(src), WithAudit(true), WithAuditLog(log))
	require.Error(t, err)

	events := log.Events()
	require.NotEmpty(t, events)
	var failures int
	for _, e := range events {
		if e.Type == audit.ValidationFailure && e.Key == "PORT" {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestMustResolve_ReturnsOnSuccess(t *testing.T) {
	t.Parallel()

	src := fakeSource("env", map[string]string{"KEY": "v"})
	result := MustResolve(context.Background(), Spec{"KEY": "string"}, WithResolvers(src))
	assert.Equal(t, "v", result.String("KEY"))
}

func TestResolve_SourceSchemaFragments(t *testing.T) {
	t.Parallel()

	base := fakeSource("base", map[string]string{"PORT": "8080"})
	extra := fakeSource("extra", map[string]string{"FEATURE": "on"})

	result, err := Resolve(context.Background(), Spec{"PORT": "port"},
		WithSources(
			Source{Resolver: base},
			Source{Resolver: extra, Spec: Spec{"FEATURE": "boolean"}},
		))
	require.NoError(t, err)
	assert.Equal(t, 8080, result.Int("PORT"))
	assert.Equal(t, true, result.Bool("FEATURE"))
}

func TestResolve_EmptySpecIsValid(t *testing.T) {
	t.Parallel()

	src := fakeSource("env", map[string]string{"ANYTHING": "x"})
	result, err := Resolve(context.Background(), Spec{}, WithResolvers(src))
	require.NoError(t, err)
	assert.Empty(t, result.Values)
}
