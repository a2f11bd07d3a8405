package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/typenv/pkg/resolver"
)

func TestMerge_LastWins(t *testing.T) {
	t.Parallel()

	t.Run("later_resolver_overwrites", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("base").WithValue("PORT", "3000").WithValue("HOST", "a")
		r2 := resolver.NewFake("override").WithValue("PORT", "8080")

		env, prov, err := Merge(context.Background(), []resolver.Resolver{r1, r2}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "8080", env["PORT"])
		assert.Equal(t, "a", env["HOST"])
		assert.Equal(t, "override", prov["PORT"].Source)
		assert.Equal(t, "base", prov["HOST"].Source)
	})

	t.Run("precedence_ignores_completion_order", func(t *testing.T) {
		t.Parallel()
		// The earlier resolver finishes last; list order must still win.
		r1 := resolver.NewFake("slow").WithValue("KEY", "early").WithDelay(80 * time.Millisecond)
		r2 := resolver.NewFake("fast").WithValue("KEY", "late")

		env, prov, err := Merge(context.Background(), []resolver.Resolver{r1, r2}, Options{Priority: PriorityLast})
		require.NoError(t, err)
		assert.Equal(t, "late", env["KEY"])
		assert.Equal(t, "fast", prov["KEY"].Source)
	})

	t.Run("failed_resolver_skipped", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("good").WithValue("A", "1")
		r2 := resolver.NewFake("bad").WithErr(errors.New("boom"))

		env, _, err := Merge(context.Background(), []resolver.Resolver{r1, r2}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "1", env["A"])
	})

	t.Run("strict_failure_is_fatal", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("good").WithValue("A", "1")
		r2 := resolver.NewFake("bad").WithErr(errors.New("boom"))

		_, _, err := Merge(context.Background(), []resolver.Resolver{r1, r2}, Options{Strict: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad: boom")
	})
}

func TestMerge_FirstWins(t *testing.T) {
	t.Parallel()

	t.Run("earlier_resolver_kept", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("primary").WithValue("KEY", "first")
		r2 := resolver.NewFake("secondary").WithValue("KEY", "second").WithValue("OTHER", "x")

		env, prov, err := Merge(context.Background(), []resolver.Resolver{r1, r2},
			Options{Priority: PriorityFirst, AllKeys: []string{"KEY", "OTHER"}})
		require.NoError(t, err)
		assert.Equal(t, "first", env["KEY"])
		assert.Equal(t, "x", env["OTHER"])
		assert.Equal(t, "primary", prov["KEY"].Source)
	})

	t.Run("early_termination_skips_remaining", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("primary").WithValue("KEY", "v")
		r2 := resolver.NewFake("never")

		_, _, err := Merge(context.Background(), []resolver.Resolver{r1, r2},
			Options{Priority: PriorityFirst, AllKeys: []string{"KEY"}})
		require.NoError(t, err)
		assert.Equal(t, 1, r1.LoadCount())
		assert.Equal(t, 0, r2.LoadCount())
	})

	t.Run("no_termination_while_keys_missing", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("primary").WithValue("KEY", "v")
		r2 := resolver.NewFake("secondary")

		_, _, err := Merge(context.Background(), []resolver.Resolver{r1, r2},
			Options{Priority: PriorityFirst, AllKeys: []string{"KEY", "MISSING"}})
		require.NoError(t, err)
		assert.Equal(t, 1, r2.LoadCount())
	})

	t.Run("empty_declared_set_consults_all", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("a").WithValue("K", "1")
		r2 := resolver.NewFake("b").WithValue("L", "2")

		env, _, err := Merge(context.Background(), []resolver.Resolver{r1, r2},
			Options{Priority: PriorityFirst})
		require.NoError(t, err)
		assert.Len(t, env, 2)
		assert.Equal(t, 1, r2.LoadCount())
	})
}

func TestMergeSync(t *testing.T) {
	t.Parallel()

	t.Run("async_only_source_skipped", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("sync").WithValue("A", "1")
		r2 := resolver.NewFake("remote").WithValue("B", "2")

		env, _, err := MergeSync([]resolver.Resolver{r1, r2.Async()}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "1", env["A"])
		_, ok := env["B"]
		assert.False(t, ok)
	})

	t.Run("async_only_source_fails_strict", func(t *testing.T) {
		t.Parallel()
		r := resolver.NewFake("remote").WithValue("B", "2")

		_, _, err := MergeSync([]resolver.Resolver{r.Async()}, Options{Strict: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "synchronous")
	})

	t.Run("last_priority_overwrites_sequentially", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("a").WithValue("K", "1")
		r2 := resolver.NewFake("b").WithValue("K", "2")

		env, prov, err := MergeSync([]resolver.Resolver{r1, r2}, Options{Priority: PriorityLast})
		require.NoError(t, err)
		assert.Equal(t, "2", env["K"])
		assert.Equal(t, "b", prov["K"].Source)
	})

	t.Run("first_priority_terminates_early", func(t *testing.T) {
		t.Parallel()
		r1 := resolver.NewFake("a").WithValue("K", "1")
		r2 := resolver.NewFake("b")

		_, _, err := MergeSync([]resolver.Resolver{r1, r2},
			Options{Priority: PriorityFirst, AllKeys: []string{"K"}})
		require.NoError(t, err)
		assert.Equal(t, 0, r2.LoadCount())
	})
}

func TestMerge_CachedProvenance(t *testing.T) {
	t.Parallel()

	r := resolver.NewFake("remote").WithValue("K", "v").WithMetadata("cached", true)
	_, prov, err := Merge(context.Background(), []resolver.Resolver{r}, Options{})
	require.NoError(t, err)
	assert.True(t, prov["K"].Cached)
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	t.Run("substitutes_from_snapshot", func(t *testing.T) {
		t.Parallel()
		out := Interpolate(map[string]string{
			"HOST": "db.internal",
			"PORT": "5432",
			"URL":  "postgres://${HOST}:${PORT}/app",
		})
		assert.Equal(t, "postgres://db.internal:5432/app", out["URL"])
	})

	t.Run("single_pass_no_transitive_expansion", func(t *testing.T) {
		t.Parallel()
		// B references A which itself references C; only one level expands,
		// and every reference reads the original pre-expansion values.
		out := Interpolate(map[string]string{
			"C": "leaf",
			"A": "${C}",
			"B": "${A}",
		})
		assert.Equal(t, "leaf", out["A"])
		assert.Equal(t, "${C}", out["B"])
	})

	t.Run("unknown_reference_left_literal", func(t *testing.T) {
		t.Parallel()
		out := Interpolate(map[string]string{"X": "${NOPE}"})
		assert.Equal(t, "${NOPE}", out["X"])
	})

	t.Run("merge_applies_interpolation_when_enabled", func(t *testing.T) {
		t.Parallel()
		r := resolver.NewFake("env").
			WithValue("HOST", "h").
			WithValue("URL", "http://${HOST}/")

		env, _, err := Merge(context.Background(), []resolver.Resolver{r}, Options{Interpolate: true})
		require.NoError(t, err)
		assert.Equal(t, "http://h/", env["URL"])
	})
}
