package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProduction(t *testing.T) {
	t.Run("app_env_marker", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		assert.True(t, IsProduction())
	})

	t.Run("go_env_marker", func(t *testing.T) {
		t.Setenv("GO_ENV", "production")
		assert.True(t, IsProduction())
	})

	t.Run("node_env_marker", func(t *testing.T) {
		t.Setenv("NODE_ENV", "production")
		assert.True(t, IsProduction())
	})

	t.Run("staging_is_not_production", func(t *testing.T) {
		t.Setenv("APP_ENV", "staging")
		t.Setenv("GO_ENV", "")
		t.Setenv("NODE_ENV", "")
		assert.False(t, IsProduction())
	})
}

func TestEnforcer_Dotenv(t *testing.T) {
	t.Parallel()

	prod := &Enforcer{Production: true}
	dev := &Enforcer{Production: false}

	t.Run("rejected_in_production_by_default", func(t *testing.T) {
		t.Parallel()
		msg := prod.Check("API_KEY", "dotenv:.env", Policies{})
		assert.Contains(t, msg, "API_KEY: loaded from dotenv source")
		assert.Contains(t, msg, "AllowDotenvInProduction")
	})

	t.Run("allowed_outside_production", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, dev.Check("API_KEY", "dotenv:.env", Policies{}))
	})

	t.Run("process_env_exempt", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, prod.Check("API_KEY", "process_env", Policies{}))
	})

	t.Run("non_dotenv_source_exempt", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, prod.Check("API_KEY", "aws_secrets_manager", Policies{}))
	})

	t.Run("bool_true_allows_all", func(t *testing.T) {
		t.Parallel()
		pol := Policies{AllowDotenvInProduction: true}
		assert.Empty(t, prod.Check("API_KEY", "dotenv:.env", pol))
	})

	t.Run("bool_false_rejects", func(t *testing.T) {
		t.Parallel()
		pol := Policies{AllowDotenvInProduction: false}
		assert.NotEmpty(t, prod.Check("API_KEY", "dotenv:.env", pol))
	})

	t.Run("list_allows_only_listed_keys", func(t *testing.T) {
		t.Parallel()
		pol := Policies{AllowDotenvInProduction: []string{"FEATURE_FLAG"}}
		assert.Empty(t, prod.Check("FEATURE_FLAG", "dotenv:.env", pol))
		assert.NotEmpty(t, prod.Check("API_KEY", "dotenv:.env", pol))
	})

	t.Run("any_dotenv_prefixed_source_matches", func(t *testing.T) {
		t.Parallel()
		assert.NotEmpty(t, prod.Check("API_KEY", "dotenv:.env.local", Policies{}))
	})
}

func TestEnforcer_AllowedSources(t *testing.T) {
	t.Parallel()

	e := &Enforcer{Production: false}
	pol := Policies{EnforceAllowedSources: map[string][]string{
		"DATABASE_PASSWORD": {"aws_secrets_manager", "keyring"},
	}}

	t.Run("listed_source_allowed", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, e.Check("DATABASE_PASSWORD", "aws_secrets_manager", pol))
		assert.Empty(t, e.Check("DATABASE_PASSWORD", "keyring", pol))
	})

	t.Run("unlisted_source_rejected", func(t *testing.T) {
		t.Parallel()
		msg := e.Check("DATABASE_PASSWORD", "process_env", pol)
		assert.Contains(t, msg, "must be sourced from one of [aws_secrets_manager, keyring]")
		assert.Contains(t, msg, `got "process_env"`)
	})

	t.Run("unrestricted_key_passes", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, e.Check("PORT", "process_env", pol))
	})

	t.Run("applies_regardless_of_environment", func(t *testing.T) {
		t.Parallel()
		prod := &Enforcer{Production: true}
		assert.NotEmpty(t, prod.Check("DATABASE_PASSWORD", "dotenv:.env", pol))
	})
}
