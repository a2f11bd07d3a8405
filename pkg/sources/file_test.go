package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFile(t *testing.T) {
	t.Parallel()

	t.Run("flattens_document", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "env.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"port": 8080,
			"database": {"host": "db", "password": null}
		}`), 0o600))

		src := NewJSONFile(path)
		values, err := src.LoadSync()
		require.NoError(t, err)
		assert.Equal(t, "8080", values["PORT"])
		assert.Equal(t, "db", values["DATABASE_HOST"])
		_, exists := values["DATABASE_PASSWORD"]
		assert.False(t, exists, "null leaves are absent")
	})

	t.Run("invalid_json_names_file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "env.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

		_, err := NewJSONFile(path).LoadSync()
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})

	t.Run("name", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "json_file:conf.json", NewJSONFile("conf.json").Name())
	})
}

func TestYAMLFile(t *testing.T) {
	t.Parallel()

	t.Run("flattens_document", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "env.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"port: 8080\ndatabase:\n  host: db\n  replicas:\n    - a\n    - b\n"), 0o600))

		values, err := NewYAMLFile(path).LoadSync()
		require.NoError(t, err)
		assert.Equal(t, "8080", values["PORT"])
		assert.Equal(t, "db", values["DATABASE_HOST"])
		assert.Equal(t, "a,b", values["DATABASE_REPLICAS"])
	})

	t.Run("invalid_yaml_fails", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "env.yaml")
		require.NoError(t, os.WriteFile(path, []byte("\t:bad"), 0o600))

		_, err := NewYAMLFile(path).LoadSync()
		require.Error(t, err)
	})
}

func TestEnv(t *testing.T) {
	t.Run("reads_process_environment", func(t *testing.T) {
		t.Setenv("TYPENV_TEST_VALUE", "42")
		values, err := NewEnv().LoadSync()
		require.NoError(t, err)
		assert.Equal(t, "42", values["TYPENV_TEST_VALUE"])
	})

	t.Run("prefix_filters_keys", func(t *testing.T) {
		t.Setenv("MYAPP_PORT", "8080")
		t.Setenv("OTHER_KEY", "x")

		src := &Env{Prefix: "MYAPP_"}
		values, err := src.LoadSync()
		require.NoError(t, err)
		assert.Equal(t, "8080", values["MYAPP_PORT"])
		_, exists := values["OTHER_KEY"]
		assert.False(t, exists)
	})

	t.Run("name_is_process_env", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "process_env", NewEnv().Name())
	})
}
