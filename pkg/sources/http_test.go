package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/typenv/pkg/resolver"
)

func TestHTTP_Load(t *testing.T) {
	t.Parallel()

	t.Run("flattens_json_object", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"port": 8080, "database": {"host": "db"}}`))
		}))
		defer srv.Close()

		values, err := NewHTTP(srv.URL).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "8080", values["PORT"])
		assert.Equal(t, "db", values["DATABASE_HOST"])
	})

	t.Run("sends_configured_headers", func(t *testing.T) {
		t.Parallel()
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := NewHTTP(srv.URL, WithHeader("Authorization", "Bearer t0k")).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer t0k", got)
	})

	t.Run("non_200_fails_with_body_excerpt", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "denied", http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := NewHTTP(srv.URL).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 403")
		assert.Contains(t, err.Error(), "denied")
	})

	t.Run("non_json_body_fails", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("PORT=8080"))
		}))
		defer srv.Close()

		_, err := NewHTTP(srv.URL).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})

	t.Run("async_only", func(t *testing.T) {
		t.Parallel()
		_, ok := resolver.SyncCapable(NewHTTP("http://example.com"))
		assert.False(t, ok)
	})
}
