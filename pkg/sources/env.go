package sources

import (
	"context"
	"os"
	"strings"
)

// Env reads the process environment. Its name, "process_env", marks values
// as directly environment-sourced, which exempts them from the
// dotenv-in-production policy.
type Env struct {
	// Prefix, when set, restricts the loaded keys to those beginning with
	// it. The prefix is kept in the key.
	Prefix string
}

// NewEnv creates a process environment source.
func NewEnv() *Env {
	return &Env{}
}

// Name implements resolver.Resolver.
func (e *Env) Name() string {
	return "process_env"
}

// Metadata implements resolver.Resolver.
func (e *Env) Metadata() map[string]interface{} {
	return nil
}

// Load implements resolver.Resolver.
func (e *Env) Load(ctx context.Context) (map[string]string, error) {
	return e.LoadSync()
}

// LoadSync implements resolver.SyncResolver.
func (e *Env) LoadSync() (map[string]string, error) {
	out := make(map[string]string)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if e.Prefix != "" && !strings.HasPrefix(key, e.Prefix) {
			continue
		}
		out[key] = value
	}
	return out, nil
}
