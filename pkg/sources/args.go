package sources

import (
	"context"
	"strings"

	"github.com/systmms/typenv/pkg/schema"
)

// Args extracts environment values from command-line arguments. Recognized
// forms are "--KEY=value", "--KEY value" and bare "KEY=value"; anything else
// is ignored. Only tokens whose key matches the environment variable name
// shape are taken.
type Args struct {
	args []string
}

// NewArgs creates a CLI argument source, typically from os.Args[1:].
func NewArgs(args []string) *Args {
	return &Args{args: args}
}

// Name implements resolver.Resolver.
func (a *Args) Name() string {
	return "cli_args"
}

// Metadata implements resolver.Resolver.
func (a *Args) Metadata() map[string]interface{} {
	return nil
}

// Load implements resolver.Resolver.
func (a *Args) Load(ctx context.Context) (map[string]string, error) {
	return a.LoadSync()
}

// LoadSync implements resolver.SyncResolver.
func (a *Args) LoadSync() (map[string]string, error) {
	out := make(map[string]string)
	for i := 0; i < len(a.args); i++ {
		arg := a.args[i]

		token := strings.TrimPrefix(arg, "--")
		if key, value, ok := strings.Cut(token, "="); ok {
			if schema.ValidName.MatchString(key) {
				out[key] = value
			}
			continue
		}

		// "--KEY value" form
		if strings.HasPrefix(arg, "--") && schema.ValidName.MatchString(token) && i+1 < len(a.args) {
			next := a.args[i+1]
			if !strings.HasPrefix(next, "--") {
				out[token] = next
				i++
			}
		}
	}
	return out, nil
}
