package commands

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/internal/logging"
	"github.com/systmms/typenv/pkg/resolver"
	"github.com/systmms/typenv/pkg/schema"
	"github.com/systmms/typenv/pkg/sources"
)

// Options carries state shared by all commands, populated from the
// persistent flags before any command runs.
type Options struct {
	Logger *logging.Logger
}

// loadSchemaFile reads a YAML schema file mapping variable names to
// shorthand strings or long-form definitions.
func loadSchemaFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, typerrors.UserError{
			Message:    fmt.Sprintf("Cannot read schema file '%s'", path),
			Suggestion: "Check the path, or create one with keys like PORT: \"port:8080\"",
		}
	}

	var spec map[string]interface{}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, typerrors.ConfigError{
			Field:      "schema",
			Value:      path,
			Message:    fmt.Sprintf("invalid YAML: %v", err),
			Suggestion: "Each entry must be a shorthand string or a definition object",
		}
	}

	// Long-form entries decode as generic maps; round-trip them into
	// canonical definitions.
	for key, value := range spec {
		m, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		raw, err := yaml.Marshal(m)
		if err != nil {
			return nil, err
		}
		var def schema.Definition
		if err := yaml.Unmarshal(raw, &def); err != nil {
			return nil, typerrors.ConfigError{
				Field:      key,
				Value:      path,
				Message:    fmt.Sprintf("invalid definition: %v", err),
				Suggestion: "See the schema reference for the accepted definition fields",
			}
		}
		spec[key] = def
	}
	return spec, nil
}

// parseSources turns --source flags into ordered resolvers. Recognized
// forms: env, dotenv:<path>, json:<path>, yaml:<path>, http:<url>.
func parseSources(specs []string) ([]resolver.Resolver, error) {
	resolvers := make([]resolver.Resolver, 0, len(specs))
	for _, spec := range specs {
		kind, arg, _ := strings.Cut(spec, ":")
		switch kind {
		case "env":
			resolvers = append(resolvers, sources.NewEnv())
		case "dotenv":
			if arg == "" {
				arg = ".env"
			}
			resolvers = append(resolvers, sources.NewDotenv(arg))
		case "json":
			resolvers = append(resolvers, sources.NewJSONFile(arg))
		case "yaml":
			resolvers = append(resolvers, sources.NewYAMLFile(arg))
		case "http":
			resolvers = append(resolvers, sources.NewHTTP(arg))
		default:
			return nil, typerrors.ConfigError{
				Field:      "source",
				Value:      spec,
				Message:    "unknown source kind",
				Suggestion: "Use env, dotenv:<path>, json:<path>, yaml:<path> or http:<url>",
			}
		}
	}
	return resolvers, nil
}
