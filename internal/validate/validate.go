// Package validate implements the per-key validation and coercion engine.
// Every key either yields a typed value or a list of issues, never both, and
// a coercion is atomic: no partially converted value ever escapes.
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	typerrors "github.com/systmms/typenv/internal/errors"
	"github.com/systmms/typenv/pkg/schema"
)

// Options carries the per-call knobs consulted during validation.
type Options struct {
	// ValidateDefaults re-runs non-string defaults through the type
	// conversion so an out-of-range default is rejected rather than
	// silently accepted. String defaults are always converted.
	ValidateDefaults bool

	// SecretsDir is the global fallback directory for file-typed keys
	// without a direct value; Definition.SecretsDir takes precedence.
	SecretsDir string
}

// Undefined marks a successful validation of an absent optional key.
// It is distinct from nil so callers can tell "validated to no value" from
// "not validated".
type Undefined struct{}

// Validate checks one key's raw value against its definition. raw is nil
// when no resolver supplied the key. The result is either a coerced value
// (possibly Undefined{}) or a non-empty issue list.
func Validate(key string, def schema.Definition, raw *string, opts Options) (interface{}, []typerrors.Issue) {
	present := raw != nil && (*raw != "" || def.AllowEmpty)

	// file-typed keys may fall back to a secrets directory when no direct
	// value is present; the path convention is SCREAMING_SNAKE -> kebab-case.
	if !present && def.Type == schema.TypeFile {
		if dir := secretsDir(def, opts); dir != "" {
			path := filepath.Join(dir, kebabCase(key))
			if value, err := readSecretFile(path); err == nil {
				return value, nil
			}
		}
	}

	if !present {
		if def.HasDefault() {
			return applyDefault(key, def, opts)
		}
		if def.Optional {
			return Undefined{}, nil
		}
		return nil, []typerrors.Issue{typerrors.NewIssue(key,
			fmt.Sprintf("Missing required environment variable: %s", key),
			typerrors.CodeMissingRequired)}
	}

	value := *raw

	if len(def.Enum) > 0 && !enumContains(def.Enum, value) {
		return nil, issue(key, fmt.Sprintf("%s: must be one of [%s], got %q",
			key, strings.Join(def.Enum, ", "), value))
	}

	if def.Pattern != "" {
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			return nil, issue(key, fmt.Sprintf("%s: invalid pattern %q: %v", key, def.Pattern, err))
		}
		if !re.MatchString(value) {
			return nil, issue(key, fmt.Sprintf("%s: value does not match pattern /%s/", key, def.Pattern))
		}
	}

	converted, err := convert(key, def, value)
	if err != nil {
		return nil, issue(key, fmt.Sprintf("%s: %s", key, err.Error()))
	}
	return converted, nil
}

// applyDefault uses the declared default for an absent key. String defaults
// for parsed types are run back through the same conversion so an invalid
// default surfaces as a validation error instead of a silently wrong value.
func applyDefault(key string, def schema.Definition, opts Options) (interface{}, []typerrors.Issue) {
	switch d := def.Default.(type) {
	case string:
		if requiresParsing(def.Type) {
			converted, err := convert(key, def, d)
			if err != nil {
				return nil, issue(key, fmt.Sprintf("%s: invalid default: %s", key, err.Error()))
			}
			return converted, nil
		}
		return d, nil
	default:
		if opts.ValidateDefaults {
			converted, err := convert(key, def, fmt.Sprint(d))
			if err != nil {
				return nil, issue(key, fmt.Sprintf("%s: invalid default: %s", key, err.Error()))
			}
			return converted, nil
		}
		return coerceLiteralDefault(def.Type, d), nil
	}
}

// coerceLiteralDefault aligns a literal default with the type's canonical Go
// representation (ports are ints, numbers float64) without full validation.
func coerceLiteralDefault(t schema.Type, d interface{}) interface{} {
	switch t {
	case schema.TypePort:
		switch n := d.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	case schema.TypeTimestamp, schema.TypeDuration:
		switch n := d.(type) {
		case float64:
			return int64(n)
		case int:
			return int64(n)
		case int64:
			return n
		}
	}
	return d
}

// requiresParsing reports whether a string default must be converted before
// use.
func requiresParsing(t schema.Type) bool {
	switch t {
	case schema.TypeString, schema.TypeFile, schema.TypeCustom:
		return false
	}
	return true
}

func secretsDir(def schema.Definition, opts Options) string {
	if def.SecretsDir != "" {
		return def.SecretsDir
	}
	return opts.SecretsDir
}

// kebabCase converts DATABASE_PASSWORD to database-password.
func kebabCase(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

func enumContains(enum []string, value string) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}

func issue(key, message string) []typerrors.Issue {
	return []typerrors.Issue{typerrors.NewIssue(key, message, typerrors.CodeInvalidValue)}
}
