// Package schema defines the canonical per-key environment variable
// definitions and normalizes the user-facing shorthand forms into them.
package schema

import (
	"fmt"
	"regexp"

	typerrors "github.com/systmms/typenv/internal/errors"
)

// Type tags the closed set of supported value types.
type Type string

const (
	TypeString      Type = "string"
	TypeNumber      Type = "number"
	TypeBoolean     Type = "boolean"
	TypePort        Type = "port"
	TypeURL         Type = "url"
	TypeHTTP        Type = "http"
	TypeHTTPS       Type = "https"
	TypeEmail       Type = "email"
	TypePostgres    Type = "postgres"
	TypeMySQL       Type = "mysql"
	TypeMongoDB     Type = "mongodb"
	TypeRedis       Type = "redis"
	TypeJSON        Type = "json"
	TypeDate        Type = "date"
	TypeTimestamp   Type = "timestamp"
	TypeDuration    Type = "duration"
	TypeFile        Type = "file"
	TypeStringArray Type = "string[]"
	TypeNumberArray Type = "number[]"
	TypeURLArray    Type = "url[]"
	TypeCustom      Type = "custom"
)

// knownTypes is the set recognized by the shorthand grammar. Anything else
// falls back to TypeString.
var knownTypes = map[Type]bool{
	TypeString: true, TypeNumber: true, TypeBoolean: true, TypePort: true,
	TypeURL: true, TypeHTTP: true, TypeHTTPS: true, TypeEmail: true,
	TypePostgres: true, TypeMySQL: true, TypeMongoDB: true, TypeRedis: true,
	TypeJSON: true, TypeDate: true, TypeTimestamp: true, TypeDuration: true,
	TypeFile: true, TypeStringArray: true, TypeNumberArray: true,
	TypeURLArray: true, TypeCustom: true,
}

// Validator is the explicit tagged variant for caller-supplied conversion
// functions. Metadata travels as data on this record, never as properties
// attached to a function value.
type Validator struct {
	// Convert coerces the raw string into the final value. A returned error
	// becomes a validation failure for the key.
	Convert func(raw string) (interface{}, error)

	// Optional permits an absent value.
	Optional bool

	// Default is used when no resolver provides a value. Not re-converted.
	Default interface{}
}

// Definition is the canonical per-key declaration. It is created once per
// resolve call and treated as immutable during resolution.
type Definition struct {
	Type       Type        `yaml:"type"`
	Enum       []string    `yaml:"enum,omitempty"`
	Default    interface{} `yaml:"default,omitempty"`
	Optional   bool        `yaml:"optional,omitempty"`
	Pattern    string      `yaml:"pattern,omitempty"`
	Min        *float64    `yaml:"min,omitempty"`
	Max        *float64    `yaml:"max,omitempty"`
	AllowEmpty bool        `yaml:"allowEmpty,omitempty"`
	Separator  string      `yaml:"separator,omitempty"`
	SecretsDir string      `yaml:"secretsDir,omitempty"`

	// JSONSchema optionally constrains TypeJSON values to a JSON Schema
	// document (draft-07), given as its JSON text.
	JSONSchema string `yaml:"jsonSchema,omitempty"`

	Validator *Validator `yaml:"-"`
}

// HasDefault reports whether the definition carries a default value. A key
// with a default is never "missing", even when no resolver provides it.
func (d Definition) HasDefault() bool {
	return d.Default != nil
}

// Schema maps environment variable names to their canonical definitions.
type Schema map[string]Definition

// Keys returns the schema's key set in unspecified order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// ValidName is the accepted shape for environment variable names.
var ValidName = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// CheckNames verifies every schema key against ValidName. The first
// violation fails the whole call before any resolver is invoked.
func CheckNames(s Schema) error {
	for key := range s {
		if !ValidName.MatchString(key) {
			return typerrors.SchemaError{Key: key}
		}
	}
	return nil
}

// Normalize converts a user-facing spec into a canonical Schema. Each value
// may be:
//
//   - a Definition or *Definition (used as-is),
//   - a Validator (custom conversion with its own optional/default),
//   - a bool, int, or float64 literal (typed default),
//   - a []string (enum of allowed values, no default),
//   - a shorthand string, see ParseShorthand.
//
// An empty spec is valid and produces an empty schema.
func Normalize(spec map[string]interface{}) (Schema, error) {
	out := make(Schema, len(spec))

	for key, raw := range spec {
		switch v := raw.(type) {
		case Definition:
			out[key] = v
		case *Definition:
			out[key] = *v
		case Validator:
			out[key] = Definition{
				Type:      TypeCustom,
				Optional:  v.Optional,
				Default:   v.Default,
				Validator: &v,
			}
		case *Validator:
			out[key] = Definition{
				Type:      TypeCustom,
				Optional:  v.Optional,
				Default:   v.Default,
				Validator: v,
			}
		case bool:
			out[key] = Definition{Type: TypeBoolean, Default: v}
		case int:
			out[key] = Definition{Type: TypeNumber, Default: float64(v)}
		case int64:
			out[key] = Definition{Type: TypeNumber, Default: float64(v)}
		case float64:
			out[key] = Definition{Type: TypeNumber, Default: v}
		case []string:
			enum := make([]string, len(v))
			copy(enum, v)
			out[key] = Definition{Type: TypeString, Enum: enum}
		case string:
			out[key] = ParseShorthand(v)
		default:
			return nil, typerrors.ConfigError{
				Field:   key,
				Value:   raw,
				Message: fmt.Sprintf("unsupported schema value of type %T", raw),
			}
		}
	}

	return out, nil
}
