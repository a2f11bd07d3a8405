package sources

import (
	"fmt"
	"strconv"
	"strings"
)

// Flatten converts a nested document into a flat SCREAMING_SNAKE keyed map.
// Nested object keys are joined with underscores and upper-cased; scalar
// leaves are stringified; nil leaves are dropped. Arrays are joined with
// commas so they round-trip through the string[] validator.
func Flatten(doc map[string]interface{}) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", doc)
	return out
}

func flattenInto(out map[string]string, prefix string, doc map[string]interface{}) {
	for key, value := range doc {
		name := strings.ToUpper(key)
		if prefix != "" {
			name = prefix + "_" + name
		}
		switch v := value.(type) {
		case nil:
			// absent, never an empty placeholder
		case map[string]interface{}:
			flattenInto(out, name, v)
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if item == nil {
					continue
				}
				parts = append(parts, stringify(item))
			}
			out[name] = strings.Join(parts, ",")
		default:
			out[name] = stringify(v)
		}
	}
}

func stringify(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case float64:
		// JSON numbers decode as float64; keep integral values undecorated.
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprint(n)
	}
}

// normalizeYAML rewrites yaml.v3's map[interface{}]interface{} decoding into
// the map[string]interface{} shape Flatten expects.
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
