package typenv

import (
	"strings"
	"time"

	"github.com/systmms/typenv/internal/audit"
	"github.com/systmms/typenv/internal/merge"
)

// Provenance records where a value came from.
type Provenance = merge.Provenance

// Result holds a successful resolve: validated, typed values plus the
// provenance of every key that a source supplied.
type Result struct {
	// Values maps declared keys to their coerced values. With a nested
	// delimiter configured, keys containing it are restructured into
	// nested lower-cased maps instead.
	Values map[string]interface{}

	// Provenance maps keys to the source that supplied them. Keys filled
	// from schema defaults have no provenance entry.
	Provenance map[string]Provenance

	// AuditToken identifies this call's audit session. Empty when auditing
	// was disabled for the call.
	AuditToken audit.SessionToken

	auditLog *audit.Log

	// flatValues keeps the flat key space when Values is nested, so typed
	// getters keep working with the original keys.
	flatValues map[string]interface{}
}

// Lookup returns the value for key and whether it is present. With a
// nested delimiter configured, use the original flat key.
func (r *Result) Lookup(key string) (interface{}, bool) {
	v, ok := r.flat()[key]
	return v, ok
}

// String returns the value for key as a string, or "" when absent or not
// a string.
func (r *Result) String(key string) string {
	v, _ := r.Lookup(key)
	s, _ := v.(string)
	return s
}

// Int returns the value for key as an int. Number values are stored as
// float64 and truncated; ports are stored as int; timestamps and
// durations as int64.
func (r *Result) Int(key string) int {
	switch v, _ := r.Lookup(key); v := v.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the value for key as a float64, or 0 when absent.
func (r *Result) Float(key string) float64 {
	switch v, _ := r.Lookup(key); v := v.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the value for key as a bool, or false when absent.
func (r *Result) Bool(key string) bool {
	v, _ := r.Lookup(key)
	b, _ := v.(bool)
	return b
}

// Duration returns a duration-typed value. Durations are stored as
// integer milliseconds.
func (r *Result) Duration(key string) time.Duration {
	switch v, _ := r.Lookup(key); v := v.(type) {
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v) * time.Millisecond
	}
	return 0
}

// Strings returns a string-array-typed value, or nil when absent.
func (r *Result) Strings(key string) []string {
	v, _ := r.Lookup(key)
	s, _ := v.([]string)
	return s
}

// flat returns the flat key space even when Values is nested.
func (r *Result) flat() map[string]interface{} {
	if r.flatValues != nil {
		return r.flatValues
	}
	return r.Values
}

// nestValues restructures flat keys containing delim into nested
// lower-cased maps. DATABASE__HOST with delimiter "__" becomes
// {"database": {"host": ...}}. Keys without the delimiter stay top-level
// under their original name. On a path collision (a segment that is both
// a leaf and a branch) the later key in sorted order wins the slot.
func nestValues(values map[string]interface{}, delim string) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for key, value := range values {
		if !strings.Contains(key, delim) {
			out[key] = value
			continue
		}
		segments := strings.Split(key, delim)
		node := out
		for i, seg := range segments {
			seg = strings.ToLower(seg)
			if i == len(segments)-1 {
				node[seg] = value
				break
			}
			child, ok := node[seg].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[seg] = child
			}
			node = child
		}
	}
	return out
}
