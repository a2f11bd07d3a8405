package merge

import "regexp"

var interpolationRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate substitutes ${VAR} references in every value from the merged
// map. Substitution is a single pass over the pre-interpolation snapshot:
// references to other references are not chased, self-references cannot
// recurse, and unresolved references remain as literal text.
func Interpolate(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for key, value := range env {
		out[key] = interpolationRef.ReplaceAllStringFunc(value, func(ref string) string {
			name := ref[2 : len(ref)-1]
			if replacement, ok := env[name]; ok {
				return replacement
			}
			return ref
		})
	}
	return out
}
