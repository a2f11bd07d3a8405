package schema

import (
	"strconv"
	"strings"
)

// ParseShorthand parses the compact string form of a definition:
//
//	"<type>"            bare type tag
//	"<type>?"           optional
//	"<type>:<default>"  default value, parsed per type
//	"<type>:/<regex>/"  pattern constraint
//
// Pattern and default are mutually exclusive in the shorthand form; the
// canonical Definition is needed for both at once. An unrecognized type tag
// yields a plain string definition, so "hello" declares a required string.
func ParseShorthand(s string) Definition {
	var def Definition

	typePart := s
	rest := ""
	if i := strings.Index(s, ":"); i >= 0 {
		typePart = s[:i]
		rest = s[i+1:]
	}

	if strings.HasSuffix(typePart, "?") {
		def.Optional = true
		typePart = strings.TrimSuffix(typePart, "?")
	}

	t := Type(typePart)
	if !knownTypes[t] {
		t = TypeString
	}
	def.Type = t

	if rest == "" {
		return def
	}

	if len(rest) >= 2 && strings.HasPrefix(rest, "/") && strings.HasSuffix(rest, "/") {
		def.Pattern = rest[1 : len(rest)-1]
		return def
	}

	def.Default = parseShorthandDefault(t, rest)
	return def
}

// parseShorthandDefault coerces the textual default to the declared type so
// that, e.g., "port:8080" defaults to the number 8080 rather than the string
// "8080". Unparseable defaults are kept as strings and surface later as
// validation errors instead of silently wrong values.
func parseShorthandDefault(t Type, raw string) interface{} {
	switch t {
	case TypeNumber, TypePort, TypeTimestamp:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
		return raw
	case TypeBoolean:
		return raw == "true"
	default:
		return raw
	}
}
