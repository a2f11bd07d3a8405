package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/typenv/internal/secure"
	"github.com/systmms/typenv/pkg/schema"
)

// maxTimestamp is 9999-12-31T23:59:59Z in unix seconds.
const maxTimestamp = 253402300799

var (
	durationRe = regexp.MustCompile(`^(\d+)([smhd])$`)
	emailRe    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	isoDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)
)

var durationUnits = map[string]int64{
	"s": 1000,
	"m": 60_000,
	"h": 3_600_000,
	"d": 86_400_000,
}

// schemePrefixes whitelists connection-string schemes per database type.
// No URL grammar beyond the scheme is checked.
var schemePrefixes = map[schema.Type][]string{
	schema.TypePostgres: {"postgres://", "postgresql://"},
	schema.TypeMySQL:    {"mysql://"},
	schema.TypeMongoDB:  {"mongodb://", "mongodb+srv://"},
	schema.TypeRedis:    {"redis://", "rediss://"},
}

// convert coerces a present raw string to the definition's type. Returned
// error messages are bare reasons; the caller prefixes the key.
func convert(key string, def schema.Definition, raw string) (interface{}, error) {
	switch def.Type {
	case schema.TypeString, "":
		return convertString(def, raw)
	case schema.TypeNumber:
		return convertNumber(def, raw)
	case schema.TypePort:
		return convertPort(raw)
	case schema.TypeBoolean:
		return convertBoolean(raw)
	case schema.TypeTimestamp:
		return convertTimestamp(raw)
	case schema.TypeDuration:
		return convertDuration(raw)
	case schema.TypeURL:
		return convertURL(raw, nil)
	case schema.TypeHTTP:
		return convertURL(raw, []string{"http", "https"})
	case schema.TypeHTTPS:
		return convertURL(raw, []string{"https"})
	case schema.TypeEmail:
		return convertEmail(raw)
	case schema.TypePostgres, schema.TypeMySQL, schema.TypeMongoDB, schema.TypeRedis:
		return convertScheme(def.Type, raw)
	case schema.TypeJSON:
		return convertJSON(def, raw)
	case schema.TypeDate:
		return convertDate(raw)
	case schema.TypeStringArray:
		return convertStringArray(def, raw), nil
	case schema.TypeNumberArray:
		return convertNumberArray(def, raw)
	case schema.TypeURLArray:
		return convertURLArray(def, raw)
	case schema.TypeFile:
		content, err := readSecretFile(raw)
		if err != nil {
			return nil, err
		}
		return content, nil
	case schema.TypeCustom:
		return convertCustom(def, raw)
	default:
		return nil, fmt.Errorf("unsupported type %q", def.Type)
	}
}

func convertString(def schema.Definition, raw string) (interface{}, error) {
	if raw == "" && !def.AllowEmpty {
		return nil, errors.New("must not be empty")
	}
	if def.Min != nil && float64(len(raw)) < *def.Min {
		return nil, fmt.Errorf("must be at least %d characters", int(*def.Min))
	}
	if def.Max != nil && float64(len(raw)) > *def.Max {
		return nil, fmt.Errorf("must be at most %d characters", int(*def.Max))
	}
	return raw, nil
}

func convertNumber(def schema.Definition, raw string) (interface{}, error) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("expected number, got %q", raw)
	}
	if def.Min != nil && n < *def.Min {
		return nil, fmt.Errorf("must be >= %v", *def.Min)
	}
	if def.Max != nil && n > *def.Max {
		return nil, fmt.Errorf("must be <= %v", *def.Max)
	}
	return n, nil
}

func convertPort(raw string) (interface{}, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("expected port number, got %q", raw)
	}
	if n < 1 || n > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", n)
	}
	return n, nil
}

func convertBoolean(raw string) (interface{}, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off", "":
		return false, nil
	}
	return nil, fmt.Errorf("expected boolean, got %q", raw)
}

func convertTimestamp(raw string) (interface{}, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Reject fractional timestamps explicitly.
		if _, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return nil, errors.New("Invalid timestamp (must be an integer)")
		}
		return nil, fmt.Errorf("Invalid timestamp %q", raw)
	}
	if n < 0 {
		return nil, errors.New("Invalid timestamp (must be >= 0)")
	}
	if n > maxTimestamp {
		return nil, fmt.Errorf("Timestamp too large (max %d)", int64(maxTimestamp))
	}
	return n, nil
}

// convertDuration parses "<integer><s|m|h|d>" into milliseconds.
func convertDuration(raw string) (interface{}, error) {
	m := durationRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("expected duration like \"5s\", \"2m\", \"1h\" or \"7d\", got %q", raw)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("expected duration like \"5s\", \"2m\", \"1h\" or \"7d\", got %q", raw)
	}
	return n * durationUnits[m[2]], nil
}

func convertURL(raw string, schemes []string) (interface{}, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("expected valid URL, got %q", raw)
	}
	if len(schemes) > 0 {
		for _, s := range schemes {
			if u.Scheme == s {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("URL scheme must be one of [%s], got %q", strings.Join(schemes, ", "), u.Scheme)
	}
	return raw, nil
}

func convertEmail(raw string) (interface{}, error) {
	if !emailRe.MatchString(raw) {
		return nil, fmt.Errorf("expected email address, got %q", raw)
	}
	return raw, nil
}

func convertScheme(t schema.Type, raw string) (interface{}, error) {
	prefixes := schemePrefixes[t]
	for _, p := range prefixes {
		if strings.HasPrefix(raw, p) {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("expected %s connection string starting with one of [%s]",
		t, strings.Join(prefixes, ", "))
}

func convertJSON(def schema.Definition, raw string) (interface{}, error) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, errors.New("Invalid JSON")
	}

	if def.JSONSchema != "" {
		result, err := gojsonschema.Validate(
			gojsonschema.NewStringLoader(def.JSONSchema),
			gojsonschema.NewStringLoader(raw),
		)
		if err != nil {
			return nil, fmt.Errorf("JSON Schema validation failed: %v", err)
		}
		if !result.Valid() {
			reasons := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				reasons = append(reasons, desc.String())
			}
			return nil, fmt.Errorf("JSON does not match schema: %s", strings.Join(reasons, "; "))
		}
	}

	return parsed, nil
}

func convertDate(raw string) (interface{}, error) {
	if !isoDateRe.MatchString(raw) {
		return nil, fmt.Errorf("expected ISO-8601 date, got %q", raw)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("expected valid date, got %q", raw)
}

func separator(def schema.Definition) string {
	if def.Separator != "" {
		return def.Separator
	}
	return ","
}

func convertStringArray(def schema.Definition, raw string) []string {
	parts := strings.Split(raw, separator(def))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func convertNumberArray(def schema.Definition, raw string) (interface{}, error) {
	parts := strings.Split(raw, separator(def))
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("array element %q is not a number", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func convertURLArray(def schema.Definition, raw string) (interface{}, error) {
	parts := strings.Split(raw, separator(def))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("array element %q is not a valid URL", p)
		}
		out = append(out, p)
	}
	return out, nil
}

// readSecretFile resolves the path relative to the working directory and
// returns the trimmed content. File bytes travel through guarded memory.
func readSecretFile(path string) (string, error) {
	content, err := secure.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	return content, nil
}

func convertCustom(def schema.Definition, raw string) (interface{}, error) {
	if def.Validator == nil || def.Validator.Convert == nil {
		return nil, errors.New("custom type declared without a validator")
	}
	value, err := def.Validator.Convert(raw)
	if err != nil {
		return nil, err
	}
	return value, nil
}
