package sources

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Dotenv reads a .env file. Its name carries the "dotenv" tag that the
// production policy matches on, plus the path for provenance.
type Dotenv struct {
	path string
}

// NewDotenv creates a dotenv file source for the given path.
func NewDotenv(path string) *Dotenv {
	return &Dotenv{path: path}
}

// Name implements resolver.Resolver.
func (d *Dotenv) Name() string {
	return "dotenv:" + d.path
}

// Metadata implements resolver.Resolver.
func (d *Dotenv) Metadata() map[string]interface{} {
	return map[string]interface{}{"path": d.path}
}

// Load implements resolver.Resolver.
func (d *Dotenv) Load(ctx context.Context) (map[string]string, error) {
	return d.LoadSync()
}

// LoadSync implements resolver.SyncResolver.
func (d *Dotenv) LoadSync() (map[string]string, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		key, value, ok, err := parseDotenvLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", d.path, lineNo, err)
		}
		if ok {
			out[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseDotenvLine handles comments, "export " prefixes, single and double
// quoting, and trailing inline comments on unquoted values. Double-quoted
// values unescape \n, \t, \" and \\.
func parseDotenvLine(line string) (key, value string, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false, nil
	}

	trimmed = strings.TrimPrefix(trimmed, "export ")
	k, v, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false, fmt.Errorf("malformed line %q", line)
	}

	k = strings.TrimSpace(k)
	v = strings.TrimSpace(v)

	switch {
	case strings.HasPrefix(v, `"`):
		if len(v) < 2 || !strings.HasSuffix(v, `"`) {
			return "", "", false, fmt.Errorf("unterminated double quote")
		}
		v = v[1 : len(v)-1]
		v = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`).Replace(v)
	case strings.HasPrefix(v, "'"):
		if len(v) < 2 || !strings.HasSuffix(v, "'") {
			return "", "", false, fmt.Errorf("unterminated single quote")
		}
		v = v[1 : len(v)-1]
	default:
		if i := strings.Index(v, " #"); i >= 0 {
			v = strings.TrimSpace(v[:i])
		}
	}

	return k, v, true, nil
}
