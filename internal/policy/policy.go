// Package policy enforces provenance rules on resolved keys before they
// reach validation. Policies are secure by default: in production, values
// sourced from dotenv files are rejected unless explicitly allowed.
package policy

import (
	"fmt"
	"os"
	"strings"
)

// DotenvSourcePrefix tags resolver names that identify dotenv-backed
// sources. Policy matching is on the provenance source name, so caching
// wrappers must preserve the wrapped source's name.
const DotenvSourcePrefix = "dotenv"

// ProcessEnvSource is the direct process environment source name. It is
// never subject to the dotenv-in-production rule.
const ProcessEnvSource = "process_env"

// Policies declares the per-call security policy set.
type Policies struct {
	// AllowDotenvInProduction relaxes the dotenv-in-production rule.
	// Accepted values:
	//   nil        reject every dotenv-sourced key in production (default)
	//   bool       true allows all keys, false rejects all
	//   []string   allow only the listed keys
	AllowDotenvInProduction interface{}

	// EnforceAllowedSources restricts individual keys to an allow-list of
	// source names. Keys absent from the map are unrestricted.
	EnforceAllowedSources map[string][]string
}

// Enforcer evaluates policies against per-key provenance.
type Enforcer struct {
	// Production marks the process as running in a production environment.
	Production bool
}

// New creates an enforcer that detects production from the process
// environment markers.
func New() *Enforcer {
	return &Enforcer{Production: IsProduction()}
}

// IsProduction reports whether a process-wide environment marker identifies
// this process as running in production.
func IsProduction() bool {
	for _, name := range []string{"APP_ENV", "GO_ENV", "NODE_ENV"} {
		if os.Getenv(name) == "production" {
			return true
		}
	}
	return false
}

// Check evaluates the policies for one key given its provenance source.
// It returns a violation message, or "" when the key is permitted. Checks
// run strictly before validation; a rejected key never reaches the
// validator.
func (e *Enforcer) Check(key, source string, pol Policies) string {
	if msg := e.checkDotenv(key, source, pol); msg != "" {
		return msg
	}
	return e.checkAllowedSources(key, source, pol)
}

func (e *Enforcer) checkDotenv(key, source string, pol Policies) string {
	if !e.Production {
		return ""
	}
	if source == ProcessEnvSource || !strings.HasPrefix(source, DotenvSourcePrefix) {
		return ""
	}

	switch allow := pol.AllowDotenvInProduction.(type) {
	case bool:
		if allow {
			return ""
		}
	case []string:
		for _, allowed := range allow {
			if allowed == key {
				return ""
			}
		}
	}

	return fmt.Sprintf(
		"%s: loaded from dotenv source %q in production; set AllowDotenvInProduction to permit it",
		key, source)
}

func (e *Enforcer) checkAllowedSources(key, source string, pol Policies) string {
	allowed, restricted := pol.EnforceAllowedSources[key]
	if !restricted {
		return ""
	}

	for _, name := range allowed {
		if name == source {
			return ""
		}
	}

	return fmt.Sprintf("%s: must be sourced from one of [%s], got %q",
		key, strings.Join(allowed, ", "), source)
}
