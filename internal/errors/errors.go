package errors

import (
	"fmt"
	"strings"
)

// Issue codes attached to validation and policy failures.
const (
	CodeInvalidName     = "invalid_name"
	CodeMissingRequired = "missing_required"
	CodeInvalidValue    = "invalid_value"
	CodePolicyViolation = "policy_violation"
	CodeResolverFailed  = "resolver_failed"
)

// Issue describes a single per-key problem found during resolution.
// Message is the final user-facing line; Path identifies the offending key.
type Issue struct {
	Path    []string `json:"path,omitempty"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

// NewIssue builds an issue for a single key.
func NewIssue(key, message, code string) Issue {
	return Issue{Path: []string{key}, Message: message, Code: code}
}

// SchemaError reports a malformed environment variable name. It aborts a
// resolve call before any resolver is invoked.
type SchemaError struct {
	Key string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("Invalid environment variable name: %q (must match ^[A-Z_][A-Z0-9_]*$)", e.Key)
}

// ResolverError reports that a source failed to load. Under strict mode it
// fails the whole call; otherwise the source is skipped.
type ResolverError struct {
	Resolver string
	Err      error
}

func (e ResolverError) Error() string {
	return fmt.Sprintf("%s: %v", e.Resolver, e.Err)
}

func (e ResolverError) Unwrap() error {
	return e.Err
}

// AggregateError accumulates every per-key issue across a resolve call so a
// single failure reports all problems at once.
type AggregateError struct {
	Issues []Issue
}

func (e AggregateError) Error() string {
	lines := make([]string, 0, len(e.Issues)+1)
	lines = append(lines, fmt.Sprintf("Environment validation failed (%d issue(s)):", len(e.Issues)))
	for _, issue := range e.Issues {
		lines = append(lines, "  - "+issue.Message)
	}
	return strings.Join(lines, "\n")
}

// UserError carries a message with an optional suggestion for CLI display.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError reports a source or option misconfiguration.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  " + e.Suggestion
	}

	return msg
}

// SourceError enhances source load failures with remediation hints.
func SourceError(source string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s source error during %s", source, operation),
		Suggestion: sourceSuggestion(source, err),
		Err:        err,
	}
}

func sourceSuggestion(source string, err error) string {
	errStr := err.Error()

	switch {
	case strings.HasPrefix(source, "aws"):
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for the secret or parameter path"
		}
		if strings.Contains(errStr, "ResourceNotFoundException") {
			return "Verify the secret name and region"
		}
	case strings.HasPrefix(source, "gcp"):
		if strings.Contains(errStr, "PermissionDenied") || strings.Contains(errStr, "permission") {
			return "Grant roles/secretmanager.secretAccessor to the active credentials"
		}
		if strings.Contains(errStr, "NotFound") {
			return "Verify the project ID and secret name"
		}
	case strings.HasPrefix(source, "azure"):
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "AADSTS") {
			return "Run 'az login' or configure a managed identity"
		}
	case strings.HasPrefix(source, "keyring"):
		return "Verify the keyring service name and that the OS secret service is available"
	}

	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and source configuration"
	}

	return ""
}
