package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	typenv "github.com/systmms/typenv"
	typerrors "github.com/systmms/typenv/internal/errors"
)

func NewResolveCommand(opts *Options) *cobra.Command {
	var (
		schemaFile  string
		sourceSpecs []string
		priority    string
		strict      bool
		interpolate bool
		enableAudit bool
		format      string
		reveal      bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve and validate variables against a schema",
		Long: `Merge variables from the given sources, validate them against the
schema file, and print the typed result.

Values are redacted by default; pass --reveal to print them.

Examples:
  # Validate the process environment
  typenv resolve -f schema.yaml

  # Layer a dotenv file over the process environment, last wins
  typenv resolve -f schema.yaml --source env --source dotenv:.env.local

  # Shell-exportable output
  typenv resolve -f schema.yaml --format env --reveal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSchemaFile(schemaFile)
			if err != nil {
				return err
			}

			resolvers, err := parseSources(sourceSpecs)
			if err != nil {
				return err
			}

			callOpts := []typenv.Option{
				typenv.WithLogger(opts.Logger),
				typenv.WithAudit(enableAudit),
			}
			if len(resolvers) > 0 {
				callOpts = append(callOpts, typenv.WithResolvers(resolvers...))
			}
			switch priority {
			case "first":
				callOpts = append(callOpts, typenv.WithPriority(typenv.First))
			case "last", "":
				callOpts = append(callOpts, typenv.WithPriority(typenv.Last))
			default:
				return typerrors.ConfigError{
					Field:      "priority",
					Value:      priority,
					Message:    "unknown priority",
					Suggestion: "Use 'first' or 'last'",
				}
			}
			if strict {
				callOpts = append(callOpts, typenv.WithStrict())
			}
			if interpolate {
				callOpts = append(callOpts, typenv.WithInterpolation())
			}

			result, err := typenv.Resolve(context.Background(), spec, callOpts...)
			if err != nil {
				return err
			}

			return printResult(result, format, reveal)
		},
	}

	cmd.Flags().StringVarP(&schemaFile, "schema", "f", "schema.yaml", "Schema file path")
	cmd.Flags().StringArrayVar(&sourceSpecs, "source", nil, "Ordered source (env, dotenv:<path>, json:<path>, yaml:<path>, http:<url>); repeatable")
	cmd.Flags().StringVar(&priority, "priority", "last", "Merge precedence: first or last")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on source errors instead of skipping the source")
	cmd.Flags().BoolVar(&interpolate, "interpolate", false, "Substitute ${VAR} references in merged values")
	cmd.Flags().BoolVar(&enableAudit, "audit", false, "Record audit events for this call")
	cmd.Flags().StringVar(&format, "format", "env", "Output format: env or json")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print values instead of redacting them")

	return cmd
}

func printResult(result *typenv.Result, format string, reveal bool) error {
	keys := make([]string, 0, len(result.Provenance))
	seen := make(map[string]bool)
	for key := range result.Values {
		keys = append(keys, key)
		seen[key] = true
	}
	for key := range result.Provenance {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	switch format {
	case "json":
		out := make(map[string]interface{}, len(keys))
		for _, key := range keys {
			value, ok := result.Lookup(key)
			if !ok {
				continue
			}
			if reveal {
				out[key] = value
			} else {
				out[key] = "[REDACTED]"
			}
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)

	case "env":
		for _, key := range keys {
			value, ok := result.Lookup(key)
			if !ok {
				continue
			}
			if reveal {
				fmt.Printf("%s=%v\n", key, value)
			} else {
				fmt.Printf("%s=[REDACTED]\n", key)
			}
		}
		return nil
	}

	return typerrors.ConfigError{
		Field:      "format",
		Value:      format,
		Message:    "unknown output format",
		Suggestion: "Use 'env' or 'json'",
	}
}
