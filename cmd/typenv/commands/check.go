package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/systmms/typenv/pkg/schema"
)

func NewCheckCommand(opts *Options) *cobra.Command {
	var (
		schemaFile  string
		sourceSpecs []string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a schema file without contacting any source",
		Long: `Parse and normalize the schema file, reject malformed variable names,
and print the declared keys with their types. No source is loaded; --source
flags are parsed and listed so the planned order can be reviewed.

Examples:
  typenv check -f schema.yaml
  typenv check -f schema.yaml --source env --source dotenv:.env.local`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSchemaFile(schemaFile)
			if err != nil {
				return err
			}

			resolvers, err := parseSources(sourceSpecs)
			if err != nil {
				return err
			}

			sch, err := schema.Normalize(spec)
			if err != nil {
				return err
			}
			if err := schema.CheckNames(sch); err != nil {
				return err
			}

			keys := sch.Keys()
			sort.Strings(keys)

			for _, key := range keys {
				def := sch[key]
				line := fmt.Sprintf("%s: %s", key, def.Type)
				if def.Optional {
					line += " (optional)"
				}
				if def.HasDefault() {
					line += fmt.Sprintf(" (default: %v)", def.Default)
				}
				fmt.Println(line)
			}
			for i, r := range resolvers {
				fmt.Printf("source[%d]: %s\n", i, r.Name())
			}
			opts.Logger.Info("Schema OK: %d variable(s) declared", len(keys))
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemaFile, "schema", "f", "schema.yaml", "Schema file path")
	cmd.Flags().StringArrayVar(&sourceSpecs, "source", nil, "Planned source, listed without loading; repeatable")

	return cmd
}
