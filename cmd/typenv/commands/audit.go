package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	typenv "github.com/systmms/typenv"
)

func NewAuditCommand(opts *Options) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Dump the process-wide audit log as JSON lines",
		Long: `Print every recorded audit event, oldest first, one JSON object per
line. The log is an in-memory ring holding the most recent events, so this
is only useful in the same process that ran resolves with auditing on.

Examples:
  typenv audit
  typenv audit --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			events := typenv.GetAuditLog(nil)

			encoder := json.NewEncoder(os.Stdout)
			for _, event := range events {
				if err := encoder.Encode(event); err != nil {
					return err
				}
			}

			if clear {
				typenv.ClearAuditLog()
				opts.Logger.Info("Audit log cleared (%d event(s) discarded)", len(events))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Discard all events after printing")

	return cmd
}
