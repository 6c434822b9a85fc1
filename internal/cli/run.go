package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"NewsRelay/internal/usecase"
)

func newRunCommand(open opener) *cobra.Command {
	var opts usecase.InvokeOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform one gated invocation and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, runErr := rt.RunOnce(cmd.Context(), opts)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "bypass start time, cooldown and daily quota")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "evaluate sources without persisting anything")
	return cmd
}
