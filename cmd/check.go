package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Runs one version check and exits",
		Long: `Fetches the map version page once, stores today's observation, records
and announces a change when the version differs from the previous one.
Exits non-zero when any step fails, so an external scheduler marks the run failed.`,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := appInstance.Close(cmd.Context()); cerr != nil && err == nil {
					err = fmt.Errorf("close app: %w", cerr)
				}
			}()

			result, err := appInstance.Check(cmd.Context())
			if err != nil {
				cmd.PrintErrf("check failed: %v\n", err)
				return err
			}
			cmd.Printf("%s: %s (date %s)\n", result.Outcome, result.Latest, result.Date)
			return nil
		},
	}
}
