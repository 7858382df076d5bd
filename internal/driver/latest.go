package driver

import (
	"fmt"

	"github.com/spf13/cobra"
)

func Latest(opts *CommonOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the latest stable GNAT version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gh, err := opts.catalog()
			if err != nil {
				return err
			}
			v, err := gh.LatestStable(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}
