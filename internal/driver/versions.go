package driver

import (
	"fmt"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
)

func Versions(cOpts *CommonOpts) *cobra.Command {
	opts := &versionsOpts{
		CommonOpts: cOpts,
	}

	cmd := &cobra.Command{
		Use:     "versions [--long]",
		Aliases: []string{"list-versions"},
		Short:   "List the GNAT versions published upstream.",
		Long: `List all GNAT versions for which a release exists in the configured repository, in ascending
order. Snapshot releases are included.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.versions(cmd)
		},
	}

	registerVersionsFlags(cmd, opts)

	return cmd
}

func registerVersionsFlags(cmd *cobra.Command, opts *versionsOpts) {
	cmd.Flags().BoolVarP(&opts.long, "long", "l", false, "Print the kind and release tag of each version.")
}

type versionsOpts struct {
	*CommonOpts

	long bool
}

func (o *versionsOpts) versions(cmd *cobra.Command) error {
	gh, err := o.catalog()
	if err != nil {
		return err
	}
	versions, err := gh.ListVersions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !o.long {
		for _, v := range versions {
			fmt.Fprintln(out, v)
		}
		return nil
	}

	rows := []string{"VERSION | KIND | TAG"}
	for _, v := range versions {
		rows = append(rows, fmt.Sprintf("%s | %s | %s", v, v.Kind(), v.Tag()))
	}
	fmt.Fprintln(out, columnize.SimpleFormat(rows))
	return nil
}
