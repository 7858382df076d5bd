package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnatfetch/gnatfetch/internal/config"
	"github.com/gnatfetch/gnatfetch/internal/driver"
	"github.com/gnatfetch/gnatfetch/internal/logger"
)

func main() {
	opts := driver.NewCommonOpts()

	rootCmd := &cobra.Command{
		Use: config.DriverName,
		Long: fmt.Sprintf(`Resolve, download and verify GNAT compiler toolchains.

Versions are looked up in the GitHub releases of the configured repository (%s by
default). Archives are downloaded from the release assets, or from a mirror when one is configured,
and checked against their published SHA-256 checksum.

Configuration is read from '%s' in the user's configuration directory and in
the system configuration directory. A GitHub token is taken from the GITHUB_API_TOKEN or
GITHUB_TOKEN environment variables when set.`, config.DefaultRepository, config.ConfigFileName),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.Parse()
		},
	}

	registerRootFlags(rootCmd, opts)

	rootCmd.AddCommand(
		driver.Download(opts),
		driver.Latest(opts),
		driver.Resolve(opts),
		driver.Versions(opts),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		cancel()
		os.Exit(1)
	}
}

func registerRootFlags(cmd *cobra.Command, opts *driver.CommonOpts) {
	cmd.PersistentFlags().StringSliceVarP(
		&opts.Verbose,
		"verbose",
		"v",
		nil,
		fmt.Sprintf("Verbose output for the given logging domains, one of: %s.", strings.Join(logger.Domains(), ", ")),
	)
	cmd.Flag("verbose").NoOptDefVal = "all"
}
