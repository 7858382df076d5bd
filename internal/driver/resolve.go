package driver

import (
	"fmt"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/artifact"
	"github.com/gnatfetch/gnatfetch/internal/config"
)

func Resolve(cOpts *CommonOpts) *cobra.Command {
	opts := &resolveOpts{
		CommonOpts: cOpts,
	}

	cmd := &cobra.Command{
		Use:   "resolve <version> [--platform=<platform>] [--arch=<arch>]",
		Short: "Show which archive would be downloaded for a GNAT version.",
		Long: `Resolve a GNAT version to the archive published for the target platform and print where it and
its checksum can be downloaded from. Stable versions ('15.2.0-1') are resolved without contacting
GitHub. Snapshot versions ('15.0.0-snapshot') require a lookup of the release's assets.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.resolveAsset(cmd, args[0], opts.targetOpts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), columnize.SimpleFormat([]string{
				"Tag: | " + a.Tag,
				"Filename: | " + a.Filename,
				"Download: | " + a.DownloadURL,
				"Checksum: | " + a.ChecksumURL,
			}))
			return nil
		},
	}

	registerTargetFlags(cmd, &opts.targetOpts)

	return cmd
}

type targetOpts struct {
	platform string
	arch     string
}

func registerTargetFlags(cmd *cobra.Command, opts *targetOpts) {
	cmd.Flags().StringVar(&opts.platform, "platform", "", "Target platform (linux, darwin, windows64). Defaults to the host's.")
	cmd.Flags().StringVar(&opts.arch, "arch", "", "Target architecture (x86_64, aarch64). Defaults to the host's.")
}

type resolveOpts struct {
	*CommonOpts
	targetOpts
}

func (o *CommonOpts) resolveAsset(cmd *cobra.Command, versionString string, target targetOpts) (artifact.Asset, error) {
	pa, err := config.ResolvePlatform(target.platform, target.arch)
	if err != nil {
		o.Log.Error("Unable to determine target platform.", zap.Error(err))
		return artifact.Asset{}, err
	}

	r, err := o.resolver()
	if err != nil {
		return artifact.Asset{}, err
	}
	return r.Resolve(cmd.Context(), versionString, pa)
}
