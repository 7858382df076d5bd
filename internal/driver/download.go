package driver

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/checksum"
	"github.com/gnatfetch/gnatfetch/internal/flock"
	"github.com/gnatfetch/gnatfetch/internal/logger"
)

func Download(cOpts *CommonOpts) *cobra.Command {
	opts := &downloadOpts{
		CommonOpts: cOpts,
	}

	cmd := &cobra.Command{
		Use:   "download <version> [--dest=<dir>] [--platform=<platform>] [--arch=<arch>] [--progress]",
		Short: "Download and verify the GNAT archive for a version.",
		Long: `Download the GNAT archive for the given version and target platform together with its '.sha256'
checksum file, then verify the archive against it. The path of the archive is printed on success.

When the checksum does not match the archive is left in place for inspection and the command fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("progress") {
				opts.progress = opts.Config.Progress
			}
			p, err := opts.download(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	registerDownloadFlags(cmd, opts)

	return cmd
}

func registerDownloadFlags(cmd *cobra.Command, opts *downloadOpts) {
	cmd.Flags().StringVar(&opts.dest, "dest", ".", "Directory in which to store the archive and its checksum file.")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Show the progress of the archive download.")
	registerTargetFlags(cmd, &opts.targetOpts)
}

type downloadOpts struct {
	*CommonOpts
	targetOpts

	dest     string
	progress bool
}

func (o *downloadOpts) download(cmd *cobra.Command, versionString string) (_ string, err error) {
	ctx := cmd.Context()

	asset, err := o.resolveAsset(cmd, versionString, o.targetOpts)
	if err != nil {
		return "", err
	}

	d, err := o.downloader(ctx)
	if err != nil {
		return "", err
	}

	dest, err := filepath.Abs(o.dest)
	if err != nil {
		return "", err
	}
	archivePath := filepath.Join(dest, asset.Filename)
	checksumPath := filepath.Join(dest, asset.ChecksumFilename())
	log := o.Log.With(zap.String("archive", archivePath))

	if err = o.Storage.MkdirAll(dest, 0o755); err != nil {
		log.Error("Unable to create destination directory.", zap.Error(err))
		return "", err
	}
	lock, err := flock.Acquire(ctx, o.LogBuilder.Domain(logger.LockDomain), archivePath)
	if err != nil {
		return "", err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			err = multierror.Append(err, releaseErr)
		}
	}()

	log.Debug("Downloading archive.", zap.String("url", asset.DownloadURL))
	if err = d.Fetch(ctx, asset.DownloadURL, archivePath, o.fetchOptions(o.progress)); err != nil {
		return "", err
	}
	log.Debug("Downloading checksum.", zap.String("url", asset.ChecksumURL))
	if err = d.Fetch(ctx, asset.ChecksumURL, checksumPath, o.fetchOptions(false)); err != nil {
		return "", err
	}

	res, err := checksum.NewVerifier(o.LogBuilder, o.Storage).Verify(archivePath, checksumPath)
	if err != nil {
		if errors.Is(err, checksum.ErrChecksumMismatch) {
			log.Error("Downloaded archive is corrupt. It was left in place for inspection.")
		}
		return "", err
	}
	log.Info("Downloaded archive.", zap.Stringer("checksum", res))
	return archivePath, nil
}
