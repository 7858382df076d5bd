package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/logger"
)

// Downloader retrieves the content behind a URL into a local file. The URL scheme selects the
// Source used for the transfer.
type Downloader struct {
	log      *zap.Logger
	storage  billy.Filesystem
	retry    RetryPolicy
	sources  map[string]Source
	progress io.Writer
}

// NewDownloader writes to the given filesystem, or to the host's if nil. Sources for 'http', 'https'
// and 'file' URLs are registered by default.
func NewDownloader(logBuilder *logger.Builder, fs billy.Filesystem, retry RetryPolicy) *Downloader {
	if fs == nil {
		fs = osfs.New("/")
	}
	web := NewHTTPS(logBuilder, nil)
	return &Downloader{
		log:     logBuilder.Domain(logger.HTTPSDomain),
		storage: fs,
		retry:   retry,
		sources: map[string]Source{
			"http":  web,
			"https": web,
			"file":  NewFileSystem(logBuilder, fs),
		},
		progress: os.Stderr,
	}
}

// RegisterSource makes the downloader use src for URLs with the given scheme.
func (d *Downloader) RegisterSource(scheme string, src Source) {
	d.sources[scheme] = src
}

// SetProgressOutput changes where progress is rendered when requested. Defaults to stderr.
func (d *Downloader) SetProgressOutput(w io.Writer) {
	d.progress = w
}

// Fetch downloads rawURL to destinationPath. Transient failures are retried within the bounds of the
// retry policy; anything else fails immediately. On failure a partially written file is removed. A file
// that no attempt got to open is left untouched.
func (d *Downloader) Fetch(ctx context.Context, rawURL string, destinationPath string, opts FetchOptions) error {
	log := d.log.With(zap.String("url", rawURL), zap.String("destination", destinationPath))

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid url %q: %w", ErrDownloadFailed, rawURL, err)
	}
	src, ok := d.sources[u.Scheme]
	if !ok {
		log.Error("No source available for URL scheme.", zap.String("scheme", u.Scheme))
		return fmt.Errorf("%w: %q in %q", ErrUnsupportedScheme, u.Scheme, rawURL)
	}

	var (
		attempt int
		written bool
	)
	op := func() error {
		attempt++
		err := d.fetchOnce(ctx, log.With(zap.Int("attempt", attempt)), src, u, destinationPath, opts, &written)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("Download attempt failed, retrying.", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}

	if err = backoff.RetryNotify(op, d.retry.backOff(ctx), notify); err != nil {
		log.Error("Download failed.", zap.Int("attempts", attempt), zap.Error(err))
		var result error = fmt.Errorf("%w: %s after %d attempt(s): %w", ErrDownloadFailed, rawURL, attempt, err)
		if !written {
			return result
		}
		if rmErr := d.storage.Remove(destinationPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			result = multierror.Append(result, fmt.Errorf("unable to remove partial download %q: %w", destinationPath, rmErr))
		}
		return result
	}
	log.Debug("Download complete.", zap.Int("attempts", attempt))
	return nil
}

func (d *Downloader) fetchOnce(
	ctx context.Context,
	log *zap.Logger,
	src Source,
	location *url.URL,
	destinationPath string,
	opts FetchOptions,
	written *bool,
) (err error) {
	log.Debug("Opening remote content.", zap.Stringer("source", src))
	content, size, err := src.Open(ctx, location, opts)
	if err != nil {
		return err
	}
	defer content.Close()

	if err = d.storage.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		log.Error("Unable to create destination directory.", zap.Error(err))
		return err
	}
	dst, err := d.storage.OpenFile(destinationPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		log.Error("Unable to open destination file.", zap.Error(err))
		return err
	}
	*written = true
	defer func() {
		if closeErr := dst.Close(); err == nil && closeErr != nil {
			log.Error("Failed to correctly close destination file.", zap.Error(closeErr))
			err = closeErr
		}
	}()

	var r io.Reader = transientReader{r: content}
	if opts.ShowProgress {
		p := newProgressReader(r, d.progress, path.Base(location.Path), size)
		defer p.finish()
		r = p
	}

	n, err := io.Copy(dst, r)
	if err != nil {
		log.Debug("Transfer interrupted.", zap.Int64("bytes", n), zap.Error(err))
		return err
	}
	if size >= 0 && n != size {
		return markTransient(fmt.Errorf("short transfer: received %d of %d bytes", n, size))
	}
	log.Debug("Transferred content.", zap.Int64("bytes", n))
	return nil
}
