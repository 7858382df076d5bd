package driver

import (
	"context"

	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/artifact"
	"github.com/gnatfetch/gnatfetch/internal/backend"
)

func (c *CommonOpts) retryPolicy() backend.RetryPolicy {
	return backend.NewRetryPolicy(c.Config.Retry)
}

func (c *CommonOpts) catalog() (*backend.GitHub, error) {
	return backend.NewGitHub(c.LogBuilder, &backend.GitHubConfig{
		GitHubSlug:    c.Config.Repository,
		GitHubBaseURL: c.Config.GitHubBaseURL,
		GitHubToken:   c.Credentials.Token(),
	}, c.retryPolicy())
}

func (c *CommonOpts) resolver() (*artifact.Resolver, error) {
	gh, err := c.catalog()
	if err != nil {
		return nil, err
	}
	return artifact.NewResolver(c.LogBuilder, gh, artifact.NewLocator(c.Config.ReleasesBase())), nil
}

// downloader sets up the sources required by the configured download root. Cloud storage clients
// are only created when a mirror needs them as they pick up credentials from the environment.
func (c *CommonOpts) downloader(ctx context.Context) (*backend.Downloader, error) {
	d := backend.NewDownloader(c.LogBuilder, c.Storage, c.retryPolicy())

	m := c.Config.Mirror
	switch {
	case m == nil:
	case m.S3Bucket != "":
		s3, err := backend.NewS3(ctx, c.LogBuilder)
		if err != nil {
			return nil, err
		}
		d.RegisterSource("s3", s3)
	case m.GCSBucket != "":
		gcs, err := backend.NewGCS(ctx, c.LogBuilder)
		if err != nil {
			return nil, err
		}
		d.RegisterSource("gs", gcs)
	}
	return d, nil
}

// fetchOptions only attaches the GitHub token when downloading from GitHub itself. It is never sent to
// a mirror.
func (c *CommonOpts) fetchOptions(progress bool) backend.FetchOptions {
	opts := backend.FetchOptions{ShowProgress: progress}
	if c.Config.Mirror == nil {
		opts.AuthToken = c.Credentials.Token()
	} else if c.Credentials.IsSet() {
		c.Log.Debug("Not forwarding GitHub credentials to mirror.", zap.Stringer("mirror", c.Config.Mirror))
	}
	return opts
}
