package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/config"
	"github.com/gnatfetch/gnatfetch/internal/logger"
	"github.com/gnatfetch/gnatfetch/internal/version"
)

const releasesPageSize = 100

type GitHubConfig struct {
	GitHubSlug    string
	GitHubBaseURL string
	// GitHubToken authenticates API requests when set.
	GitHubToken string
}

func (c GitHubConfig) String() string {
	b := c.GitHubBaseURL
	if b == "" {
		b = "github.com"
	}
	return fmt.Sprintf("%s/%s", b, c.GitHubSlug)
}

// GitHub is the release catalog of a GitHub repository.
type GitHub struct {
	log    *zap.Logger
	client *github.Client

	owner string
	repo  string

	GitHubConfig
}

// Release is the subset of a GitHub release needed to locate its artifacts.
type Release struct {
	Tag    string
	Assets []ReleaseAsset
}

type ReleaseAsset struct {
	Name        string
	DownloadURL string
}

// NewGitHub sets up a catalog client. API requests go through a transport that retries according to
// the given policy.
func NewGitHub(logBuilder *logger.Builder, c *GitHubConfig, retry RetryPolicy) (*GitHub, error) {
	log := logBuilder.Domain(logger.GitHubDomain).With(zap.String("repository", c.GitHubSlug))

	owner, repo, err := config.SplitRepository(c.GitHubSlug)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &RetryTransport{
			Base:   http.DefaultTransport,
			Policy: retry,
			Log:    log,
		},
	}
	client := github.NewClient(httpClient)
	if c.GitHubToken != "" {
		client = client.WithAuthToken(c.GitHubToken)
	}
	if c.GitHubBaseURL != "" {
		if client, err = client.WithEnterpriseURLs(c.GitHubBaseURL, c.GitHubBaseURL); err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", c.GitHubBaseURL, err)
		}
	}

	return &GitHub{
		log:          log,
		client:       client,
		owner:        owner,
		repo:         repo,
		GitHubConfig: *c,
	}, nil
}

// ListVersions returns the versions of all releases whose tag follows the 'gnat-<version>' scheme,
// sorted ascending. Releases with other tags are skipped, as are repeated tags.
func (s *GitHub) ListVersions(ctx context.Context) ([]version.Version, error) {
	var (
		versions []version.Version
		seen     = map[string]bool{}
		opts     = &github.ListOptions{PerPage: releasesPageSize}
	)
	for {
		releases, resp, err := s.client.Repositories.ListReleases(ctx, s.owner, s.repo, opts)
		if err != nil {
			s.log.Error("Failed to list releases.", zap.Int("page", opts.Page), zap.Error(err))
			return nil, fmt.Errorf("%w: unable to list releases for %q: %w", ErrCatalogUnavailable, s.GitHubSlug, err)
		}

		for _, r := range releases {
			tag := r.GetTagName()
			if seen[tag] {
				continue
			}
			v, err := version.ParseTag(tag)
			if err != nil {
				s.log.Debug("Ignoring release with unrecognised tag.", zap.String("tag", tag))
				continue
			}
			seen[tag] = true
			versions = append(versions, v)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	version.Sort(versions)
	s.log.Debug("Listed release versions.", zap.Int("count", len(versions)))
	return versions, nil
}

// LatestStable returns the highest non-snapshot version in the catalog.
func (s *GitHub) LatestStable(ctx context.Context) (version.Version, error) {
	versions, err := s.ListVersions(ctx)
	if err != nil {
		return version.Version{}, err
	}
	v, err := version.LatestStable(versions)
	if err != nil {
		return version.Version{}, fmt.Errorf("%w in %q", err, s.GitHubSlug)
	}
	return v, nil
}

// LookupByTag fetches the asset listing of a single release.
func (s *GitHub) LookupByTag(ctx context.Context, tag string) (*Release, error) {
	log := s.log.With(zap.String("tag", tag))

	r, resp, err := s.client.Repositories.GetReleaseByTag(ctx, s.owner, s.repo, tag)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			log.Error("No release found for tag.")
			return nil, fmt.Errorf("%w: repository %q has no release tagged %q", ErrReleaseNotFound, s.GitHubSlug, tag)
		}
		log.Error("Failed to look up release.", zap.Error(err))
		return nil, fmt.Errorf("%w: unable to look up release %q of %q: %w", ErrCatalogUnavailable, tag, s.GitHubSlug, err)
	}

	rel := &Release{Tag: r.GetTagName()}
	for _, a := range r.Assets {
		rel.Assets = append(rel.Assets, ReleaseAsset{
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}
	log.Debug("Looked up release.", zap.Int("assets", len(rel.Assets)))
	return rel, nil
}
