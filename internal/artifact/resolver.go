package artifact

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/backend"
	"github.com/gnatfetch/gnatfetch/internal/config"
	"github.com/gnatfetch/gnatfetch/internal/logger"
	"github.com/gnatfetch/gnatfetch/internal/version"
)

// ReleaseLookup is the part of the release catalog needed to discover snapshot archives.
type ReleaseLookup interface {
	LookupByTag(ctx context.Context, tag string) (*backend.Release, error)
}

var _ ReleaseLookup = &backend.GitHub{}

type Resolver struct {
	log     *zap.Logger
	catalog ReleaseLookup
	locator *Locator
}

func NewResolver(logBuilder *logger.Builder, catalog ReleaseLookup, locator *Locator) *Resolver {
	return &Resolver{
		log:     logBuilder.Domain(logger.ResolveDomain),
		catalog: catalog,
		locator: locator,
	}
}

// Resolve determines the archive to download for the given version and platform. Stable versions
// have a predictable filename and are resolved offline. Snapshot filenames embed a build date so the
// release's asset listing has to be consulted.
func (r *Resolver) Resolve(ctx context.Context, versionString string, target config.PlatformArch) (Asset, error) {
	log := r.log.With(zap.String("version", versionString), zap.Stringer("target", target))

	v, err := version.Parse(versionString)
	if err != nil {
		log.Error("Invalid version requested.", zap.Error(err))
		return Asset{}, err
	}

	if !v.IsSnapshot() {
		filename := fmt.Sprintf("gnat-%s-%s-%s.tar.gz", target.Arch, target.Platform, v)
		log.Debug("Resolved stable archive.", zap.String("filename", filename))
		return r.locator.Locate(v.Tag(), filename)
	}

	release, err := r.catalog.LookupByTag(ctx, v.Tag())
	if err != nil {
		return Asset{}, err
	}

	pattern := snapshotPattern(v, target)
	for _, a := range release.Assets {
		if pattern.MatchString(a.Name) {
			log.Debug("Resolved snapshot archive.", zap.String("filename", a.Name))
			return r.locator.Locate(v.Tag(), a.Name)
		}
	}
	log.Error("No snapshot archive available for target.", zap.Int("assets", len(release.Assets)))
	return Asset{}, fmt.Errorf("%w: release %q has no archive for %s", ErrNoMatchingSnapshotAsset, v.Tag(), target)
}

func snapshotPattern(v version.Version, target config.PlatformArch) *regexp.Regexp {
	prefix := fmt.Sprintf("gnat-%s-%s-%s-", target.Arch, target.Platform, v.Core())
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `[0-9A-Za-z._]+\.tar\.gz$`)
}
