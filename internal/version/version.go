// Package version models the GNAT release version identifiers: 'MAJOR.MINOR.PATCH', optionally
// followed by either a numeric build suffix ('15.2.0-1') or the '-snapshot' marker.
package version

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	TagPrefix = "gnat-"

	snapshotSuffix = "snapshot"
)

var (
	ErrMalformedVersion     = errors.New("malformed version")
	ErrNoStableVersionFound = errors.New("no stable version found")
)

type Version struct {
	Major uint64
	Minor uint64
	Patch uint64

	build    uint64
	hasBuild bool
	snapshot bool

	raw string
}

// Parse reads a version string following the 'MAJOR.MINOR.PATCH[-BUILD]' or
// 'MAJOR.MINOR.PATCH-snapshot' grammar.
func Parse(s string) (Version, error) {
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: %v", ErrMalformedVersion, s, err)
	}
	if sv.Metadata() != "" {
		return Version{}, fmt.Errorf("%w %q: build metadata is not supported", ErrMalformedVersion, s)
	}

	v := Version{
		Major: sv.Major(),
		Minor: sv.Minor(),
		Patch: sv.Patch(),
		raw:   s,
	}
	switch pre := sv.Prerelease(); {
	case pre == "":
	case pre == snapshotSuffix:
		v.snapshot = true
	default:
		b, err := strconv.ParseUint(pre, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w %q: suffix must be a build number or %q", ErrMalformedVersion, s, snapshotSuffix)
		}
		v.build = b
		v.hasBuild = true
	}
	return v, nil
}

// ParseTag parses a release tag of the form 'gnat-<version>'.
func ParseTag(tag string) (Version, error) {
	s, ok := strings.CutPrefix(tag, TagPrefix)
	if !ok {
		return Version{}, fmt.Errorf("%w: tag %q does not start with %q", ErrMalformedVersion, tag, TagPrefix)
	}
	return Parse(s)
}

func (v Version) String() string { return v.raw }

func (v Version) Tag() string { return TagPrefix + v.raw }

func (v Version) IsSnapshot() bool { return v.snapshot }

// Build returns the build number of stable point releases.
func (v Version) Build() (uint64, bool) { return v.build, v.hasBuild }

// Core is the 'MAJOR.MINOR.PATCH' part of the version.
func (v Version) Core() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Kind is a short human-readable description of the release type.
func (v Version) Kind() string {
	switch {
	case v.snapshot:
		return "snapshot"
	case v.hasBuild:
		return "stable (build " + strconv.FormatUint(v.build, 10) + ")"
	default:
		return "stable"
	}
}

// Compare orders versions on their numeric '(major, minor, patch)' triple only. Build numbers and
// the snapshot marker do not take part.
func Compare(a Version, b Version) int {
	for _, p := range [][2]uint64{{a.Major, b.Major}, {a.Minor, b.Minor}, {a.Patch, b.Patch}} {
		switch {
		case p[0] < p[1]:
			return -1
		case p[0] > p[1]:
			return 1
		}
	}
	return 0
}

// Sort orders versions ascending. Versions with an identical triple keep their relative order.
func Sort(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool { return Compare(versions[i], versions[j]) < 0 })
}

// LatestStable returns the highest non-snapshot version. Among versions with an identical triple the
// first one encountered wins.
func LatestStable(versions []Version) (Version, error) {
	var (
		latest Version
		found  bool
	)
	for _, v := range versions {
		if v.snapshot {
			continue
		}
		if !found || Compare(v, latest) > 0 {
			latest = v
			found = true
		}
	}
	if !found {
		return Version{}, ErrNoStableVersionFound
	}
	return latest, nil
}
