// Package artifact maps a requested GNAT version onto the concrete archive published for a platform
// and on the URLs from which it and its checksum can be retrieved.
package artifact

import (
	"errors"
	"fmt"
	"strings"
)

const checksumSuffix = ".sha256"

var (
	ErrMalformedAsset          = errors.New("malformed asset")
	ErrNoMatchingSnapshotAsset = errors.New("no matching snapshot asset")
)

// Asset is a downloadable archive together with the location of its checksum sidecar.
type Asset struct {
	Tag         string
	Filename    string
	DownloadURL string
	ChecksumURL string
}

func (a Asset) ChecksumFilename() string { return a.Filename + checksumSuffix }

// Locator builds download URLs below a release root laid out as '<root>/<tag>/<filename>'.
type Locator struct {
	base string
}

func NewLocator(base string) *Locator {
	return &Locator{base: strings.TrimSuffix(base, "/")}
}

func (l *Locator) Locate(tag string, filename string) (Asset, error) {
	if tag == "" || filename == "" {
		return Asset{}, fmt.Errorf("%w: tag %q and filename %q must both be set", ErrMalformedAsset, tag, filename)
	}
	u := l.base + "/" + tag + "/" + filename
	return Asset{
		Tag:         tag,
		Filename:    filename,
		DownloadURL: u,
		ChecksumURL: u + checksumSuffix,
	}, nil
}
