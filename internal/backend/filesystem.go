package backend

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/logger"
)

// FileSystem serves 'file://' URLs, typically a mirror on a local or network-mounted directory.
type FileSystem struct {
	log     *zap.Logger
	storage billy.Filesystem
}

// NewFileSystem returns a source backed by the given filesystem. A nil filesystem means the host's.
func NewFileSystem(logBuilder *logger.Builder, fs billy.Filesystem) *FileSystem {
	if fs == nil {
		fs = osfs.New("/")
	}
	return &FileSystem{
		log:     logBuilder.Domain(logger.FileSystemDomain),
		storage: fs,
	}
}

func (s *FileSystem) String() string { return "file" }

func (s *FileSystem) Open(_ context.Context, location *url.URL, _ FetchOptions) (io.ReadCloser, int64, error) {
	p := location.Path
	log := s.log.With(zap.String("local-path", p))
	if p == "" {
		return nil, 0, fmt.Errorf("file url %q has no path", location)
	}

	fi, err := s.storage.Stat(p)
	if err != nil {
		log.Error("Unable to find file.", zap.Error(err))
		return nil, 0, err
	}
	fd, err := s.storage.Open(p)
	if err != nil {
		log.Error("Failed to open file.", zap.Error(err))
		return nil, 0, err
	}
	return fd, fi.Size(), nil
}
