package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/gnatfetch/gnatfetch/internal/logger"
)

// GCS serves 'gs://<bucket>/<object>' URLs.
type GCS struct {
	log    *zap.Logger
	client *storage.Client
}

func NewGCS(ctx context.Context, logBuilder *logger.Builder) (*GCS, error) {
	log := logBuilder.Domain(logger.GCSDomain)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadOnly))
	if err != nil {
		log.Error("Unable to set up a GCS storage client.", zap.Error(err))
		return nil, err
	}
	return &GCS{
		log:    log,
		client: client,
	}, nil
}

func (s *GCS) String() string { return "gcs" }

func (s *GCS) Open(ctx context.Context, location *url.URL, _ FetchOptions) (io.ReadCloser, int64, error) {
	bucket, object := location.Host, strings.TrimPrefix(location.Path, "/")
	log := s.log.With(zap.String("gcs-bucket", bucket), zap.String("object", object))
	if bucket == "" || object == "" {
		return nil, 0, fmt.Errorf("gs url %q must name a bucket and an object", location)
	}

	src, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			log.Error("No such object available in GCS.")
			return nil, 0, err
		}
		log.Debug("Unable to open reader on remote GCS object.", zap.Error(err))
		if ctx.Err() != nil {
			return nil, 0, err
		}
		return nil, 0, markTransient(err)
	}
	return src, src.Attrs.Size, nil
}
