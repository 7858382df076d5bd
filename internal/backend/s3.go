package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/logger"
)

// S3 serves 's3://<bucket>/<key>' URLs.
type S3 struct {
	log    *zap.Logger
	client *s3.Client
}

func NewS3(ctx context.Context, logBuilder *logger.Builder) (*S3, error) {
	log := logBuilder.Domain(logger.S3Domain)

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cfg, err := aws_config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error("Failed to load AWS configuration from environment.", zap.Error(err))
		return nil, err
	}
	return &S3{
		log:    log,
		client: s3.NewFromConfig(cfg),
	}, nil
}

func (s *S3) String() string { return "s3" }

func (s *S3) Open(ctx context.Context, location *url.URL, _ FetchOptions) (io.ReadCloser, int64, error) {
	bucket, key := location.Host, strings.TrimPrefix(location.Path, "/")
	log := s.log.With(zap.String("s3-bucket", bucket), zap.String("object-key", key))
	if bucket == "" || key == "" {
		return nil, 0, fmt.Errorf("s3 url %q must name a bucket and an object key", location)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var s3err *types.NoSuchKey
		if errors.As(err, &s3err) {
			log.Error("No such object available in S3.", zap.Error(err))
			return nil, 0, err
		}
		log.Debug("Failed to lookup object on S3.", zap.Error(err))
		if ctx.Err() != nil {
			return nil, 0, err
		}
		return nil, 0, markTransient(err)
	}

	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}
