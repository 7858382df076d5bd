package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrInvalidMirror = errors.New("invalid mirror configuration")

// Mirror is an alternative location serving the same '<tag>/<filename>' layout as the upstream
// release downloads, including the '.sha256' sidecars. At most one host or bucket may be set. A
// mirror with only a path prefix is a local directory.
type Mirror struct {
	mirrorContent
}

type mirrorContent struct {
	PathPrefix string `yaml:"path_prefix"`

	GCSBucket string `yaml:"gcs_bucket"`
	HTTPSHost string `yaml:"https_host"`
	S3Bucket  string `yaml:"s3_bucket"`
}

var mirrorKeys = []string{"path_prefix", "gcs_bucket", "https_host", "s3_bucket"}

func NewMirror(pathPrefix string, gcsBucket string, httpsHost string, s3Bucket string) (*Mirror, error) {
	m := &Mirror{mirrorContent{
		PathPrefix: pathPrefix,
		GCSBucket:  gcsBucket,
		HTTPSHost:  httpsHost,
		S3Bucket:   s3Bucket,
	}}
	return m, m.validate()
}

func (m *Mirror) UnmarshalYAML(unmarshal func(interface{}) error) error {
	all := map[string]interface{}{}
	if err := unmarshal(&all); err != nil {
		return fmt.Errorf("%w: can not unmarshal non-mapping yaml", ErrInvalidMirror)
	}
	for _, k := range mirrorKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		var unknown []string
		for k := range all {
			unknown = append(unknown, k)
		}
		return fmt.Errorf("%w: unknown fields %v", ErrInvalidMirror, unknown)
	}

	if err := unmarshal(&m.mirrorContent); err != nil {
		return err
	}
	return m.validate()
}

func (m *Mirror) validate() error {
	var hostCount int
	for _, h := range []string{m.GCSBucket, m.HTTPSHost, m.S3Bucket} {
		if h != "" {
			hostCount++
		}
	}
	switch {
	case hostCount > 1:
		return fmt.Errorf("%w: multiple remote hosts / buckets found", ErrInvalidMirror)
	case hostCount == 0 && m.PathPrefix == "":
		return fmt.Errorf("%w: no host, bucket or path prefix set", ErrInvalidMirror)
	}
	return nil
}

func (m *Mirror) BaseURL() string {
	prefix := strings.Trim(m.PathPrefix, "/")
	join := func(root string) string {
		if prefix == "" {
			return root
		}
		return root + "/" + prefix
	}

	switch {
	case m.S3Bucket != "":
		return join("s3://" + m.S3Bucket)
	case m.GCSBucket != "":
		return join("gs://" + m.GCSBucket)
	case m.HTTPSHost != "":
		host := strings.TrimSuffix(m.HTTPSHost, "/")
		if !strings.Contains(host, "://") {
			host = "https://" + host
		}
		return join(host)
	default:
		p := filepath.Clean(m.PathPrefix)
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		p = filepath.ToSlash(p)
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return "file://" + strings.TrimSuffix(p, "/")
	}
}

func (m *Mirror) String() string {
	return m.BaseURL()
}
