package backend

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/logger"
)

func TestGCS(t *testing.T) {
	t.Parallel()

	const (
		bucketName = "gnat-mirror"
		objectName = "releases/gnat-15.2.0-1/gnat-x86_64-linux-15.2.0-1.tar.gz"
	)

	fakeGCS := fakestorage.NewServer([]fakestorage.Object{
		{
			ObjectAttrs: fakestorage.ObjectAttrs{BucketName: bucketName, Name: objectName},
			Content:     []byte(artifactContent),
		},
	})
	t.Cleanup(fakeGCS.Stop)

	gcs := &GCS{
		log:    zap.NewNop(),
		client: fakeGCS.Client(),
	}

	location, err := url.Parse("gs://" + bucketName + "/" + objectName)
	require.NoError(t, err)
	r, size, err := gcs.Open(context.Background(), location, FetchOptions{})
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	assert.Equal(t, artifactContent, string(content))
	assert.Equal(t, int64(len(artifactContent)), size)

	testcases := map[string]string{
		"MissingObject": "gs://" + bucketName + "/releases/missing.tar.gz",
		"MissingBucket": "gs://no-such-bucket/" + objectName,
	}
	for name, raw := range testcases {
		missing, err := url.Parse(raw)
		require.NoError(t, err, name)
		_, _, err = gcs.Open(context.Background(), missing, FetchOptions{})
		require.Error(t, err, name)
		assert.False(t, isTransient(err), "%s: a missing object should not be retried", name)
	}

	fs := memfs.New()
	d := NewDownloader(logger.NewTestBuilder(), fs, RetryPolicy{Attempts: 2})
	d.RegisterSource("gs", gcs)
	require.NoError(t, d.Fetch(context.Background(), location.String(), "/gnat.tar.gz", FetchOptions{}))
	content, err = util.ReadFile(fs, "/gnat.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, artifactContent, string(content))
}
