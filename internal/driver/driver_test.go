package driver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnatfetch/gnatfetch/internal/backend"
	"github.com/gnatfetch/gnatfetch/internal/checksum"
	"github.com/gnatfetch/gnatfetch/internal/config"
	"github.com/gnatfetch/gnatfetch/internal/logger"
	"github.com/gnatfetch/gnatfetch/internal/version"
)

const (
	testRepository = "alire-project/GNAT-FSF-builds"
	stableArchive  = "gnat-x86_64-linux-15.2.0-1.tar.gz"
	snapshotTag    = "gnat-15.0.0-snapshot"
)

var archiveContent = []byte("GNAT 15.2.0-1 toolchain for x86_64 linux")

// upstream serves both the GitHub API and the release downloads of a fake repository.
type upstream struct {
	*httptest.Server

	mu       sync.Mutex
	sidecar  string
	requests []*http.Request
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()

	sum := sha256.Sum256(archiveContent)
	u := &upstream{sidecar: hex.EncodeToString(sum[:]) + "  " + stableArchive + "\n"}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/"+testRepository+"/releases", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, []map[string]any{
			{"tag_name": "gnat-15.2.0-1"},
			{"tag_name": snapshotTag},
			{"tag_name": "gnat-14.2.0-1"},
			{"tag_name": "gprbuild-24.0.0-1"},
		})
	})
	mux.HandleFunc("/api/v3/repos/"+testRepository+"/releases/tags/"+snapshotTag, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"tag_name": snapshotTag,
			"assets": []map[string]any{
				{"name": "gnat-x86_64-linux-15.0.0-20240610.tar.gz", "browser_download_url": "https://example.com/a"},
				{"name": "gnat-x86_64-linux-15.0.0-20240610.tar.gz.sha256", "browser_download_url": "https://example.com/b"},
			},
		})
	})
	mux.HandleFunc("/download/gnat-15.2.0-1/"+stableArchive, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(archiveContent)
	})
	mux.HandleFunc("/download/gnat-15.2.0-1/"+stableArchive+".sha256", func(w http.ResponseWriter, _ *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		_, _ = io.WriteString(w, u.sidecar)
	})

	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requests = append(u.requests, r.Clone(context.Background()))
		u.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) setSidecar(s string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.sidecar = s
}

func (u *upstream) apiRequests() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	var n int
	for _, r := range u.requests {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			n++
		}
	}
	return n
}

func (u *upstream) downloadHeaders() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	var hs []string
	for _, r := range u.requests {
		if strings.HasPrefix(r.URL.Path, "/download/") {
			hs = append(hs, r.Header.Get("Authorization"))
		}
	}
	return hs
}

func (u *upstream) config() config.Global {
	conf := config.Default()
	conf.Repository = testRepository
	conf.GitHubBaseURL = u.URL
	conf.ReleasesBaseURL = u.URL + "/download"
	conf.Retry = config.Retry{Attempts: 2}
	return conf
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestOpts(conf config.Global) *CommonOpts {
	b := logger.NewTestBuilder()
	return &CommonOpts{
		LogBuilder: b,
		Log:        b.Domain(logger.CLIDomain),
		Config:     &conf,
		Storage:    osfs.New("/"),
	}
}

func run(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionsCommand(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)

	out, err := run(Versions(newTestOpts(u.config())))
	require.NoError(t, err)
	assert.Equal(t, "14.2.0-1\n15.0.0-snapshot\n15.2.0-1\n", out)

	out, err = run(Versions(newTestOpts(u.config())), "--long")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"VERSION", "KIND", "TAG"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"15.0.0-snapshot", "snapshot", snapshotTag}, strings.Fields(lines[2]))
}

func TestLatestCommand(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)

	out, err := run(Latest(newTestOpts(u.config())))
	require.NoError(t, err)
	assert.Equal(t, "15.2.0-1\n", out)
}

func TestResolveCommand(t *testing.T) {
	t.Parallel()

	testcases := map[string]struct {
		version     string
		filename    string
		apiRequests int
		errType     error
	}{
		"Stable": {
			version:  "15.2.0-1",
			filename: stableArchive,
		},
		"Snapshot": {
			version:     "15.0.0-snapshot",
			filename:    "gnat-x86_64-linux-15.0.0-20240610.tar.gz",
			apiRequests: 1,
		},
		"UnknownSnapshot": {
			version:     "16.0.0-snapshot",
			apiRequests: 1,
			errType:     backend.ErrReleaseNotFound,
		},
		"Malformed": {
			version: "15",
			errType: version.ErrMalformedVersion,
		},
	}

	for name := range testcases {
		tc := testcases[name]
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			u := newUpstream(t)
			out, err := run(Resolve(newTestOpts(u.config())), tc.version, "--platform=linux", "--arch=x86_64")
			assert.Equal(t, tc.apiRequests, u.apiRequests())
			if tc.errType != nil {
				assert.True(t, errors.Is(err, tc.errType), "error %q should be of type %q", err, tc.errType)
				return
			}
			require.NoError(t, err)

			downloadURL := u.URL + "/download/gnat-" + tc.version + "/" + tc.filename
			assert.Contains(t, out, tc.filename)
			assert.Contains(t, out, downloadURL+"\n")
			assert.Contains(t, out, downloadURL+".sha256\n")
		})
	}
}

func TestResolveCommandUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	_, err := run(Resolve(newTestOpts(u.config())), "15.2.0-1", "--platform=Plan9", "--arch=x86_64")
	assert.True(t, errors.Is(err, config.ErrUnsupportedPlatform), "error %q should be of type %q", err, config.ErrUnsupportedPlatform)
}

func TestDownloadCommand(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	dest := filepath.Join(t.TempDir(), "toolchains")

	out, err := run(Download(newTestOpts(u.config())), "15.2.0-1", "--dest="+dest, "--platform=linux", "--arch=x86_64")
	require.NoError(t, err)

	archivePath := filepath.Join(dest, stableArchive)
	assert.Equal(t, archivePath+"\n", out)
	content, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, archiveContent, content)
	_, err = os.Stat(archivePath + ".sha256")
	assert.NoError(t, err)
	_, err = os.Stat(archivePath + ".pid")
	assert.True(t, errors.Is(err, os.ErrNotExist), "the download lock should have been released")
	assert.Zero(t, u.apiRequests())
}

func TestDownloadCommandChecksumMismatch(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	sum := sha256.Sum256(archiveContent)
	digest := hex.EncodeToString(sum[:])
	replacement := "0"
	if digest[10] == '0' {
		replacement = "1"
	}
	altered := digest[:10] + replacement + digest[10+1:]
	u.setSidecar(altered + "\n")

	dest := t.TempDir()
	_, err := run(Download(newTestOpts(u.config())), "15.2.0-1", "--dest="+dest, "--platform=linux", "--arch=x86_64")
	require.Error(t, err)
	assert.True(t, errors.Is(err, checksum.ErrChecksumMismatch), "error %q should be of type %q", err, checksum.ErrChecksumMismatch)

	content, err := os.ReadFile(filepath.Join(dest, stableArchive))
	require.NoError(t, err, "the archive should be left in place")
	assert.Equal(t, archiveContent, content)
}

func TestDownloadCommandMissingArchive(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	dest := t.TempDir()

	_, err := run(Download(newTestOpts(u.config())), "15.1.0-1", "--dest="+dest, "--platform=linux", "--arch=x86_64")
	assert.True(t, errors.Is(err, backend.ErrDownloadFailed), "error %q should be of type %q", err, backend.ErrDownloadFailed)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloadCommandCredentials(t *testing.T) {
	t.Parallel()

	u := newUpstream(t)
	opts := newTestOpts(u.config())
	opts.Credentials = config.LoadCredentials(func(k string) (string, bool) {
		if k == config.PrimaryTokenVar {
			return "s3cr3t", true
		}
		return "", false
	})

	_, err := run(Download(opts), "15.2.0-1", "--dest="+t.TempDir(), "--platform=linux", "--arch=x86_64")
	require.NoError(t, err)
	assert.Equal(t, []string{"token s3cr3t", "token s3cr3t"}, u.downloadHeaders())
}

func TestDownloadCommandFileSystemMirror(t *testing.T) {
	t.Parallel()

	mirrorDir := t.TempDir()
	releaseDir := filepath.Join(mirrorDir, "gnat-15.2.0-1")
	require.NoError(t, os.MkdirAll(releaseDir, 0o755))
	sum := sha256.Sum256(archiveContent)
	require.NoError(t, os.WriteFile(filepath.Join(releaseDir, stableArchive), archiveContent, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(releaseDir, stableArchive+".sha256"), []byte(hex.EncodeToString(sum[:])), 0o644))

	mirror, err := config.NewMirror(mirrorDir, "", "", "")
	require.NoError(t, err)

	conf := config.Default()
	conf.Mirror = mirror
	dest := t.TempDir()

	out, err := run(Download(newTestOpts(conf)), "15.2.0-1", "--dest="+dest, "--platform=linux", "--arch=x86_64")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, stableArchive)+"\n", out)

	content, err := os.ReadFile(filepath.Join(dest, stableArchive))
	require.NoError(t, err)
	assert.Equal(t, archiveContent, content)
}

func TestDownloadCommandRelativeDestination(t *testing.T) {
	u := newUpstream(t)
	opts := NewCommonOpts()
	opts.LogBuilder = logger.NewTestBuilder()
	opts.Log = opts.LogBuilder.Domain(logger.CLIDomain)
	conf := u.config()
	opts.Config = &conf

	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(previous) })

	out, err := run(Download(opts), "15.2.0-1", "--dest=toolchains", "--platform=linux", "--arch=x86_64")
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	archivePath := filepath.Join(cwd, "toolchains", stableArchive)
	assert.Equal(t, archivePath+"\n", out)
	content, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	assert.Equal(t, archiveContent, content)
}
