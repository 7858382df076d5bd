package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
)

var (
	ErrCatalogUnavailable = errors.New("release catalog unavailable")
	ErrReleaseNotFound    = errors.New("release not found")
	ErrDownloadFailed     = errors.New("download failed")
	ErrUnsupportedScheme  = errors.New("unsupported url scheme")
)

// Source opens the content behind a URL for one download attempt.
type Source interface {
	fmt.Stringer
	Open(ctx context.Context, location *url.URL, opts FetchOptions) (content io.ReadCloser, size int64, err error)
}

var (
	// To guarantee that implementations remain compatible with the interface.
	_ Source = &FileSystem{}
	_ Source = &GCS{}
	_ Source = &HTTPS{}
	_ Source = &S3{}
)

type FetchOptions struct {
	ShowProgress bool
	// AuthToken is sent as 'Authorization: token <value>' on HTTP(S) requests when set.
	AuthToken string
}

// transientError marks failures that are worth another attempt: connection errors, server-side
// errors and interrupted transfers.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

func markTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// transientReader marks any read error other than io.EOF as transient so that a connection dropped
// halfway through a transfer is retried while local write errors are not.
type transientReader struct {
	r io.Reader
}

func (t transientReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = markTransient(err)
	}
	return n, err
}
