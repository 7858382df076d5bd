package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/logger"
)

type HTTPS struct {
	log    *zap.Logger
	client *http.Client
}

// NewHTTPS returns a source for 'http' and 'https' URLs. Redirects are followed by the client. A nil
// client means http.DefaultClient.
func NewHTTPS(logBuilder *logger.Builder, client *http.Client) *HTTPS {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPS{
		log:    logBuilder.Domain(logger.HTTPSDomain),
		client: client,
	}
}

func (s *HTTPS) String() string { return "https" }

func (s *HTTPS) Open(ctx context.Context, location *url.URL, opts FetchOptions) (io.ReadCloser, int64, error) {
	log := s.log.With(zap.Stringer("url", location))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	if opts.AuthToken != "" {
		req.Header.Set("Authorization", "token "+opts.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, err
		}
		log.Debug("Request failed.", zap.Error(err))
		return nil, 0, markTransient(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		err = fmt.Errorf("unexpected response status %s", resp.Status)
		log.Debug("Request returned an error status.", zap.Int("status", resp.StatusCode))
		if retryableStatus(resp.StatusCode) {
			return nil, 0, markTransient(err)
		}
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}
