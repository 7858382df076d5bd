package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/config"
)

// RetryPolicy bounds the number of attempts made for a single network operation and fixes the delay
// between them.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func NewRetryPolicy(c config.Retry) RetryPolicy {
	return RetryPolicy{Attempts: c.Attempts, Delay: c.Delay}
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(p.attempts()-1))
	return backoff.WithContext(b, ctx)
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

// RetryTransport retries requests on connection errors and retryable status codes. Once the attempts
// are exhausted the last response is handed to the caller as-is.
type RetryTransport struct {
	Base   http.RoundTripper
	Policy RetryPolicy
	Log    *zap.Logger
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		// The body can not be replayed.
		return base.RoundTrip(req)
	}

	log := t.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("method", req.Method), zap.Stringer("url", req.URL))

	var (
		attempt int
		resp    *http.Response
	)
	op := func() error {
		attempt++
		r, err := t.cloneRequest(req)
		if err != nil {
			return backoff.Permanent(err)
		}

		res, err := base.RoundTrip(r)
		if err != nil {
			if req.Context().Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if retryableStatus(res.StatusCode) && attempt < t.Policy.attempts() {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
			return fmt.Errorf("server responded with %s", res.Status)
		}
		resp = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debug("Request failed, retrying.", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}

	if err := backoff.RetryNotify(op, t.Policy.backOff(req.Context()), notify); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *RetryTransport) cloneRequest(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}
