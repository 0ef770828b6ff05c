// SPDX-License-Identifier: MIT

// Package fetch downloads EPG documents over HTTP with bounded retries,
// exponential backoff and a backup-URL fallback.
package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mraffaele/guida/internal/epg"
	"github.com/mraffaele/guida/internal/log"
	"github.com/mraffaele/guida/internal/metrics"
)

const (
	defaultRetries   = 3
	defaultBaseDelay = 2 * time.Second
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "guida/1.0"

	// minBodySize guards against empty or error pages served with a 200.
	minBodySize = 1024
	// maxBodySize bounds a single document download.
	maxBodySize = 256 << 20

	chunkSize = 64 << 10
)

// Options configure a Client. Zero values pick the defaults above.
type Options struct {
	UserAgent string
	Retries   int
	BaseDelay time.Duration
	Timeout   time.Duration
	// RatePerSec throttles outgoing requests. Zero means unlimited.
	RatePerSec float64
}

// Client fetches EPG documents. Safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	retries   int
	baseDelay time.Duration
	limiter   *rate.Limiter
}

func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		retries:   opts.Retries,
		baseDelay: opts.BaseDelay,
		limiter:   limiter,
	}
}

// Fetch downloads the source document, trying the primary URL with the full
// retry budget and then the backup URL with its own budget. The returned
// bytes are already decompressed. Every failure mode comes back as an error
// wrapping ErrUnavailable; nothing panics past this boundary.
func (c *Client) Fetch(ctx context.Context, src epg.Source) ([]byte, error) {
	logger := log.WithComponentFromContext(ctx, "fetch")

	body, fromURL, err := c.downloadWithRetry(ctx, src.URL)
	if err != nil && src.BackupURL != "" {
		logger.Warn().Err(err).
			Str("source", src.Name).
			Str("event", "fetch.primary_exhausted").
			Msg("primary URL exhausted, trying backup")
		body, fromURL, err = c.downloadWithRetry(ctx, src.BackupURL)
	}
	if err != nil {
		metrics.IncFetch(src.Name, "failure")
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, src.Name, err)
	}

	out, err := Decompress(body, fromURL)
	if err != nil {
		metrics.IncFetch(src.Name, "decode_failure")
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, src.Name, err)
	}

	metrics.IncFetch(src.Name, "success")
	logger.Info().
		Str("source", src.Name).
		Str("event", "fetch.success").
		Int("bytes", len(out)).
		Msg("source fetched")
	return out, nil
}

// downloadWithRetry runs the bounded retry loop for a single URL. Backoff
// waits select on ctx so one slow source cannot stall its siblings.
func (c *Client) downloadWithRetry(ctx context.Context, rawURL string) ([]byte, string, error) {
	logger := log.WithComponentFromContext(ctx, "fetch")
	delay := c.baseDelay

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
			delay *= 2
		}

		body, err := c.download(ctx, rawURL)
		if err == nil {
			return body, rawURL, nil
		}
		lastErr = err
		metrics.IncFetchAttemptFailure()
		logger.Warn().Err(err).
			Str("url", rawURL).
			Int("attempt", attempt).
			Str("event", "fetch.attempt_failed").
			Msg("download attempt failed")

		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}
	return nil, "", fmt.Errorf("all %d attempts failed: %w", c.retries, lastErr)
}

// download performs one HTTP GET, streaming the body in fixed-size chunks so
// a failed attempt never holds a partially buffered document.
func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	// The source serves pre-compressed .gz files; transparent transport
	// compression would double-wrap them.
	req.Header.Set("Accept-Encoding", "identity")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, Code: res.StatusCode}
	}

	var buf bytes.Buffer
	chunk := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(&buf, io.LimitReader(res.Body, maxBodySize), chunk); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if buf.Len() < minBodySize {
		return nil, &SizeError{URL: rawURL, Size: buf.Len()}
	}
	return buf.Bytes(), nil
}

// Decompress gunzips content when the URL path carries a .gz suffix. It is a
// pure function over a completed download; failures are terminal for the
// cycle, never retried.
func Decompress(content []byte, rawURL string) ([]byte, error) {
	if !isGzipURL(rawURL) {
		return content, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, &DecodeError{URL: rawURL, Err: err}
	}
	defer func() {
		_ = zr.Close()
	}()

	out, err := io.ReadAll(io.LimitReader(zr, maxBodySize))
	if err != nil {
		return nil, &DecodeError{URL: rawURL, Err: err}
	}
	return out, nil
}

func isGzipURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasSuffix(rawURL, ".gz")
	}
	return strings.HasSuffix(u.Path, ".gz")
}
