// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/http2"
)

// HTTPTransport ships envelopes to a Sentry-compatible ingest endpoint
// over HTTPS, explicitly configuring HTTP/2 support on its round
// tripper instead of leaving protocol negotiation to chance.
type HTTPTransport struct {
	client     *http.Client
	uploadURL  string
	authHeader string
	userAgent  string
}

// HTTPOptions configures an [HTTPTransport].
type HTTPOptions struct {
	UploadURL string
	// AuthHeader is the value of the X-Sentry-Auth header, fully formed
	// (sentry_version, sentry_client, sentry_key, ...).
	AuthHeader string
	UserAgent  string
	Timeout    time.Duration
}

// NewHTTPTransport builds an [HTTPTransport] backed by an HTTP/2-capable
// client. A zero Timeout falls back to 30s.
func NewHTTPTransport(opts HTTPOptions) (*HTTPTransport, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := &http.Transport{}
	if _, err := http2.ConfigureTransports(base); err != nil {
		return nil, fmt.Errorf("transport: configure http2: %w", err)
	}
	client := &http.Client{Timeout: timeout, Transport: base}
	return &HTTPTransport{
		client:     client,
		uploadURL:  opts.UploadURL,
		authHeader: opts.AuthHeader,
		userAgent:  opts.UserAgent,
	}, nil
}

// Send POSTs envelope to the configured upload URL and translates the
// response into an [Outcome]. Any non-2xx status is reported as Err and
// is not retried, neither by this type nor by the worker.
func (t *HTTPTransport) Send(ctx context.Context, envelope []byte) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL, bytes.NewReader(envelope))
	if err != nil {
		return Outcome{Err: fmt.Errorf("transport: build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-sentry-envelope")
	req.Header.Set("X-Sentry-Auth", t.authHeader)
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Outcome{Err: fmt.Errorf("transport: send: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	outcome := Outcome{
		RateLimitsHeader: resp.Header.Get("X-Sentry-Rate-Limits"),
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			outcome.RetryAfterSeconds = secs
		}
	}
	if resp.StatusCode >= 300 {
		outcome.Err = fmt.Errorf("transport: unexpected status %d", resp.StatusCode)
	}
	return outcome
}

// Close releases the underlying client's idle connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
