// SPDX-License-Identifier: GPL-3.0-or-later

// Package transport implements pluggable delivery backends behind an
// opaque send-function-plus-context contract, with HTTPS, in-memory,
// file-sink and fanout implementations.
package transport

import "context"

// Outcome is what a [Transport] observed after attempting to send an
// envelope: any rate-limit signals the response carried, and whether the
// send itself failed (network error, non-2xx status the transport chose
// to surface, etc). The worker integrates RetryAfterSeconds and
// RateLimitsHeader into its [github.com/nullclaw/beacon/internal/ratelimit.Ledger]
// and otherwise drops the outcome on the floor: retries are a transport
// backend's concern, never the core's.
type Outcome struct {
	RetryAfterSeconds int
	RateLimitsHeader  string
	Err               error
}

// Transport is the opaque byte-sink contract every backend implements.
type Transport interface {
	// Send ships one already-framed envelope. It must not block past ctx's
	// deadline by more than the backend's own I/O timeout; the worker never
	// cancels an in-flight Send.
	Send(ctx context.Context, envelope []byte) Outcome
	// Close releases backend resources. Idempotent.
	Close() error
}
