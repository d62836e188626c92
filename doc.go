// SPDX-License-Identifier: GPL-3.0-or-later

// Package beacon is an error-and-performance telemetry client: capture
// events and exceptions, track sessions and release health, record
// performance transactions, and ship all of it to a Sentry-compatible
// ingest endpoint over the envelope wire protocol.
//
// # Core Abstraction
//
// A [Client] owns configuration, a delivery worker, and a rate-limit
// ledger. A [Hub] owns the current [Scope] stack and drives the capture
// pipeline: enrichment, event processors, sampling, and handoff to the
// client for encoding and delivery. Most programs only ever touch the
// client's root hub ([Client.RootHub]) via [Hub.CaptureException],
// [Hub.CaptureMessage], [Hub.AddBreadcrumb], and [Hub.WithScope].
//
// # Available Primitives
//
// Configuration and lifecycle:
//   - [NewClient]: builds a client from [Options], validating the DSN and
//     wiring the configured transport and worker
//   - [Options]: DSN, sample rates, release/environment tags, transport
//     overrides, crash-marker path
//
// Event model:
//   - [Event], [Exception], [Stacktrace], [Message]: the error/message
//     payload captured and encoded per the envelope item format
//   - [Session]: release-health state machine (ok/errored/crashed/exited)
//   - [Transaction], [Span]: performance monitoring spans with parent/child
//     relationships and W3C trace propagation
//   - [CheckIn]: scheduled-job (cron) monitoring beacons
//
// Scope and context:
//   - [Scope]: thread-safe holder of user, tags, extras, contexts, and a
//     bounded [Breadcrumb] ring buffer, applied onto events without
//     mutating scope state
//   - [Hub]: the scope stack and capture pipeline; [Hub.WithScope] pushes a
//     temporary child scope for the duration of a callback
//
// DSN and propagation:
//   - [ParseDSN]: parses a Sentry-style endpoint descriptor into its
//     project, credentials, and upload URL
//   - [ParseTraceParent], [ParseSentryTrace]: parse inbound distributed
//     trace headers to continue a trace across service boundaries
//
// # Observability
//
// The capture pipeline supports structured logging via [SLogger] (compatible with [log/slog]).
//
// By default, logging is disabled. Set the Logger field on [Options] to a
// custom [*slog.Logger] and set Debug to true to enable logging.
//
// The [Hub] then emits one Debug-level event per captured event, naming
// its outcome: dropped-by-processor, sampled-out, dropped-by-before-send,
// or enqueued. The delivery worker and the transports do not log, so
// rate-limit skips and failed sends produce no log events.
//
// The [SLogger] interface accepts any slog-compatible handler, enabling flexible
// post-processing. Handlers can filter, transform, or route events as needed.
//
// # Delivery
//
// Capture never blocks on network I/O: [Hub.CaptureEvent] and friends
// hand an encoded envelope to a bounded, single-goroutine delivery
// worker and return immediately. The worker drops the oldest queued
// envelope when the queue is full rather than applying backpressure to
// the caller; see [Client.Flush] to wait for the queue to drain (for
// example, before process exit).
//
// # Design Boundaries
//
// This package intentionally provides only the capture-and-delivery
// core. The following are out of scope and should be implemented by
// higher-level integrations:
//
//   - Stack unwinding and symbolication
//   - Framework-specific middleware (HTTP, gRPC, job-queue wrappers)
//   - Persistent cross-restart delivery queues
//   - Metrics aggregation
//
// These concerns are either platform-specific or belong to the calling
// application, not this client core.
package beacon
