// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/nullclaw/beacon/internal/crashmarker"
	"github.com/nullclaw/beacon/internal/ratelimit"
	"github.com/nullclaw/beacon/internal/transport"
	"github.com/nullclaw/beacon/internal/worker"
)

const (
	sdkName           = "beacon-go"
	sdkVersion        = "0.1.0"
	crashMarkerFile   = ".beacon-crash"
	defaultShutdownMS = 2000
)

// BeforeSendFunc inspects the fully-enriched event immediately before it
// is queued for delivery; returning nil drops the event.
type BeforeSendFunc func(event *Event) *Event

// BeforeBreadcrumbFunc inspects a breadcrumb immediately before it is
// added to the scope; returning ok=false drops it.
type BeforeBreadcrumbFunc func(b Breadcrumb) (out Breadcrumb, ok bool)

// TracesSamplerFunc decides the sample rate for one transaction,
// overriding [Options.TracesSampleRate] when set.
type TracesSamplerFunc func(ctx context.Context) float64

// Options configures a [Client]. DSN is the only required field.
type Options struct {
	DSN string

	Release     string
	Environment string
	ServerName  string

	// SampleRate is the probability, in [0, 1], that any given event
	// survives sampling. Defaults to 1 (never sampled out).
	SampleRate float64
	// TracesSampleRate is the default probability that a new transaction
	// is sampled. Defaults to 0 (no transactions sampled unless
	// TracesSampler or an inbound parent decision says otherwise).
	TracesSampleRate float64
	TracesSampler    TracesSamplerFunc

	// MaxBreadcrumbs is the scope's ring-buffer capacity; clamped to 200,
	// and zero is treated as the default of 100 (see breadcrumb.go).
	MaxBreadcrumbs int

	BeforeSend       BeforeSendFunc
	BeforeBreadcrumb BeforeBreadcrumbFunc

	// CacheDir holds the crash marker file. Required if
	// InstallSignalHandlers is true.
	CacheDir              string
	InstallSignalHandlers bool

	AutoSessionTracking bool
	SessionMode         SessionMode

	// ShutdownTimeout bounds how long Close waits for the delivery queue
	// to drain. Defaults to 2s.
	ShutdownTimeout time.Duration

	// Transport overrides the default HTTPS transport built from DSN,
	// primarily for tests (see internal/transport.MemoryTransport).
	Transport transport.Transport

	Logger SLogger
	Debug  bool
}

func (o *Options) setDefaults() {
	if o.SampleRate == 0 {
		o.SampleRate = 1
	}
	o.MaxBreadcrumbs = clampBreadcrumbCapacity(o.MaxBreadcrumbs)
	if o.SessionMode == "" {
		o.SessionMode = SessionModeApplication
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = defaultShutdownMS * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = DefaultSLogger()
	}
}

func (o *Options) validate() error {
	if !validUnitInterval(o.SampleRate) {
		return fmt.Errorf("beacon: sample_rate must be finite and in [0, 1], got %v", o.SampleRate)
	}
	if !validUnitInterval(o.TracesSampleRate) {
		return fmt.Errorf("beacon: traces_sample_rate must be finite and in [0, 1], got %v", o.TracesSampleRate)
	}
	if o.InstallSignalHandlers && o.CacheDir == "" {
		return fmt.Errorf("beacon: cache_dir is required when install_signal_handlers is set")
	}
	return nil
}

func validUnitInterval(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0 && f <= 1
}

// Client owns the parsed DSN, the delivery worker, the rate-limit
// ledger and the transport backend. Construct one with [NewClient] and
// drive capture through its [Client.RootHub].
type Client struct {
	opts   Options
	dsn    *DSN
	logger SLogger

	transport transport.Transport
	ledger    *ratelimit.Ledger
	worker    *worker.Worker

	rootHub *Hub

	crashMarkerPath  string
	signalsInstalled bool
}

// NewClient validates opts, builds the transport and worker, replays any
// crash marker from a previous run, and optionally starts an
// auto-tracked session. The returned client's root hub is ready for
// capture calls.
func NewClient(opts Options) (*Client, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	dsn, err := ParseDSN(opts.DSN)
	if err != nil {
		return nil, err
	}

	c := &Client{opts: opts, dsn: dsn, logger: opts.Logger, ledger: ratelimit.New()}

	if opts.Transport != nil {
		c.transport = opts.Transport
	} else {
		publicKey, secretKey := dsn.AuthMaterial()
		httpTransport, err := transport.NewHTTPTransport(transport.HTTPOptions{
			UploadURL:  dsn.UploadURL(),
			AuthHeader: authHeader(publicKey, secretKey),
			UserAgent:  sdkName + "/" + sdkVersion,
		})
		if err != nil {
			return nil, err
		}
		c.transport = httpTransport
	}

	c.worker = worker.New(c.transport.Send, c.ledger)
	c.rootHub = newHub(c)

	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0o700); err != nil {
			return nil, fmt.Errorf("beacon: create cache dir: %w", err)
		}
		c.crashMarkerPath = filepath.Join(opts.CacheDir, crashMarkerFile)
	}

	// Replay must run before Install: Install truncates the marker file to
	// arm it for this run, which would destroy a marker left by a crash in
	// the previous run if the order were reversed.
	if c.crashMarkerPath != "" {
		if info, ok, err := crashmarker.Replay(c.crashMarkerPath); err == nil && ok {
			c.rootHub.CaptureEvent(nativeCrashEvent(info.Signal))
		}
	}

	if opts.InstallSignalHandlers {
		if err := crashmarker.Install(c.crashMarkerPath); err != nil {
			return nil, err
		}
		c.signalsInstalled = true
	}

	if opts.AutoSessionTracking {
		c.rootHub.StartSession()
	}

	return c, nil
}

// nativeCrashEvent synthesizes the fatal event reported for a replayed
// crash marker from a previous run.
func nativeCrashEvent(signal int) *Event {
	e := NewEvent()
	e.Level = LevelFatal
	name := crashmarker.SignalName(signal)
	e.Exception = []Exception{{
		Type:  "NativeCrash",
		Value: fmt.Sprintf("Crash: %s (signal %d)", name, signal),
	}}
	return e
}

// authHeader builds the X-Sentry-Auth header value carrying this SDK's
// identity and the DSN's credentials.
func authHeader(publicKey, secretKey string) string {
	h := fmt.Sprintf("Sentry sentry_version=7, sentry_client=%s/%s, sentry_key=%s", sdkName, sdkVersion, publicKey)
	if secretKey != "" {
		h += ", sentry_secret=" + secretKey
	}
	return h
}

// RootHub returns the client's top-level hub. Detached hubs created by
// [Hub.Clone] or carried via [ContextWithHub] also reference this client.
func (c *Client) RootHub() *Hub {
	return c.rootHub
}

// Flush blocks until the delivery queue drains or timeout elapses,
// whichever comes first, returning whether it drained in time.
func (c *Client) Flush(timeout time.Duration) bool {
	return c.worker.Flush(timeout)
}

// Close ends any auto-tracked session, flushes with the configured
// shutdown timeout, stops the delivery worker and the transport, and
// uninstalls the crash-signal handler if this client installed it.
// Idempotent is not guaranteed across repeated calls; callers should call
// it exactly once, typically via defer at startup.
func (c *Client) Close() error {
	if c.opts.AutoSessionTracking {
		c.rootHub.EndSession(SessionExited)
	}
	c.worker.Flush(c.opts.ShutdownTimeout)
	c.worker.Shutdown()
	if c.signalsInstalled {
		crashmarker.Uninstall()
	}
	return c.transport.Close()
}
