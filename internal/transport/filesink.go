// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// FileSinkTransport writes each envelope to its own file inside a
// directory, for offline inspection or as a dead-letter destination. It
// never reports a rate limit and never fails a send unless the write
// itself fails.
type FileSinkTransport struct {
	dir     string
	counter atomic.Uint64
}

// NewFileSinkTransport returns a [*FileSinkTransport] writing into dir,
// creating it (and any parents) if necessary.
func NewFileSinkTransport(dir string) (*FileSinkTransport, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("transport: create sink dir: %w", err)
	}
	return &FileSinkTransport{dir: dir}, nil
}

// Send writes envelope to a uniquely-named file under the sink directory.
func (f *FileSinkTransport) Send(_ context.Context, envelope []byte) Outcome {
	n := f.counter.Add(1)
	name := filepath.Join(f.dir, fmt.Sprintf("envelope-%08d.sentry-envelope", n))
	if err := os.WriteFile(name, envelope, 0o600); err != nil {
		return Outcome{Err: fmt.Errorf("transport: write %s: %w", name, err)}
	}
	return Outcome{}
}

// Close is a no-op: the sink directory owns no handles to release.
func (f *FileSinkTransport) Close() error { return nil }
