// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"sync"
)

// MemoryTransport records every envelope it is handed instead of sending
// it anywhere. It exists for tests and for embedding apps that want to
// inspect what would have been sent.
type MemoryTransport struct {
	mu      sync.Mutex
	sent    [][]byte
	outcome Outcome
	closed  bool
}

// NewMemoryTransport returns a [*MemoryTransport] that reports outcome for
// every Send call.
func NewMemoryTransport(outcome Outcome) *MemoryTransport {
	return &MemoryTransport{outcome: outcome}
}

// Send appends a copy of envelope to the recorded list and returns the
// configured outcome.
func (m *MemoryTransport) Send(_ context.Context, envelope []byte) Outcome {
	cp := append([]byte(nil), envelope...)
	m.mu.Lock()
	m.sent = append(m.sent, cp)
	m.mu.Unlock()
	return m.outcome
}

// Close marks the transport closed; it keeps the recorded envelopes
// available for inspection afterward.
func (m *MemoryTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of every envelope recorded so far, in send order.
func (m *MemoryTransport) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// Closed reports whether Close has been called.
func (m *MemoryTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
