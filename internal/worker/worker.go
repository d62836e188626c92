// SPDX-License-Identifier: GPL-3.0-or-later

// Package worker implements a bounded, asynchronous delivery queue: a
// single background goroutine drains a FIFO of opaque envelope buffers
// through a transport send function, checking the rate-limit ledger
// before every attempt and dropping the oldest buffer whenever the
// queue is full.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/nullclaw/beacon/internal/ratelimit"
	"github.com/nullclaw/beacon/internal/transport"
)

const maxQueueDepth = 100

// SendFunc ships one envelope and reports what happened. It is usually
// [transport.Transport.Send] but kept as a plain function type so the
// worker does not need to know about the transport package's lifecycle.
type SendFunc func(ctx context.Context, envelope []byte) transport.Outcome

type job struct {
	envelope []byte
	category ratelimit.Category
}

// Worker owns a bounded queue of envelopes and a single delivery
// goroutine. Submit never blocks: a full queue drops its oldest entry to
// make room for the newest one.
type Worker struct {
	send   SendFunc
	ledger *ratelimit.Ledger
	now    func() time.Time

	mu       sync.Mutex
	queue    []job
	inFlight int
	drained  *sync.Cond
	closed   bool
	wake     chan struct{}
	doneOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

// New starts a [*Worker] delivering through send, consulting ledger
// before every attempt. The background goroutine runs until [Worker.Shutdown].
func New(send SendFunc, ledger *ratelimit.Ledger) *Worker {
	w := &Worker{
		send:    send,
		ledger:  ledger,
		now:     time.Now,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	w.drained = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// Submit enqueues envelope for delivery under category. If the queue is
// already at its hard cap, the oldest queued envelope is dropped to make
// room. Submit on a shut-down worker is a no-op.
func (w *Worker) Submit(envelope []byte, category ratelimit.Category) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if len(w.queue) >= maxQueueDepth {
		w.queue = w.queue[1:]
	}
	w.queue = append(w.queue, job{envelope: envelope, category: category})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// QueueLen reports the current queue depth, mostly for tests.
func (w *Worker) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Worker) loop() {
	defer close(w.stopped)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.mu.Unlock()
			select {
			case <-w.wake:
			case <-w.done:
			}
			w.mu.Lock()
		}
		if len(w.queue) == 0 && w.closed {
			w.mu.Unlock()
			return
		}
		j := w.queue[0]
		w.queue = w.queue[1:]
		// inFlight covers the job from here until its outcome (or
		// rate-limit skip) is accounted for, so Flush/Shutdown never
		// observe a drained queue while a send is still running.
		w.inFlight++
		w.mu.Unlock()

		if w.ledger != nil && !w.ledger.MaySend(j.category, w.now()) {
			w.finishJob()
			continue
		}

		out := w.send(context.Background(), j.envelope)
		if w.ledger != nil && (out.RetryAfterSeconds > 0 || out.RateLimitsHeader != "") {
			w.ledger.Update(w.now(), out.RetryAfterSeconds, out.RateLimitsHeader)
		}

		w.finishJob()
	}
}

// finishJob decrements inFlight and wakes any Flush/Shutdown waiter once
// both the queue and inFlight are back to zero.
func (w *Worker) finishJob() {
	w.mu.Lock()
	w.inFlight--
	if len(w.queue) == 0 && w.inFlight == 0 {
		w.drained.Broadcast()
	}
	w.mu.Unlock()
}

// Flush blocks until the queue drains or timeout elapses, whichever comes
// first. It reports whether the queue was empty by the time it returned.
// A zero or negative timeout checks the current state without waiting.
func (w *Worker) Flush(timeout time.Duration) bool {
	w.mu.Lock()
	empty := len(w.queue) == 0 && w.inFlight == 0
	w.mu.Unlock()
	if empty || timeout <= 0 {
		return empty
	}

	done := make(chan struct{})
	go func() {
		w.mu.Lock()
		for len(w.queue) != 0 || w.inFlight != 0 {
			w.drained.Wait()
		}
		w.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.queue) == 0 && w.inFlight == 0
	}
}

// Shutdown stops the delivery goroutine once the queue drains naturally
// and blocks until it has exited; it does not discard pending work.
// Idempotent.
func (w *Worker) Shutdown() {
	w.doneOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.done)
	})
	<-w.stopped
}
