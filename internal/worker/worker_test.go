// SPDX-License-Identifier: GPL-3.0-or-later

package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullclaw/beacon/internal/ratelimit"
	"github.com/nullclaw/beacon/internal/transport"
)

func blockingSend(release <-chan struct{}) SendFunc {
	return func(ctx context.Context, envelope []byte) transport.Outcome {
		<-release
		return transport.Outcome{}
	}
}

func TestWorkerDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got [][]byte
	send := func(ctx context.Context, envelope []byte) transport.Outcome {
		mu.Lock()
		got = append(got, envelope)
		mu.Unlock()
		return transport.Outcome{}
	}
	w := New(send, ratelimit.New())
	defer w.Shutdown()

	w.Submit([]byte("first"), ratelimit.CategoryError)
	w.Submit([]byte("second"), ratelimit.CategoryError)
	require.True(t, w.Flush(time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, []byte("first"), got[0])
	assert.Equal(t, []byte("second"), got[1])
}

func TestWorkerQueuePlateausAtHardCap(t *testing.T) {
	release := make(chan struct{})
	w := New(blockingSend(release), ratelimit.New())
	defer func() {
		close(release)
		w.Shutdown()
	}()

	// First submission is immediately picked up by the single delivery
	// goroutine and blocks there, so it never occupies a queue slot.
	w.Submit([]byte("blocker"), ratelimit.CategoryError)
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 150; i++ {
		w.Submit([]byte("x"), ratelimit.CategoryError)
	}
	assert.Equal(t, maxQueueDepth, w.QueueLen())
}

func TestWorkerDropsOldestWhenFull(t *testing.T) {
	release := make(chan struct{})
	w := New(blockingSend(release), ratelimit.New())
	defer func() {
		close(release)
		w.Shutdown()
	}()

	w.Submit([]byte("blocker"), ratelimit.CategoryError)
	time.Sleep(20 * time.Millisecond)

	w.Submit([]byte("oldest"), ratelimit.CategoryError)
	for i := 1; i < maxQueueDepth; i++ {
		w.Submit([]byte("keep"), ratelimit.CategoryError)
	}
	w.Submit([]byte("newest"), ratelimit.CategoryError)

	assert.Equal(t, maxQueueDepth, w.QueueLen())
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Equal(t, []byte("keep"), w.queue[0].envelope)
	assert.Equal(t, []byte("newest"), w.queue[maxQueueDepth-1].envelope)
}

func TestWorkerFlushZeroTimeoutReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	w := New(blockingSend(release), ratelimit.New())
	defer func() {
		close(release)
		w.Shutdown()
	}()

	w.Submit([]byte("blocker"), ratelimit.CategoryError)
	time.Sleep(20 * time.Millisecond)
	w.Submit([]byte("queued"), ratelimit.CategoryError)

	assert.False(t, w.Flush(0))
}

func TestWorkerFlushOnEmptyQueueReturnsTrue(t *testing.T) {
	w := New(func(ctx context.Context, envelope []byte) transport.Outcome {
		return transport.Outcome{}
	}, ratelimit.New())
	defer w.Shutdown()
	assert.True(t, w.Flush(0))
	assert.True(t, w.Flush(time.Second))
}

func TestWorkerSkipsSendWhenRateLimited(t *testing.T) {
	var calls int
	send := func(ctx context.Context, envelope []byte) transport.Outcome {
		calls++
		return transport.Outcome{}
	}
	ledger := ratelimit.New()
	ledger.Update(time.Now(), 60, "")
	w := New(send, ledger)
	defer w.Shutdown()

	w.Submit([]byte("dropped"), ratelimit.CategoryError)
	require.True(t, w.Flush(time.Second))
	assert.Equal(t, 0, calls)
}

func TestWorkerUpdatesLedgerFromOutcome(t *testing.T) {
	send := func(ctx context.Context, envelope []byte) transport.Outcome {
		return transport.Outcome{RateLimitsHeader: "60:error:organization"}
	}
	ledger := ratelimit.New()
	w := New(send, ledger)
	defer w.Shutdown()

	w.Submit([]byte("one"), ratelimit.CategoryError)
	require.True(t, w.Flush(time.Second))
	assert.False(t, ledger.MaySend(ratelimit.CategoryError, time.Now()))
}

func TestWorkerSubmitAfterShutdownIsNoop(t *testing.T) {
	w := New(func(ctx context.Context, envelope []byte) transport.Outcome {
		return transport.Outcome{}
	}, ratelimit.New())
	w.Shutdown()
	w.Submit([]byte("late"), ratelimit.CategoryError)
	assert.Equal(t, 0, w.QueueLen())
}
