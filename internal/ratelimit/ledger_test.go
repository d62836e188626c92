// SPDX-License-Identifier: GPL-3.0-or-later

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerMaySendDefaultsTrue(t *testing.T) {
	l := New()
	assert.True(t, l.MaySend(CategoryError, time.Now()))
}

func TestLedgerRetryAfterBlocksAny(t *testing.T) {
	l := New()
	now := time.Now()
	l.Update(now, 30, "")
	assert.False(t, l.MaySend(CategoryError, now))
	assert.False(t, l.MaySend(CategorySession, now))
	assert.True(t, l.MaySend(CategoryError, now.Add(31*time.Second)))
}

func TestLedgerCategoryDirectiveBlocksOnlyListedCategories(t *testing.T) {
	l := New()
	now := time.Now()
	l.Update(now, 0, "60:error;transaction:organization")
	assert.False(t, l.MaySend(CategoryError, now))
	assert.False(t, l.MaySend(CategoryTransaction, now))
	assert.True(t, l.MaySend(CategorySession, now))
}

func TestLedgerEmptyCategoryListBlocksAll(t *testing.T) {
	l := New()
	now := time.Now()
	l.Update(now, 0, "60::organization")
	assert.False(t, l.MaySend(CategorySession, now))
	assert.False(t, l.MaySend(CategoryAttachment, now))
}

func TestLedgerWindowInvariant(t *testing.T) {
	l := New()
	t0 := time.Now()
	const windowSeconds = 5
	l.Update(t0, 0, "5:session:organization")
	for i := 0; i < windowSeconds; i++ {
		assert.False(t, l.MaySend(CategorySession, t0.Add(time.Duration(i)*time.Second)))
	}
	assert.True(t, l.MaySend(CategorySession, t0.Add((windowSeconds+1)*time.Second)))
}

func TestLedgerDoesNotShortenActiveWindow(t *testing.T) {
	l := New()
	now := time.Now()
	l.Update(now, 0, "60:error:organization")
	l.Update(now, 0, "5:error:organization")
	assert.False(t, l.MaySend(CategoryError, now.Add(10*time.Second)))
}

func TestLedgerMultipleDirectives(t *testing.T) {
	l := New()
	now := time.Now()
	l.Update(now, 0, "10:error:organization,20:session:organization")
	assert.False(t, l.MaySend(CategoryError, now))
	assert.False(t, l.MaySend(CategorySession, now))
	assert.True(t, l.MaySend(CategoryError, now.Add(11*time.Second)))
	assert.False(t, l.MaySend(CategorySession, now.Add(11*time.Second)))
}
