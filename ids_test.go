// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventIDRoundTrip(t *testing.T) {
	id := NewEventID()
	assert.Len(t, id.String(), 32)

	parsed, err := ParseEventID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestNewEventIDUniqueness(t *testing.T) {
	const count = 200
	seen := make(map[EventID]struct{}, count)
	for range count {
		id := NewEventID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate event id generated: %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewSpanIDRoundTrip(t *testing.T) {
	id := NewSpanID()
	assert.Len(t, id.String(), 16)

	parsed, err := ParseSpanID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseEventIDRejectsWrongLength(t *testing.T) {
	_, err := ParseEventID("0123456789abcdef")
	require.Error(t, err)
}

func TestParseSpanIDRejectsWrongLength(t *testing.T) {
	_, err := ParseSpanID("0123456789abcdef0123456789abcdef")
	require.Error(t, err)
}

func TestFormatRFC3339(t *testing.T) {
	ts := time.UnixMilli(1740484800000).UTC()
	assert.Equal(t, "2025-02-25T12:00:00.000Z", FormatRFC3339(ts))
}

func TestParseRFC3339RoundTrip(t *testing.T) {
	const want = "2025-02-25T12:00:00.000Z"
	ts, err := ParseRFC3339(want)
	require.NoError(t, err)
	assert.Equal(t, want, FormatRFC3339(ts))
}

func TestUnixSeconds(t *testing.T) {
	ts := time.UnixMilli(1740484800500).UTC()
	assert.InDelta(t, 1740484800.5, UnixSeconds(ts), 0.001)
}
