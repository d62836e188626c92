// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTransportRecordsSends(t *testing.T) {
	m := NewMemoryTransport(Outcome{})
	m.Send(context.Background(), []byte("one"))
	m.Send(context.Background(), []byte("two"))

	sent := m.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, []byte("one"), sent[0])
	assert.Equal(t, []byte("two"), sent[1])
}

func TestMemoryTransportSentIsACopy(t *testing.T) {
	m := NewMemoryTransport(Outcome{})
	buf := []byte("mutable")
	m.Send(context.Background(), buf)
	buf[0] = 'X'

	assert.Equal(t, byte('m'), m.Sent()[0][0])
}

func TestMemoryTransportClose(t *testing.T) {
	m := NewMemoryTransport(Outcome{})
	assert.False(t, m.Closed())
	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}
