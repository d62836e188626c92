// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkTransportWritesUniqueFiles(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileSinkTransport(dir)
	require.NoError(t, err)

	o1 := fs.Send(context.Background(), []byte("envelope-one"))
	o2 := fs.Send(context.Background(), []byte("envelope-two"))
	require.NoError(t, o1.Err)
	require.NoError(t, o2.Err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].Name(), entries[1].Name())
}

func TestFileSinkTransportCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "sink")
	fs, err := NewFileSinkTransport(dir)
	require.NoError(t, err)
	o := fs.Send(context.Background(), []byte("x"))
	require.NoError(t, o.Err)

	_, err = os.Stat(dir)
	require.NoError(t, err)
}
