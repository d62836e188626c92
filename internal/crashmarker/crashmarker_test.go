// SPDX-License-Identifier: GPL-3.0-or-later

package crashmarker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayNoMarkerReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")
	info, ok, err := Replay(path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, info.Signal)
}

func TestReplayParsesAndClearsMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(path, []byte("signal:11\n"), 0o600))

	info, ok, err := Replay(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 11, info.Signal)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReplayIgnoresGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(path, []byte("not a marker"), 0o600))

	_, ok, err := Replay(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstallUninstallIsReferenceCounted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")

	require.NoError(t, Install(path))
	require.NoError(t, Install(path))
	assert.Equal(t, 2, refcount)

	Uninstall()
	assert.Equal(t, 1, refcount)
	Uninstall()
	assert.Equal(t, 0, refcount)

	// A stray extra Uninstall must not underflow the counter.
	Uninstall()
	assert.Equal(t, 0, refcount)
}

func TestInstallCreatesMarkerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, Install(path))
	defer Uninstall()

	_, err := os.Stat(path)
	require.NoError(t, err)
}

// TestInstallTruncatesExistingMarker documents why callers must Replay
// before they Install: arming the handler truncates whatever marker is
// already on disk, which would be the previous run's crash if read
// after this point.
func TestInstallTruncatesExistingMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(path, []byte("signal:11\n"), 0o600))

	require.NoError(t, Install(path))
	defer Uninstall()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, contents)
}
