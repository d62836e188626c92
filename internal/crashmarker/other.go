//go:build !unix

// SPDX-License-Identifier: GPL-3.0-or-later

package crashmarker

// installSignalHandlers is a no-op on platforms without POSIX signal
// semantics. Windows structured-exception crash capture would need a
// different mechanism entirely and is out of scope here.
func installSignalHandlers(fd int) (stop func()) {
	return func() {}
}
