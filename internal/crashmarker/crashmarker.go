// SPDX-License-Identifier: GPL-3.0-or-later

// Package crashmarker implements a POSIX crash-signal marker: a signal
// handler that, on a fatal signal, writes a single small marker line to
// a pre-opened file descriptor using only async-signal-safe operations,
// so that the next process start-up can detect and report the previous
// run's crash.
package crashmarker

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// markerPrefix begins every marker line; the remainder is the signal
// number as decimal digits.
const markerPrefix = "signal:"

// Info describes a crash marker found on disk by [Replay].
type Info struct {
	// Signal is the numeric signal value (SIGSEGV, SIGABRT, ...) that was
	// active when the marker was written.
	Signal int
}

var (
	mu       sync.Mutex
	refcount int
	stopFn   func()
)

// Install arms the crash-signal handler, writing future crash markers to
// path. Nested calls are reference-counted: the handler stays armed until
// a matching number of [Uninstall] calls. The file is created if absent
// and truncated if present, on the assumption that any marker left over
// from the previous run has already been consumed via [Replay].
func Install(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if refcount > 0 {
		refcount++
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("crashmarker: open %s: %w", path, err)
	}

	stop := installSignalHandlers(int(f.Fd()))
	stopFn = func() {
		stop()
		f.Close()
	}
	refcount = 1
	return nil
}

// Uninstall reverses one [Install] call. The handler is disarmed only
// once the reference count reaches zero.
func Uninstall() {
	mu.Lock()
	defer mu.Unlock()

	if refcount == 0 {
		return
	}
	refcount--
	if refcount == 0 && stopFn != nil {
		stopFn()
		stopFn = nil
	}
}

// Replay reads and clears any crash marker left at path by a previous
// process. It reports ok=false (with a nil error) when no marker exists,
// which is the common case.
func Replay(path string) (info Info, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, false, nil
		}
		return Info{}, false, fmt.Errorf("crashmarker: open %s: %w", path, err)
	}
	defer f.Close()

	line, _ := bufio.NewReader(f).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, markerPrefix) {
		_ = os.Remove(path)
		return Info{}, false, nil
	}

	n, perr := strconv.Atoi(strings.TrimPrefix(line, markerPrefix))
	_ = os.Remove(path)
	if perr != nil {
		return Info{}, false, nil
	}
	return Info{Signal: n}, true, nil
}

// signalNames maps the five signals this package watches (see
// fatalSignals in unix.go) to their POSIX names. The numeric values are
// the Linux ones (x86 and ARM); SIGILL, SIGABRT, SIGFPE and SIGSEGV have
// the same numbers on Darwin, but Darwin's SIGBUS is 10, which this table
// reports as "SIGUNKNOWN". They are listed here directly rather than
// pulled from a platform package because this function must also compile
// on non-unix targets.
var signalNames = map[int]string{
	4:  "SIGILL",
	6:  "SIGABRT",
	7:  "SIGBUS",
	8:  "SIGFPE",
	11: "SIGSEGV",
}

// SignalName returns the POSIX name for one of the signals this package
// watches, or "SIGUNKNOWN" for anything else.
func SignalName(n int) string {
	if name, ok := signalNames[n]; ok {
		return name
	}
	return "SIGUNKNOWN"
}
