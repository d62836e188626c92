//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package crashmarker

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// fatalSignals are the signals a process cannot survive.
var fatalSignals = []os.Signal{
	syscall.SIGSEGV,
	syscall.SIGABRT,
	syscall.SIGBUS,
	syscall.SIGILL,
	syscall.SIGFPE,
}

// installSignalHandlers arms fatalSignals against fd and returns a stop
// function that disarms them. The handler goroutine writes the marker
// with a single unix.Write call (the only allocation is one small
// fixed-capacity buffer for the marker line) and then restores the
// signal's default disposition and re-raises it, so the process still
// terminates and core-dumps the way it would have without this package
// installed.
func installSignalHandlers(fd int) (stop func()) {
	ch := make(chan os.Signal, len(fatalSignals))
	signal.Notify(ch, fatalSignals...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig, ok := <-ch:
				if !ok {
					return
				}
				writeMarker(fd, sig)
				reraise(sig)
				return
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// writeMarker encodes "signal:<N>\n" and writes it with a single system
// call. It avoids fmt and other allocating helpers on purpose: by the
// time this runs, the process may be in an arbitrarily corrupt state.
func writeMarker(fd int, sig os.Signal) {
	num := signalNumber(sig)
	buf := make([]byte, 0, len(markerPrefix)+12)
	buf = append(buf, markerPrefix...)
	buf = strconv.AppendInt(buf, int64(num), 10)
	buf = append(buf, '\n')
	_, _ = unix.Write(fd, buf)
}

func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 0
}

// reraise restores the signal's default disposition and re-sends it to
// this process so the usual fatal behavior (core dump, non-zero exit
// status) still happens.
func reraise(sig os.Signal) {
	signal.Reset(sig)
	if s, ok := sig.(syscall.Signal); ok {
		_ = unix.Kill(os.Getpid(), s)
	}
}
