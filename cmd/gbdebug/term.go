package main

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/pkg/term"
)

// ttyWatcher puts the controlling terminal into cbreak mode for the length
// of a continue so that any key press stops the run. Without a terminal the
// run only stops on a breakpoint.
func ttyWatcher() (stop func() bool, release func()) {
	t, err := term.Open("/dev/tty", term.CBreakMode, term.ReadTimeout(50*time.Millisecond))
	if err != nil {
		return func() bool { return false }, func() {}
	}
	var hit atomic.Bool
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		buf := make([]byte, 1)
		for {
			select {
			case <-done:
				return
			default:
			}
			n, err := t.Read(buf)
			if n > 0 {
				hit.Store(true)
				return
			}
			if err != nil && err != io.EOF {
				return
			}
		}
	}()
	return hit.Load, func() {
		close(done)
		<-exited
		_ = t.Restore()
		_ = t.Close()
	}
}
