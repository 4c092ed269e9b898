// Package signal cancels contexts on SIGINT/SIGTERM and lets critical
// sections hold that cancellation back until they finish.
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var guard struct {
	sync.Mutex
	depth   int
	pending []context.CancelFunc
}

// WithSignalCancel returns a context cancelled on SIGINT or SIGTERM. A
// signal received inside Critical cancels once the section ends.
func WithSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			deliver(cancel)
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func deliver(cancel context.CancelFunc) {
	guard.Lock()
	if guard.depth > 0 {
		guard.pending = append(guard.pending, cancel)
		guard.Unlock()
		return
	}
	guard.Unlock()
	cancel()
}

// Critical runs fn with signal cancellation deferred. Sections nest.
func Critical(fn func() error) error {
	guard.Lock()
	guard.depth++
	guard.Unlock()

	defer func() {
		guard.Lock()
		guard.depth--
		var pending []context.CancelFunc
		if guard.depth == 0 {
			pending, guard.pending = guard.pending, nil
		}
		guard.Unlock()
		for _, cancel := range pending {
			cancel()
		}
	}()

	return fn()
}
