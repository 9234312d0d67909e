// Package safego launches background goroutines that survive panics. The hub
// runs several fire-and-forget workers off the request path (async audit
// writes, last-used timestamp updates, the key lifecycle sweeper and expiry
// notifier), and a panic in any of them must not take the server down or
// silently kill the worker loop.
package safego

import "log/slog"

// Go runs fn on a new goroutine, recovering and logging any panic instead of
// crashing the process. Every fire-and-forget goroutine in the hub goes
// through here.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background task panicked", "panic", r)
			}
		}()
		fn()
	}()
}
