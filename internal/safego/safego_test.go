package safego

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitOrFail(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error(msg)
	}
}

func TestGo_RunsFunction(t *testing.T) {
	var ran atomic.Bool
	done := make(chan struct{})

	Go(func() {
		ran.Store(true)
		close(done)
	})

	waitOrFail(t, done, "background task did not run within timeout")
	if !ran.Load() {
		t.Error("background task did not execute")
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	done := make(chan struct{})

	// A panicking task must not crash the process: the recover in Go fires
	// after the deferred close, so reaching the select proves both.
	Go(func() {
		defer close(done)
		panic("audit write exploded")
	})

	waitOrFail(t, done, "panicking task did not complete within timeout")
}

func TestGo_LaterTasksRunAfterPanic(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})

	Go(func() {
		defer close(first)
		panic("sweeper tick exploded")
	})
	waitOrFail(t, first, "first task did not complete")

	Go(func() { close(second) })
	waitOrFail(t, second, "second task did not run after an earlier panic")
}
