package corebridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/readmaker/corebridge/types"
)

// executor runs bridge tasks on their own goroutines, so a promise is never
// fulfilled on the caller's goroutine. With a positive worker count the
// number of tasks inside the engine at once is bounded.
type executor struct {
	sem     chan struct{}
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newExecutor(workers int, timeout time.Duration) *executor {
	e := &executor{timeout: timeout}
	if workers > 0 {
		e.sem = make(chan struct{}, workers)
	}
	return e
}

// submit schedules task and returns its promise. A context that is already
// done, or an executor that was closed, rejects without scheduling. Once
// running, the task is not cancelled: it receives a context stripped of
// cancellation so the engine call and the release of its result always
// complete.
func submit[T any](e *executor, ctx context.Context, op types.Operation, task func(context.Context) (T, error)) *Promise[T] {
	if err := ctx.Err(); err != nil {
		return rejected[T](op, types.NewNativeCallFailed(op, fmt.Sprintf("not dispatched: %v", err)))
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return rejected[T](op, types.NewNativeCallFailed(op, "not dispatched: bridge closed"))
	}
	e.wg.Add(1)
	e.mu.Unlock()

	p := newPromise[T](op)
	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() {
			var zero T
			p.settle(zero, types.NewNativeCallFailed(op, fmt.Sprintf("timed out after %s", e.timeout)))
		})
		go func() {
			<-p.done
			timer.Stop()
		}()
	}

	go func() {
		defer e.wg.Done()
		if e.sem != nil {
			select {
			case e.sem <- struct{}{}:
				defer func() { <-e.sem }()
			case <-ctx.Done():
				var zero T
				p.settle(zero, types.NewNativeCallFailed(op, fmt.Sprintf("not dispatched: %v", ctx.Err())))
				return
			case <-p.done:
				// timed out while queued
				return
			}
		}
		v, err := task(context.WithoutCancel(ctx))
		p.settle(v, err)
	}()
	return p
}

// close stops accepting tasks and blocks until every submitted task has
// finished. It reports false if the executor was already closed.
func (e *executor) close() bool {
	e.mu.Lock()
	first := !e.closed
	e.closed = true
	e.mu.Unlock()

	e.wg.Wait()
	return first
}
