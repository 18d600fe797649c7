package corebridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/readmaker/corebridge/types"
)

// Promise is the eventual outcome of a bridge call. It settles exactly once,
// either resolved with a value or rejected with a *types.BridgeError.
type Promise[T any] struct {
	op   types.Operation
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newPromise[T any](op types.Operation) *Promise[T] {
	return &Promise[T]{op: op, done: make(chan struct{})}
}

func resolved[T any](op types.Operation, v T) *Promise[T] {
	p := newPromise[T](op)
	p.settle(v, nil)
	return p
}

func rejected[T any](op types.Operation, err error) *Promise[T] {
	p := newPromise[T](op)
	var zero T
	p.settle(zero, err)
	return p
}

// settle records the outcome. Only the first call has an effect.
func (p *Promise[T]) settle(v T, err error) {
	p.once.Do(func() {
		p.val, p.err = v, err
		close(p.done)
	})
}

// Done is closed once the promise has settled.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx ends. Giving up on the
// promise does not cancel the native call behind it; the call still runs to
// completion and releases its result.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	default:
	}
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, types.NewNativeCallFailed(p.op, fmt.Sprintf("stopped waiting: %v", ctx.Err()))
	}
}

// Result blocks until the promise settles.
func (p *Promise[T]) Result() (T, error) {
	<-p.done
	return p.val, p.err
}
