// Package testengine provides an in-memory stand-in for libreadmaker_core.
//
// It hands out fake pointers and keeps every allocation in a table, so tests
// can assert that each returned string is released exactly once and never
// read after release. Freed buffers are poisoned before they are dropped.
package testengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/readmaker/corebridge/internal/engine"
)

// Result describes what a stubbed native call returns. Null makes the call
// return the null sentinel; Err makes it fail, optionally together with a
// pointer to Payload when WithPointer is set.
type Result struct {
	Payload     string
	Null        bool
	Err         error
	WithPointer bool
}

// Engine records native calls. The zero value is not usable, use New.
type Engine struct {
	mu    sync.Mutex
	next  uintptr
	live  map[uintptr][]byte
	freed map[uintptr]bool

	analyze func(input string) Result
	bridge  func() Result
	freeErr error
	gate    <-chan struct{}

	analyzeCalls int
	bridgeCalls  int
	frees        int
	reads        int
	violations   []string
}

// New returns an engine behaving like the dictionary-free reference engine.
func New() *Engine {
	return &Engine{
		next:  0x1000,
		live:  make(map[uintptr][]byte),
		freed: make(map[uintptr]bool),
		analyze: func(input string) Result {
			return Result{Payload: engine.TokensJSON(input)}
		},
		bridge: func() Result {
			return Result{Payload: engine.BridgeMessage}
		},
	}
}

// OnAnalyze replaces the js_analyze_text behaviour.
func (e *Engine) OnAnalyze(fn func(input string) Result) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.analyze = fn
	return e
}

// OnTestBridge replaces the js_test_bridge behaviour.
func (e *Engine) OnTestBridge(fn func() Result) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bridge = fn
	return e
}

// FailFree makes every js_free_string report err after releasing.
func (e *Engine) FailFree(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.freeErr = err
	return e
}

// Gate blocks js_analyze_text until gate is closed or receives.
func (e *Engine) Gate(gate <-chan struct{}) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate = gate
	return e
}

func (e *Engine) AnalyzeText(_ context.Context, input []byte) (uintptr, error) {
	e.mu.Lock()
	e.analyzeCalls++
	fn, gate := e.analyze, e.gate
	if len(input) == 0 || input[len(input)-1] != 0 {
		e.violations = append(e.violations, "input is not NUL-terminated")
	}
	e.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return e.produce(fn(string(bytes.TrimSuffix(input, []byte{0}))))
}

func (e *Engine) TestBridge(context.Context) (uintptr, error) {
	e.mu.Lock()
	e.bridgeCalls++
	fn := e.bridge
	e.mu.Unlock()
	return e.produce(fn())
}

func (e *Engine) produce(res Result) (uintptr, error) {
	if res.Err != nil {
		if res.WithPointer {
			return e.alloc(res.Payload), res.Err
		}
		return 0, res.Err
	}
	if res.Null {
		return 0, nil
	}
	return e.alloc(res.Payload), nil
}

func (e *Engine) alloc(payload string) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	ptr := e.next
	e.next += uintptr(len(payload)) + 16
	buf := make([]byte, len(payload)+1)
	copy(buf, payload)
	e.live[ptr] = buf
	return ptr
}

func (e *Engine) ReadString(ptr uintptr) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reads++
	buf, ok := e.live[ptr]
	if !ok {
		if e.freed[ptr] {
			e.violations = append(e.violations, fmt.Sprintf("read after free of %#x", ptr))
			return nil, errors.New("read after free")
		}
		e.violations = append(e.violations, fmt.Sprintf("read of unknown pointer %#x", ptr))
		return nil, errors.New("unknown pointer")
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return buf[:i], nil
	}
	return buf, nil
}

func (e *Engine) FreeString(_ context.Context, ptr uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch buf, ok := e.live[ptr]; {
	case ptr == 0:
		e.violations = append(e.violations, "free of null pointer")
	case ok:
		for i := range buf {
			buf[i] = 0xdd
		}
		delete(e.live, ptr)
		e.freed[ptr] = true
		e.frees++
	case e.freed[ptr]:
		e.violations = append(e.violations, fmt.Sprintf("double free of %#x", ptr))
	default:
		e.violations = append(e.violations, fmt.Sprintf("free of foreign pointer %#x", ptr))
	}
	return e.freeErr
}

// AnalyzeCalls is the number of js_analyze_text invocations.
func (e *Engine) AnalyzeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyzeCalls
}

// BridgeCalls is the number of js_test_bridge invocations.
func (e *Engine) BridgeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bridgeCalls
}

// NativeCalls is the total number of engine entry points invoked.
func (e *Engine) NativeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyzeCalls + e.bridgeCalls
}

// Frees is the number of successful js_free_string calls.
func (e *Engine) Frees() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frees
}

// Live is the number of strings allocated and not yet freed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Violations lists every protocol breach observed so far.
func (e *Engine) Violations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.violations...)
}
