package api

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync/atomic"
)

// errNullString is returned when the engine hands back the null sentinel.
// Nothing was allocated, so nothing is released.
var errNullString = errors.New("engine returned null")

// nativeString is a string allocated by the engine's allocator. It is only
// ever constructed from a non-null pointer the engine returned, and it is
// consumed by copyAndDestroyNativeString. It never leaves this package.
type nativeString struct {
	owner    *Handle
	ptr      uintptr
	released atomic.Bool
	// acquiredAt is only recorded when string debugging is enabled
	acquiredAt string
}

// Debug flag to record where native strings were acquired
var debugNativeStrings atomic.Bool

// Stack depth for debug tracing
const debugStackDepth = 10

// EnableStringDebug toggles recording of acquisition call sites. The trace is
// attached to the error logged when a release is attempted twice.
func EnableStringDebug(enable bool) {
	debugNativeStrings.Store(enable)
}

// captureStack returns a simplified stack trace for debugging
func captureStack() string {
	if !debugNativeStrings.Load() {
		return ""
	}

	stack := make([]uintptr, debugStackDepth)
	length := runtime.Callers(3, stack)
	frames := runtime.CallersFrames(stack[:length])

	var trace []string
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			trace = append(trace, frame.Function)
		}
		if !more || len(trace) >= 5 {
			break
		}
	}
	return strings.Join(trace, " <- ")
}

// acquire takes ownership of a pointer returned by the engine.
func (h *Handle) acquire(ptr uintptr) *nativeString {
	h.acquired.Add(1)
	return &nativeString{owner: h, ptr: ptr, acquiredAt: captureStack()}
}

// release hands the string back to the engine allocator. Only the first call
// reaches js_free_string; later calls are no-ops.
func (s *nativeString) release(ctx context.Context) error {
	if !s.released.CompareAndSwap(false, true) {
		s.owner.logger.Error().
			Str("component", "memory").
			Str("acquired_at", s.acquiredAt).
			Msg("native string released twice, ignoring")
		return nil
	}
	ptr := s.ptr
	s.ptr = 0
	s.owner.released.Add(1)
	return s.owner.engine.FreeString(ctx, ptr)
}

// copyAndDestroyNativeString copies the content of s into Go memory and then
// releases s. The release is deferred so that it also happens when reading
// fails or panics; the bytes are never touched after the release.
func copyAndDestroyNativeString(ctx context.Context, s *nativeString) (out string, err error) {
	defer func() {
		if rerr := s.release(ctx); rerr != nil {
			s.owner.logger.Error().
				Str("component", "memory").
				Err(rerr).
				Msg("js_free_string failed")
		}
	}()

	bz, err := s.owner.engine.ReadString(s.ptr)
	if err != nil {
		return "", err
	}
	// string() copies, so out does not alias engine memory
	return string(bz), nil
}

// takeString turns the raw return value of a native call into a Go string.
func (h *Handle) takeString(ctx context.Context, ptr uintptr) (string, error) {
	if ptr == 0 {
		return "", errNullString
	}
	return copyAndDestroyNativeString(ctx, h.acquire(ptr))
}
