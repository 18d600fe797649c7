package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/readmaker/corebridge/types"
)

// IsBlank reports whether text has nothing to analyze. The empty string is
// the Go stand-in for a null input.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// EncodeInput converts text into the NUL-terminated UTF-8 buffer the engine
// expects. Text that cannot be represented as a C string is rejected instead
// of being repaired.
func EncodeInput(op types.Operation, text string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, types.NewInvalidInput(op, "input is not valid UTF-8")
	}
	if i := strings.IndexByte(text, 0); i >= 0 {
		return nil, types.NewInvalidInput(op, fmt.Sprintf("input contains a NUL byte at offset %d", i))
	}
	buf := make([]byte, len(text)+1)
	copy(buf, text)
	return buf, nil
}

// AnalyzeText runs the morphological analysis on text and returns a Go owned
// copy of the JSON payload. Blank input short-circuits to "[]" without
// touching the library.
func AnalyzeText(ctx context.Context, h *Handle, text string) (string, error) {
	const op = types.OpAnalyzeText
	if IsBlank(text) {
		return types.EmptyResult, nil
	}
	input, err := EncodeInput(op, text)
	if err != nil {
		return "", err
	}
	if err := h.checkLoaded(op); err != nil {
		return "", err
	}
	return h.call(ctx, op, func() (uintptr, error) {
		return h.engine.AnalyzeText(ctx, input)
	})
}

// TestBridge calls js_test_bridge and returns its diagnostic payload.
func TestBridge(ctx context.Context, h *Handle) (string, error) {
	const op = types.OpTestBridge
	if err := h.checkLoaded(op); err != nil {
		return "", err
	}
	return h.call(ctx, op, func() (uintptr, error) {
		return h.engine.TestBridge(ctx)
	})
}

func (h *Handle) checkLoaded(op types.Operation) error {
	state := h.EnsureLoaded()
	if state.Status != types.Loaded {
		return types.NewLibraryUnavailable(op, state.Reason)
	}
	return nil
}

// call performs one native call and converts its outcome. A pointer that
// comes back together with an error is still released.
func (h *Handle) call(ctx context.Context, op types.Operation, fn func() (uintptr, error)) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = types.NewNativeCallFailed(op, fmt.Sprintf("panic: %v", r))
		}
	}()

	ptr, callErr := fn()
	if callErr != nil {
		if ptr != 0 {
			h.discard(ctx, ptr)
		}
		return "", classify(op, callErr)
	}

	out, err = h.takeString(ctx, ptr)
	switch {
	case errors.Is(err, errNullString):
		return "", types.NewNativeReturnedNull(op)
	case err != nil:
		return "", classify(op, err)
	}
	return out, nil
}

// discard releases a native string whose content is not needed.
func (h *Handle) discard(ctx context.Context, ptr uintptr) {
	s := h.acquire(ptr)
	if err := s.release(ctx); err != nil {
		h.logger.Error().
			Str("component", "memory").
			Err(err).
			Msg("js_free_string failed")
	}
}

func classify(op types.Operation, err error) error {
	var be *types.BridgeError
	if errors.As(err, &be) {
		return be
	}
	var linkErr *LinkError
	if errors.As(err, &linkErr) {
		return types.NewLibraryUnavailable(op, linkErr.Error())
	}
	return types.NewNativeCallFailed(op, err.Error())
}
