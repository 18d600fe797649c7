//go:build darwin || freebsd || linux || windows

// Package ffi binds libreadmaker_core through purego, so the native backend
// builds without cgo.
package ffi

import (
	"context"
	"errors"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/readmaker/corebridge/internal/api"
	"github.com/readmaker/corebridge/types"
)

// Library is an opened libreadmaker_core. It is never closed: the handle
// lives as long as the process.
type Library struct {
	path   string
	handle uintptr

	// C: char* js_analyze_text(const char* input)
	analyzeText func(input unsafe.Pointer) uintptr
	// C: char* js_test_bridge(void)
	testBridge func() uintptr
	// C: void js_free_string(char* ptr)
	freeString func(ptr uintptr)
}

var _ api.Engine = (*Library)(nil)

// Open locates and loads the library described by opts. Every symbol in
// api.RequiredSymbols is resolved up front; a missing one is reported as an
// *api.LinkError and the library is not used.
func Open(opts types.LibraryOptions) (*Library, error) {
	path := Locate(opts)
	handle, err := openLibrary(path)
	if err != nil {
		return nil, err
	}

	// RegisterLibFunc panics on a missing symbol, so check them all first
	for _, sym := range api.RequiredSymbols {
		if err := lookup(handle, sym); err != nil {
			closeLibrary(handle)
			return nil, &api.LinkError{Library: path, Symbol: sym, Err: err}
		}
	}

	lib := &Library{path: path, handle: handle}
	purego.RegisterLibFunc(&lib.analyzeText, handle, api.SymAnalyzeText)
	purego.RegisterLibFunc(&lib.testBridge, handle, api.SymTestBridge)
	purego.RegisterLibFunc(&lib.freeString, handle, api.SymFreeString)
	return lib, nil
}

// Loader adapts Open to api.Loader.
func Loader(opts types.LibraryOptions) api.Loader {
	return func() (api.Engine, api.LoadInfo, error) {
		info := api.LoadInfo{Backend: string(types.BackendNative)}
		lib, err := Open(opts)
		if err != nil {
			info.Path = Locate(opts)
			return nil, info, err
		}
		info.Path = lib.path
		return lib, info, nil
	}
}

func (l *Library) AnalyzeText(_ context.Context, input []byte) (uintptr, error) {
	if len(input) == 0 || input[len(input)-1] != 0 {
		return 0, errors.New("input is not NUL-terminated")
	}
	ptr := l.analyzeText(unsafe.Pointer(&input[0]))
	// the engine reads input during the call only
	runtime.KeepAlive(input)
	return ptr, nil
}

func (l *Library) TestBridge(context.Context) (uintptr, error) {
	return l.testBridge(), nil
}

func (l *Library) FreeString(_ context.Context, ptr uintptr) error {
	if ptr == 0 {
		return nil
	}
	l.freeString(ptr)
	return nil
}

// ReadString returns a view of the C string at ptr. The view aliases engine
// memory and must be copied before ptr is freed.
func (l *Library) ReadString(ptr uintptr) ([]byte, error) {
	if ptr == 0 {
		return nil, errors.New("read of null pointer")
	}
	return cBytes(ptr), nil
}
