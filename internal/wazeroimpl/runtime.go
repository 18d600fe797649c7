// Package wazeroimpl runs readmaker_core compiled to wasm32 inside wazero.
// It exposes the same three entry points as the shared library, plus the
// allocator exports the host needs to pass input into guest memory.
package wazeroimpl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/tetratelabs/wazero"
	wapi "github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/readmaker/corebridge/internal/api"
	"github.com/readmaker/corebridge/types"
)

// Guest exports beyond api.RequiredSymbols.
const (
	symMemory  = "memory"
	symAlloc   = "js_alloc"
	symDealloc = "js_dealloc"
)

// DefaultMemoryLimitPages caps guest memory at 256 MiB.
const DefaultMemoryLimitPages = 4096

// Engine is one instance of the wasm engine. Guest calls are serialized:
// a wasm instance is single threaded.
type Engine struct {
	path    string
	mapping mmap.MMap

	mu      sync.Mutex
	runtime wazero.Runtime
	memory  wapi.Memory

	analyzeText wapi.Function
	testBridge  wapi.Function
	freeString  wapi.Function
	alloc       wapi.Function
	dealloc     wapi.Function
}

var _ api.Engine = (*Engine)(nil)

// Open compiles and instantiates the wasm engine at path. The file is mapped
// read-only for the lifetime of the engine instead of being copied onto the
// heap.
func Open(ctx context.Context, path string) (*Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open wasm engine: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat wasm engine: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("wasm engine %s is empty", path)
	}
	mapping, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("could not map wasm engine: %w", err)
	}

	e, err := instantiate(ctx, path, mapping)
	if err != nil {
		_ = mapping.Unmap()
		return nil, err
	}
	e.mapping = mapping
	return e, nil
}

func instantiate(ctx context.Context, path string, wasm []byte) (*Engine, error) {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(DefaultMemoryLimitPages))

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("could not compile wasm engine: %w", err)
	}
	// engines built for wasm32-wasip1 import WASI, plain wasm32 builds ignore it
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("could not instantiate WASI: %w", err)
	}
	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().
		WithName(types.LibraryName).
		WithStartFunctions("_initialize"))
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("could not instantiate wasm engine: %w", err)
	}

	e := &Engine{path: path, runtime: r, memory: mod.ExportedMemory(symMemory)}
	if e.memory == nil {
		r.Close(ctx)
		return nil, &api.LinkError{Library: path, Symbol: symMemory}
	}

	exports := []struct {
		name string
		fn   *wapi.Function
	}{
		{api.SymAnalyzeText, &e.analyzeText},
		{api.SymTestBridge, &e.testBridge},
		{api.SymFreeString, &e.freeString},
		{symAlloc, &e.alloc},
		{symDealloc, &e.dealloc},
	}
	for _, exp := range exports {
		fn := mod.ExportedFunction(exp.name)
		if fn == nil {
			r.Close(ctx)
			return nil, &api.LinkError{Library: path, Symbol: exp.name}
		}
		*exp.fn = fn
	}
	return e, nil
}

// Loader adapts Open to api.Loader.
func Loader(path string) api.Loader {
	return func() (api.Engine, api.LoadInfo, error) {
		info := api.LoadInfo{Path: path, Backend: string(types.BackendWasm)}
		if path == "" {
			return nil, info, errors.New("no wasm engine path configured")
		}
		e, err := Open(context.Background(), path)
		if err != nil {
			return nil, info, err
		}
		return e, info, nil
	}
}

// Close tears down the runtime and unmaps the engine file.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.runtime != nil {
		err = e.runtime.Close(ctx)
		e.runtime = nil
	}
	if e.mapping != nil {
		if uerr := e.mapping.Unmap(); err == nil {
			err = uerr
		}
		e.mapping = nil
	}
	return err
}

func (e *Engine) AnalyzeText(ctx context.Context, input []byte) (uintptr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inPtr, err := e.writeInput(ctx, input)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = e.dealloc.Call(ctx, uint64(inPtr), uint64(len(input)))
	}()

	res, err := e.analyzeText.Call(ctx, uint64(inPtr))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", api.SymAnalyzeText, err)
	}
	return uintptr(uint32(res[0])), nil
}

func (e *Engine) TestBridge(ctx context.Context) (uintptr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.testBridge.Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", api.SymTestBridge, err)
	}
	return uintptr(uint32(res[0])), nil
}

func (e *Engine) FreeString(ctx context.Context, ptr uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.freeString.Call(ctx, uint64(ptr)); err != nil {
		return fmt.Errorf("%s: %w", api.SymFreeString, err)
	}
	return nil
}

// ReadString copies the NUL-terminated string at ptr out of guest memory.
func (e *Engine) ReadString(ptr uintptr) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return readCString(e.memory, uint32(ptr))
}

// writeInput copies input into a buffer obtained from js_alloc.
func (e *Engine) writeInput(ctx context.Context, input []byte) (uint32, error) {
	res, err := e.alloc.Call(ctx, uint64(len(input)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", symAlloc, err)
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return 0, fmt.Errorf("%s returned null for %d bytes", symAlloc, len(input))
	}
	if !e.memory.Write(ptr, input) {
		_, _ = e.dealloc.Call(ctx, uint64(ptr), uint64(len(input)))
		return 0, fmt.Errorf("input of %d bytes does not fit at %#x", len(input), ptr)
	}
	return ptr, nil
}

// readCString returns a copy of the bytes at ptr up to the first NUL.
// Memory.Read returns a view that is invalidated when memory grows, so the
// result never aliases guest memory.
func readCString(mem wapi.Memory, ptr uint32) ([]byte, error) {
	size := mem.Size()
	if ptr >= size {
		return nil, fmt.Errorf("pointer %#x outside guest memory of %d bytes", ptr, size)
	}
	view, ok := mem.Read(ptr, size-ptr)
	if !ok {
		return nil, fmt.Errorf("could not read guest memory at %#x", ptr)
	}
	n := bytes.IndexByte(view, 0)
	if n < 0 {
		return nil, fmt.Errorf("string at %#x is not NUL-terminated", ptr)
	}
	return bytes.Clone(view[:n]), nil
}
