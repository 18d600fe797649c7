package api

import (
	"context"
	"fmt"
)

// Engine is the C ABI exported by the analysis engine:
//
//	char* js_analyze_text(const char* input);
//	char* js_test_bridge(void);
//	void  js_free_string(char* ptr);
//
// Pointers are opaque to this package. A zero pointer is the null sentinel.
// ReadString returns the NUL-terminated bytes at ptr without the terminator.
// The slice may alias engine memory, so callers copy it before the pointer
// is freed. It is only ever called on a pointer that has not been freed yet.
type Engine interface {
	AnalyzeText(ctx context.Context, input []byte) (uintptr, error)
	TestBridge(ctx context.Context) (uintptr, error)
	FreeString(ctx context.Context, ptr uintptr) error
	ReadString(ptr uintptr) ([]byte, error)
}

// Loader opens an engine. It is invoked at most once per Handle.
type Loader func() (Engine, LoadInfo, error)

// LoadInfo describes where an engine was loaded from.
type LoadInfo struct {
	Path    string
	Backend string
}

// LinkError reports a symbol that could not be resolved in the engine.
type LinkError struct {
	Library string
	Symbol  string
	Err     error
}

func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("undefined symbol %s in %s: %v", e.Symbol, e.Library, e.Err)
	}
	return fmt.Sprintf("undefined symbol %s in %s", e.Symbol, e.Library)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Symbol names of the engine ABI.
const (
	SymAnalyzeText = "js_analyze_text"
	SymTestBridge  = "js_test_bridge"
	SymFreeString  = "js_free_string"
)

// RequiredSymbols lists every symbol that must resolve before the engine is
// considered loaded.
var RequiredSymbols = []string{SymAnalyzeText, SymTestBridge, SymFreeString}
