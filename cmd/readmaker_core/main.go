//go:build cgo

// Command readmaker_core builds the dictionary-free reference engine as a
// shared library exporting the readmaker_core C ABI:
//
//	go build -buildmode=c-shared -o libreadmaker_core.so ./cmd/readmaker_core
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/readmaker/corebridge/internal/engine"
)

//export js_analyze_text
func js_analyze_text(input *C.char) *C.char {
	if input == nil {
		return nil
	}
	return C.CString(engine.TokensJSON(C.GoString(input)))
}

//export js_test_bridge
func js_test_bridge() *C.char {
	return C.CString(engine.BridgeMessage)
}

//export js_free_string
func js_free_string(ptr *C.char) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

func main() {}
