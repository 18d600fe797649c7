package ffi

import (
	"unsafe"
)

// cBytes returns the bytes of the NUL-terminated C string at c, without the
// terminator. It is the cgo free equivalent of C.GoBytes(p, C.strlen(p)),
// except that the result references the C memory instead of copying it.
func cBytes(c uintptr) []byte {
	// Convert the uintptr to an unsafe.Pointer while keeping it opaque to the
	// compiler.
	ptr := *(*unsafe.Pointer)(unsafe.Pointer(&c))
	if ptr == nil {
		return nil
	}

	// Determine the length by scanning until the terminating NUL.
	var n uintptr
	for *(*byte)(unsafe.Add(ptr, n)) != 0 {
		n++
	}
	if n == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(ptr), n)
}
