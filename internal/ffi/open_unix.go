//go:build darwin || freebsd || linux

package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

func openLibrary(path string) (uintptr, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, fmt.Errorf("cannot load %s: %w", path, err)
	}
	return handle, nil
}

func lookup(handle uintptr, sym string) error {
	_, err := purego.Dlsym(handle, sym)
	return err
}

func closeLibrary(handle uintptr) {
	_ = purego.Dlclose(handle)
}

// readable reports whether path names a file the current user may read.
func readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
