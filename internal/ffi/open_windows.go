//go:build windows

package ffi

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

func openLibrary(path string) (uintptr, error) {
	handle, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, fmt.Errorf("cannot load %s: %w", path, err)
	}
	return uintptr(handle), nil
}

func lookup(handle uintptr, sym string) error {
	_, err := windows.GetProcAddress(windows.Handle(handle), sym)
	return err
}

func closeLibrary(handle uintptr) {
	_ = windows.FreeLibrary(windows.Handle(handle))
}

func readable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
