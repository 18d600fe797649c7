//go:build !(darwin || freebsd || linux || windows)

package ffi

import (
	"fmt"
	"os"
	"runtime"

	"github.com/readmaker/corebridge/internal/api"
	"github.com/readmaker/corebridge/types"
)

// Loader reports the native backend as unavailable on this platform.
func Loader(opts types.LibraryOptions) api.Loader {
	return func() (api.Engine, api.LoadInfo, error) {
		info := api.LoadInfo{Path: Locate(opts), Backend: string(types.BackendNative)}
		return nil, info, fmt.Errorf("native backend is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
	}
}

func readable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
