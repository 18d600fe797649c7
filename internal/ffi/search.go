package ffi

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/readmaker/corebridge/types"
)

// dlname returns the platform file name of the library called name.
func dlname(name string) string {
	if name == "" {
		name = types.LibraryName
	}
	switch runtime.GOOS {
	case "darwin", "ios":
		return "lib" + name + ".dylib"
	case "windows":
		return name + ".dll"
	default:
		return "lib" + name + ".so"
	}
}

// candidates lists the places the library is looked for, most specific
// first.
func candidates(opts types.LibraryOptions) []string {
	libName := dlname(opts.Name)

	paths := make([]string, 0, len(opts.SearchPaths)+6)
	for _, dir := range opts.SearchPaths {
		paths = append(paths, filepath.Join(dir, libName))
	}
	paths = append(paths,
		libName,
		filepath.Join("target", "release", libName),
		filepath.Join("target", "debug", libName),
	)
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		paths = append(paths,
			filepath.Join(execDir, libName),
			filepath.Join(execDir, "..", "lib", libName),
		)
		if runtime.GOOS == "darwin" {
			paths = append(paths, filepath.Join(execDir, "..", "Frameworks", libName))
		}
	}
	return paths
}

// Locate resolves the file to hand to the platform loader. An explicit Path
// wins; otherwise the first readable candidate is used. When nothing is
// found the bare file name is returned and the system loader searches its
// own paths (LD_LIBRARY_PATH, DYLD_LIBRARY_PATH, PATH).
func Locate(opts types.LibraryOptions) string {
	if opts.Path != "" {
		return opts.Path
	}
	for _, path := range candidates(opts) {
		if !readable(path) {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return dlname(opts.Name)
}
