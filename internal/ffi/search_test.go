package ffi

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmaker/corebridge/types"
)

func TestDlname(t *testing.T) {
	name := dlname("")
	switch runtime.GOOS {
	case "darwin", "ios":
		assert.Equal(t, "libreadmaker_core.dylib", name)
	case "windows":
		assert.Equal(t, "readmaker_core.dll", name)
	default:
		assert.Equal(t, "libreadmaker_core.so", name)
	}
	assert.Contains(t, dlname("custom_engine"), "custom_engine")
}

func TestLocateExplicitPath(t *testing.T) {
	opts := types.LibraryOptions{Path: "/opt/readmaker/libreadmaker_core.so", SearchPaths: []string{t.TempDir()}}
	assert.Equal(t, "/opt/readmaker/libreadmaker_core.so", Locate(opts))
}

func TestLocateSearchPaths(t *testing.T) {
	empty := t.TempDir()
	dir := t.TempDir()
	lib := filepath.Join(dir, dlname(""))
	require.NoError(t, os.WriteFile(lib, []byte("not really an ELF"), 0o644))

	got := Locate(types.LibraryOptions{SearchPaths: []string{empty, dir}})
	assert.Equal(t, lib, got)
}

func TestLocateFallsBackToLoaderSearch(t *testing.T) {
	got := Locate(types.LibraryOptions{SearchPaths: []string{t.TempDir()}})
	assert.Equal(t, dlname(""), got)
}

func TestCandidatesOrder(t *testing.T) {
	paths := candidates(types.LibraryOptions{SearchPaths: []string{"/a", "/b"}})
	require.GreaterOrEqual(t, len(paths), 5)
	assert.Equal(t, filepath.Join("/a", dlname("")), paths[0])
	assert.Equal(t, filepath.Join("/b", dlname("")), paths[1])
	assert.Equal(t, dlname(""), paths[2])
}
