//go:build darwin || freebsd || linux

package ffi

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmaker/corebridge/types"
)

func TestOpenMissingLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libreadmaker_core.so")
	_, err := Open(types.LibraryOptions{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoaderReportsPathOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "libreadmaker_core.so")
	engine, info, err := Loader(types.LibraryOptions{Path: path})()
	require.Error(t, err)
	assert.Nil(t, engine)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, "native", info.Backend)
}

func TestLibraryRejectsUnterminatedInput(t *testing.T) {
	lib := &Library{}
	_, err := lib.AnalyzeText(context.Background(), []byte("猫"))
	require.Error(t, err)
	_, err = lib.AnalyzeText(context.Background(), nil)
	require.Error(t, err)

	_, err = lib.ReadString(0)
	require.Error(t, err)
	// freeing null never reaches the library
	require.NoError(t, lib.FreeString(context.Background(), 0))
}
