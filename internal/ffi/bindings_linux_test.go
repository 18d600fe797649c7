package ffi

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmaker/corebridge/internal/api"
	"github.com/readmaker/corebridge/types"
)

// libc loads fine but exports none of the engine symbols.
const libc = "libc.so.6"

func TestOpenMissingSymbol(t *testing.T) {
	_, err := Open(types.LibraryOptions{Path: libc})
	require.Error(t, err)

	var linkErr *api.LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, api.SymAnalyzeText, linkErr.Symbol)
	assert.Equal(t, libc, linkErr.Library)
	assert.Contains(t, err.Error(), "undefined symbol js_analyze_text")
}

func TestLoaderMissingSymbolIsLibraryError(t *testing.T) {
	h := api.NewHandle(Loader(types.LibraryOptions{Path: libc}), zerolog.Nop())

	state := h.EnsureLoaded()
	require.Equal(t, types.LoadFailed, state.Status)
	assert.Equal(t, libc, state.Path)
	assert.Equal(t, types.BackendNative, state.Backend)
	assert.Contains(t, state.Reason, api.SymAnalyzeText)

	_, err := api.AnalyzeText(context.Background(), h, "猫")
	require.Error(t, err)
	assert.Equal(t, types.CodeLibrary, types.CodeOf(err))

	_, err = api.TestBridge(context.Background(), h)
	assert.Equal(t, types.CodeLibrary, types.CodeOf(err))
	assert.Equal(t, 1, h.LoadAttempts())
}
