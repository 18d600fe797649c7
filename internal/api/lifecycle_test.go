package api

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmaker/corebridge/internal/api/testengine"
	"github.com/readmaker/corebridge/types"
)

func loaderFor(e Engine) Loader {
	return func() (Engine, LoadInfo, error) {
		return e, LoadInfo{Path: "libreadmaker_core.so", Backend: "native"}, nil
	}
}

func failingLoader(reason string) Loader {
	return func() (Engine, LoadInfo, error) {
		return nil, LoadInfo{Path: "libreadmaker_core.so", Backend: "native"}, errors.New(reason)
	}
}

func TestEnsureLoadedSuccess(t *testing.T) {
	h := NewHandle(loaderFor(testengine.New()), zerolog.Nop())

	assert.Equal(t, types.Unloaded, h.State().Status)
	assert.Equal(t, 0, h.LoadAttempts())

	state := h.EnsureLoaded()
	require.Equal(t, types.Loaded, state.Status)
	assert.Empty(t, state.Reason)
	assert.Equal(t, "libreadmaker_core.so", state.Path)
	assert.Equal(t, types.BackendNative, state.Backend)
	assert.Equal(t, state, h.State())
}

func TestEnsureLoadedFailureIsPermanent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	calls := 0
	h := NewHandle(func() (Engine, LoadInfo, error) {
		calls++
		return nil, LoadInfo{Path: "libreadmaker_core.so"}, errors.New("cannot locate libreadmaker_core")
	}, logger)

	for i := 0; i < 5; i++ {
		state := h.EnsureLoaded()
		require.Equal(t, types.LoadFailed, state.Status)
		require.Equal(t, "cannot locate libreadmaker_core", state.Reason)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, h.LoadAttempts())

	// exactly one warning record
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`"level":"warn"`)))
	assert.Contains(t, buf.String(), "cannot locate libreadmaker_core")
}

func TestEnsureLoadedConcurrentFirstUse(t *testing.T) {
	var calls atomic.Int32
	eng := testengine.New()
	h := NewHandle(func() (Engine, LoadInfo, error) {
		calls.Add(1)
		return eng, LoadInfo{Backend: "native"}, nil
	}, zerolog.Nop())

	const goroutines = 32
	var wg sync.WaitGroup
	states := make([]types.LibraryState, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = h.EnsureLoaded()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, s := range states {
		assert.Equal(t, types.Loaded, s.Status)
	}
}

func TestStateDoesNotWaitForLoad(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	h := NewHandle(func() (Engine, LoadInfo, error) {
		close(started)
		<-gate
		return testengine.New(), LoadInfo{Backend: "native"}, nil
	}, zerolog.Nop())

	done := make(chan types.LibraryState)
	go func() { done <- h.EnsureLoaded() }()
	<-started

	// the loader is blocked, State still answers
	assert.Equal(t, types.Unloaded, h.State().Status)
	assert.Equal(t, 1, h.LoadAttempts())

	close(gate)
	state := <-done
	require.Equal(t, types.Loaded, state.Status)
	assert.Equal(t, state, h.State())
}

func TestEnsureLoadedRecoversLoaderPanic(t *testing.T) {
	h := NewHandle(func() (Engine, LoadInfo, error) {
		panic("dlopen exploded")
	}, zerolog.Nop())

	state := h.EnsureLoaded()
	require.Equal(t, types.LoadFailed, state.Status)
	assert.Contains(t, state.Reason, "dlopen exploded")
}

func TestEnsureLoadedNilEngine(t *testing.T) {
	h := NewHandle(func() (Engine, LoadInfo, error) {
		return nil, LoadInfo{}, nil
	}, zerolog.Nop())
	assert.Equal(t, types.LoadFailed, h.EnsureLoaded().Status)

	h = NewHandle(nil, zerolog.Nop())
	assert.Equal(t, "no loader configured", h.EnsureLoaded().Reason)
}
