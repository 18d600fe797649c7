package api

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/readmaker/corebridge/types"
)

// Handle owns one engine for the lifetime of the process. The engine is
// loaded on the first EnsureLoaded call and never reloaded, whether loading
// succeeded or not.
type Handle struct {
	loader Loader
	logger zerolog.Logger

	once     sync.Once
	attempts atomic.Int32
	state    types.LibraryState
	engine   Engine
	// published once load has finished
	snapshot atomic.Pointer[types.LibraryState]

	acquired atomic.Uint64
	released atomic.Uint64
}

// NewHandle creates an unloaded handle. The loader runs at most once.
func NewHandle(loader Loader, logger zerolog.Logger) *Handle {
	return &Handle{
		loader: loader,
		logger: logger,
		state:  types.LibraryState{Status: types.Unloaded},
	}
}

// EnsureLoaded loads the engine on first use and returns the cached state on
// every later call. A load failure is logged as a warning and kept for the
// lifetime of the handle.
func (h *Handle) EnsureLoaded() types.LibraryState {
	h.once.Do(h.load)
	return h.state
}

// State returns the current state without triggering a load and without
// waiting for one in progress. Until the first load has finished it reports
// Unloaded.
func (h *Handle) State() types.LibraryState {
	if s := h.snapshot.Load(); s != nil {
		return *s
	}
	return types.LibraryState{Status: types.Unloaded}
}

// LoadAttempts reports how many times the loader ran: 0 or 1.
func (h *Handle) LoadAttempts() int {
	return int(h.attempts.Load())
}

// Stats returns the native string ownership counters.
func (h *Handle) Stats() types.Stats {
	return types.Stats{
		Acquired: h.acquired.Load(),
		Released: h.released.Load(),
	}
}

func (h *Handle) load() {
	h.attempts.Add(1)
	defer func() {
		state := h.state
		h.snapshot.Store(&state)
	}()

	engine, info, err := h.safeLoad()
	if err != nil {
		h.state = types.LibraryState{
			Status:  types.LoadFailed,
			Reason:  err.Error(),
			Path:    info.Path,
			Backend: types.Backend(info.Backend),
		}
		h.logger.Warn().
			Str("component", "lifecycle").
			Str("backend", info.Backend).
			Str("library", info.Path).
			Err(err).
			Msg("analysis engine not available")
		return
	}

	h.engine = engine
	h.state = types.LibraryState{
		Status:  types.Loaded,
		Path:    info.Path,
		Backend: types.Backend(info.Backend),
	}
	h.logger.Debug().
		Str("component", "lifecycle").
		Str("backend", info.Backend).
		Str("library", info.Path).
		Msg("analysis engine loaded")
}

// safeLoad runs the loader, turning a panic into a load failure.
func (h *Handle) safeLoad() (engine Engine, info LoadInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine = nil
			err = fmt.Errorf("loader panicked: %v", r)
		}
	}()
	if h.loader == nil {
		return nil, LoadInfo{}, fmt.Errorf("no loader configured")
	}
	engine, info, err = h.loader()
	if err == nil && engine == nil {
		err = fmt.Errorf("loader returned no engine")
	}
	return engine, info, err
}
