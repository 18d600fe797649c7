// Package corebridge exposes the readmaker_core analysis engine to Go
// callers. Calls are dispatched to worker goroutines and answered through a
// Promise; every failure is reported as a *types.BridgeError carrying one of
// the codes LIBRARY_ERROR, ANALYSIS_ERROR or BRIDGE_ERROR.
package corebridge

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/readmaker/corebridge/internal/api"
	"github.com/readmaker/corebridge/internal/cache"
	"github.com/readmaker/corebridge/internal/ffi"
	"github.com/readmaker/corebridge/internal/wazeroimpl"
	"github.com/readmaker/corebridge/types"
)

// Bridge is the main entry point to this library. It owns one engine handle,
// loaded on first use and kept for the lifetime of the Bridge.
type Bridge struct {
	cfg    types.BridgeConfig
	logger zerolog.Logger
	handle *api.Handle
	cache  *cache.Store
	exec   *executor
}

type options struct {
	logger *zerolog.Logger
	loader api.Loader
}

// Option customizes a Bridge.
type Option func(*options)

// WithLogger sets the logger. The default logs warnings and errors to stderr.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithLoader replaces the engine loader selected by the configuration.
func WithLoader(loader Loader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

func defaultLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

// New creates a Bridge. Nothing is loaded until the first call that needs
// the engine.
func New(cfg types.BridgeConfig, opts ...Option) (*Bridge, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}

	logger := defaultLogger()
	if o.logger != nil {
		logger = *o.logger
	}
	loader := o.loader
	if loader == nil {
		loader = loaderFor(cfg)
	}

	var store *cache.Store
	if cfg.Cache.Enabled {
		var err error
		store, err = cache.Open(cfg.Cache)
		if err != nil {
			return nil, err
		}
	}

	return &Bridge{
		cfg:    cfg,
		logger: logger,
		handle: api.NewHandle(loader, logger),
		cache:  store,
		exec:   newExecutor(cfg.Workers, cfg.CallTimeout.Std()),
	}, nil
}

// loaderFor picks the engine backend named in cfg.
func loaderFor(cfg types.BridgeConfig) api.Loader {
	if cfg.Library.Backend == types.BackendWasm {
		return wazeroimpl.Loader(cfg.Library.WasmPath)
	}
	return ffi.Loader(cfg.Library)
}

// failedLoader reports err as the load failure.
func failedLoader(err error) api.Loader {
	return func() (api.Engine, api.LoadInfo, error) {
		return nil, api.LoadInfo{}, err
	}
}

var (
	defaultOnce   sync.Once
	defaultBridge *Bridge
)

// Default returns the process wide Bridge for the fixed library name
// readmaker_core, configured from the READMAKER_* environment variables. It
// never fails: a configuration problem surfaces as LIBRARY_ERROR on use.
func Default() *Bridge {
	defaultOnce.Do(func() {
		cfg := types.DefaultConfig().ApplyEnv()
		b, err := New(cfg)
		if err != nil {
			b = &Bridge{
				cfg:    cfg,
				logger: defaultLogger(),
				exec:   newExecutor(0, 0),
			}
			b.handle = api.NewHandle(failedLoader(err), b.logger)
		}
		defaultBridge = b
	})
	return defaultBridge
}

// AnalyzeText runs AnalyzeText on the Default bridge.
func AnalyzeText(ctx context.Context, text string) *Promise[string] {
	return Default().AnalyzeText(ctx, text)
}

// TestBridge runs TestBridge on the Default bridge.
func TestBridge(ctx context.Context) *Promise[string] {
	return Default().TestBridge(ctx)
}

// AnalyzeText analyzes text and resolves with the engine's JSON payload,
// byte for byte. Blank text resolves with "[]" without touching the engine.
// Text that is not valid UTF-8 or contains a NUL byte is rejected before
// dispatch.
func (b *Bridge) AnalyzeText(ctx context.Context, text string) *Promise[string] {
	const op = types.OpAnalyzeText
	if api.IsBlank(text) {
		return resolved(op, types.EmptyResult)
	}
	if _, err := api.EncodeInput(op, text); err != nil {
		b.logFailure(op, err)
		return rejected[string](op, err)
	}
	return submit(b.exec, ctx, op, func(ctx context.Context) (string, error) {
		out, err := b.analyze(ctx, text)
		if err != nil {
			b.logFailure(op, err)
		}
		return out, err
	})
}

// TestBridge calls the engine's self test and resolves with its message.
func (b *Bridge) TestBridge(ctx context.Context) *Promise[string] {
	const op = types.OpTestBridge
	return submit(b.exec, ctx, op, func(ctx context.Context) (string, error) {
		out, err := api.TestBridge(ctx, b.handle)
		if err != nil {
			b.logFailure(op, err)
		}
		return out, err
	})
}

func (b *Bridge) analyze(ctx context.Context, text string) (string, error) {
	cached := b.cache != nil && b.handle.EnsureLoaded().Loaded()
	if cached {
		payload, ok, err := b.cache.Get(text)
		switch {
		case err != nil:
			b.logger.Warn().Str("component", "cache").Err(err).Msg("cache lookup failed")
		case ok:
			return payload, nil
		}
	}

	out, err := api.AnalyzeText(ctx, b.handle, text)
	if err != nil {
		return "", err
	}
	if cached && out != "" && out != types.EmptyResult {
		if err := b.cache.Put(text, out, b.handle.State().Backend); err != nil {
			b.logger.Warn().Str("component", "cache").Err(err).Msg("cache store failed")
		}
	}
	return out, nil
}

func (b *Bridge) logFailure(op types.Operation, err error) {
	code := types.CodeOf(err)
	ev := b.logger.Error()
	if code == types.CodeLibrary {
		// the load failure itself was already logged once
		ev = b.logger.Debug()
	}
	ev.Str("component", "bridge").
		Str("op", string(op)).
		Str("code", string(code)).
		Err(err).
		Msg("call rejected")
}

// Analyze is the blocking form of AnalyzeText.
func (b *Bridge) Analyze(ctx context.Context, text string) (string, error) {
	return b.AnalyzeText(ctx, text).Await(ctx)
}

// Ping is the blocking form of TestBridge.
func (b *Bridge) Ping(ctx context.Context) (string, error) {
	return b.TestBridge(ctx).Await(ctx)
}

// AnalyzeBatch analyzes every text concurrently and returns the payloads in
// input order. The first rejection, in input order, is returned.
func (b *Bridge) AnalyzeBatch(ctx context.Context, texts []string) ([]string, error) {
	promises := make([]*Promise[string], len(texts))
	for i, text := range texts {
		promises[i] = b.AnalyzeText(ctx, text)
	}
	out := make([]string, len(texts))
	for i, p := range promises {
		v, err := p.Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Tokens analyzes text and decodes the payload.
func (b *Bridge) Tokens(ctx context.Context, text string) ([]types.Token, error) {
	payload, err := b.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	tokens, err := types.DecodeTokens(payload)
	if err != nil {
		return nil, fmt.Errorf("could not decode analysis payload: %w", err)
	}
	return tokens, nil
}

// State reports the engine state without loading it.
func (b *Bridge) State() types.LibraryState {
	return b.handle.State()
}

// Stats reports how many engine strings were acquired and released.
func (b *Bridge) Stats() types.Stats {
	return b.handle.Stats()
}

// Config returns the normalized configuration the Bridge was built with.
func (b *Bridge) Config() types.BridgeConfig {
	return b.cfg
}

// Status summarizes the Bridge without loading the engine.
func (b *Bridge) Status() Status {
	state := b.handle.State()
	backend := state.Backend
	if backend == "" {
		backend = b.cfg.Library.Backend
	}
	st := Status{
		Initialized: b.handle.LoadAttempts() > 0,
		Loaded:      state.Loaded(),
		Backend:     backend,
		Library:     state,
		Strings:     b.handle.Stats(),
		Version:     BridgeVersion(),
	}
	if b.cache != nil {
		m := b.cache.Metrics()
		st.CacheHits, st.CacheMisses = m.Hits, m.Misses
	}
	return st
}

// Close waits for in-flight calls and closes the cache. Calls made after
// Close are rejected without reaching the engine; a second Close is a no-op.
// The engine itself stays loaded; it is released when the process exits.
func (b *Bridge) Close() error {
	if !b.exec.close() {
		return nil
	}
	if b.cache != nil {
		return b.cache.Close()
	}
	return nil
}
