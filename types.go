package corebridge

import (
	"github.com/readmaker/corebridge/internal/api"
	"github.com/readmaker/corebridge/types"
)

// BridgeConfig is the configuration of a Bridge.
type BridgeConfig = types.BridgeConfig

// Token is one morpheme of an analysis result.
type Token = types.Token

// Engine is the C ABI of the analysis engine, see WithLoader.
type Engine = api.Engine

// Loader opens an Engine. It runs at most once per Bridge.
type Loader = api.Loader

// LoadInfo describes where a Loader found the engine.
type LoadInfo = api.LoadInfo

// Status summarizes a Bridge for diagnostics.
type Status struct {
	// Initialized is true once a load has been attempted.
	Initialized bool               `json:"initialized"`
	Loaded      bool               `json:"loaded"`
	Backend     types.Backend      `json:"backend"`
	Library     types.LibraryState `json:"library"`
	Strings     types.Stats        `json:"strings"`
	CacheHits   uint64             `json:"cache_hits"`
	CacheMisses uint64             `json:"cache_misses"`
	Version     string             `json:"version"`
}
