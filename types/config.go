package types

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// LibraryName is the fixed logical name of the native engine. Platform
// prefixes and suffixes (lib*.so, *.dylib, *.dll) are added by the loader.
const LibraryName = "readmaker_core"

// Backend selects how the engine is reached.
type Backend string

const (
	// BackendNative loads the shared library through the platform loader.
	BackendNative Backend = "native"
	// BackendWasm runs the engine compiled to wasm32 inside wazero.
	BackendWasm Backend = "wasm"
)

// CacheBackend selects the store used by the optional result cache.
type CacheBackend string

const (
	CacheMemDB     CacheBackend = "memdb"
	CacheGoLevelDB CacheBackend = "goleveldb"
)

// BridgeConfig defines the configuration for a Bridge. The zero value of
// every field means "use the default", so a partial JSON file is valid.
type BridgeConfig struct {
	Library     LibraryOptions `json:"library"`
	Workers     int            `json:"workers"`
	CallTimeout Duration       `json:"call_timeout"`
	Cache       CacheOptions   `json:"cache"`
}

type LibraryOptions struct {
	// Name is the logical library name, LibraryName unless overridden.
	Name    string  `json:"name,omitempty"`
	Backend Backend `json:"backend,omitempty"`
	// Path is an explicit shared object path; when set no search happens.
	Path        string   `json:"path,omitempty"`
	SearchPaths []string `json:"search_paths,omitempty"`
	WasmPath    string   `json:"wasm_path,omitempty"`
}

type CacheOptions struct {
	Enabled bool         `json:"enabled"`
	Backend CacheBackend `json:"backend,omitempty"`
	Dir     string       `json:"dir,omitempty"`
}

// Duration is a time.Duration that is marshalled to and from JSON as a
// string such as "1.5s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("cannot unmarshal %s into Duration, expected string like \"2s\"", data)
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("cannot unmarshal %s into Duration: %w", data, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig reproduces the behaviour of the original bridge: fixed
// library name, platform search path, no worker bound, no timeout, no cache.
func DefaultConfig() BridgeConfig {
	return BridgeConfig{
		Library: LibraryOptions{
			Name:    LibraryName,
			Backend: BackendNative,
		},
		Cache: CacheOptions{
			Backend: CacheMemDB,
		},
	}
}

// LoadConfig reads a JSON config file on top of DefaultConfig.
func LoadConfig(path string) (BridgeConfig, error) {
	cfg := DefaultConfig()
	bz, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config: %w", err)
	}
	if err := json.Unmarshal(bz, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config %s: %w", path, err)
	}
	cfg = cfg.Normalize()
	return cfg, cfg.Validate()
}

// Environment variables understood by ApplyEnv.
const (
	EnvLibPath  = "READMAKER_LIB_PATH"
	EnvBackend  = "READMAKER_BACKEND"
	EnvWasmPath = "READMAKER_WASM_PATH"
	EnvCacheDir = "READMAKER_CACHE_DIR"
)

// ApplyEnv overrides config fields from the process environment.
// READMAKER_CACHE_DIR enables a goleveldb cache in that directory.
func (c BridgeConfig) ApplyEnv() BridgeConfig {
	if v := os.Getenv(EnvLibPath); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Library.Backend = Backend(strings.ToLower(v))
	}
	if v := os.Getenv(EnvWasmPath); v != "" {
		c.Library.WasmPath = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Enabled = true
		c.Cache.Backend = CacheGoLevelDB
		c.Cache.Dir = v
	}
	return c
}

// Normalize fills empty fields with defaults.
func (c BridgeConfig) Normalize() BridgeConfig {
	if c.Library.Name == "" {
		c.Library.Name = LibraryName
	}
	if c.Library.Backend == "" {
		c.Library.Backend = BackendNative
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemDB
	}
	return c
}

func (c BridgeConfig) Validate() error {
	switch c.Library.Backend {
	case BackendNative, BackendWasm, "":
	default:
		return fmt.Errorf("unknown backend %q", c.Library.Backend)
	}
	if c.Library.Backend == BackendWasm && c.Library.WasmPath == "" {
		return fmt.Errorf("backend %q requires library.wasm_path", BackendWasm)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call_timeout must not be negative, got %s", c.CallTimeout.Std())
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case CacheMemDB, "":
		case CacheGoLevelDB:
			if c.Cache.Dir == "" {
				return fmt.Errorf("cache backend %q requires cache.dir", CacheGoLevelDB)
			}
		default:
			return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
		}
	}
	return nil
}
