package types

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigJSON(t *testing.T) {
	config := BridgeConfig{
		Library: LibraryOptions{
			Name:        LibraryName,
			Backend:     BackendNative,
			SearchPaths: []string{"/opt/readmaker/lib"},
		},
		Workers:     4,
		CallTimeout: Duration(1500 * time.Millisecond),
		Cache: CacheOptions{
			Enabled: true,
			Backend: CacheMemDB,
		},
	}
	expected := `{"library":{"name":"readmaker_core","backend":"native","search_paths":["/opt/readmaker/lib"]},"workers":4,"call_timeout":"1.5s","cache":{"enabled":true,"backend":"memdb"}}`

	bz, err := json.Marshal(config)
	require.NoError(t, err)
	assert.Equal(t, expected, string(bz))

	var parsed BridgeConfig
	require.NoError(t, json.Unmarshal(bz, &parsed))
	assert.Equal(t, config, parsed)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, LibraryName, cfg.Library.Name)
	assert.Equal(t, BackendNative, cfg.Library.Backend)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, time.Duration(0), cfg.CallTimeout.Std())
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.json")
	err := os.WriteFile(path, []byte(`{"workers":2,"call_timeout":"250ms","library":{"search_paths":["./lib"]}}`), 0o600)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.CallTimeout.Std())
	assert.Equal(t, []string{"./lib"}, cfg.Library.SearchPaths)
	// defaults survive a partial file
	assert.Equal(t, LibraryName, cfg.Library.Name)
	assert.Equal(t, BackendNative, cfg.Library.Backend)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"call_timeout":5}`), 0o600))
	_, err = LoadConfig(bad)
	require.ErrorContains(t, err, "Duration")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLibPath, "/tmp/libreadmaker_core.so")
	t.Setenv(EnvBackend, "WASM")
	t.Setenv(EnvWasmPath, "/tmp/readmaker_core.wasm")
	t.Setenv(EnvCacheDir, "/tmp/readmaker-cache")

	cfg := DefaultConfig().ApplyEnv()
	assert.Equal(t, "/tmp/libreadmaker_core.so", cfg.Library.Path)
	assert.Equal(t, BackendWasm, cfg.Library.Backend)
	assert.Equal(t, "/tmp/readmaker_core.wasm", cfg.Library.WasmPath)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, CacheGoLevelDB, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/readmaker-cache", cfg.Cache.Dir)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*BridgeConfig){
		"unknown backend":       func(c *BridgeConfig) { c.Library.Backend = "jni" },
		"wasm without path":     func(c *BridgeConfig) { c.Library.Backend = BackendWasm },
		"negative workers":      func(c *BridgeConfig) { c.Workers = -1 },
		"negative timeout":      func(c *BridgeConfig) { c.CallTimeout = Duration(-time.Second) },
		"leveldb without dir":   func(c *BridgeConfig) { c.Cache = CacheOptions{Enabled: true, Backend: CacheGoLevelDB} },
		"unknown cache backend": func(c *BridgeConfig) { c.Cache = CacheOptions{Enabled: true, Backend: "redis"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
