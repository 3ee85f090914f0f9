package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
debug: true
log:
  level: debug
http:
  example:
    base_url: some-rest-api.io
    method: POST
    path: some-resource
    timeout: 100
    headers:
      - [header1, value1]
    query:
      - [key1, value1]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "unset values keep defaults")

	example := cfg.HTTP["example"]
	require.NotNil(t, example)
	assert.Equal(t, "some-rest-api.io", example["base_url"])
	assert.Equal(t, 100, example["timeout"])
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"http": {"api": {"base_url": "http://localhost:8080"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP["api"]["base_url"])
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("http: [unterminated"))
	assert.Error(t, err)
}

func TestFindAndLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTP, "defaults when no file present")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hitcall.yaml"), []byte(sampleConfig), 0644))
	cfg, err = FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Contains(t, cfg.HTTP, "example")
}

func TestConfig_Merge(t *testing.T) {
	base := DefaultConfig()
	base.HTTP["api"] = map[string]any{"base_url": "a.io", "params": map[string]any{"v": 1}}

	other := &Config{
		Log:  LogConfig{Format: "json"},
		HTTP: map[string]map[string]any{"api": {"params": map[string]any{"w": 2}}},
	}

	merged := base.Merge(other)
	assert.Equal(t, "json", merged.Log.Format)
	assert.Equal(t, "info", merged.Log.Level)
	assert.Equal(t, "a.io", merged.HTTP["api"]["base_url"])
	assert.Equal(t, map[string]any{"v": 1, "w": 2}, merged.HTTP["api"]["params"])
	assert.Equal(t, map[string]any{"v": 1}, base.HTTP["api"]["params"], "receiver untouched")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hitcall.yaml")
	cfg := DefaultConfig()
	cfg.HTTP["api"] = map[string]any{"base_url": "api.local"}

	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "api.local", loaded.HTTP["api"]["base_url"])
}

func TestStore_LookupReturnsCopy(t *testing.T) {
	store := NewStore(map[string]map[string]any{
		"api": {"base_url": "api.local", "params": map[string]any{"id": 1}},
	})

	tree, ok := store.Lookup("api")
	require.True(t, ok)
	tree["params"].(map[string]any)["id"] = 2

	again, _ := store.Lookup("api")
	assert.Equal(t, 1, again["params"].(map[string]any)["id"])

	_, ok = store.Lookup("missing")
	assert.False(t, ok)
}

func TestStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hitcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	store := NewStore(nil)
	require.NoError(t, store.Reload(path))
	assert.Equal(t, []string{"example"}, store.Names())
	assert.True(t, store.Debug())

	assert.Error(t, store.Reload(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Equal(t, []string{"example"}, store.Names(), "failed reload keeps clients")
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set("api", map[string]any{"base_url": "api.local"})
		}()
		go func() {
			defer wg.Done()
			store.Lookup("api")
		}()
	}
	wg.Wait()

	_, ok := store.Lookup("api")
	assert.True(t, ok)
}
