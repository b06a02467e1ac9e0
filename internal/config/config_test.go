package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://hype-api.vercel.app/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "c660833d-77f0-4bfa-b8f9-4ac38f43ef6a", cfg.API.MyPlaceID)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
	assert.InDelta(t, 20.0, cfg.API.RateLimit, 0.001)
	assert.Equal(t, "mapbox://styles/mapbox/light-v11", cfg.Map.StyleURL)
	assert.Empty(t, cfg.Map.AccessToken)
	assert.Equal(t, 100, cfg.Dashboard.ViewportLimit)
	assert.Equal(t, "visible", cfg.Dashboard.ZipcodePriority)
	assert.Equal(t, 60, cfg.Dashboard.SessionIdleMinutes)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
map:
  access_token: pk.test
blobs:
  competitors: https://blob.example.com/competitors.json
dashboard:
  zipcode_priority: top
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "pk.test", cfg.Map.AccessToken)
	assert.Equal(t, "https://blob.example.com/competitors.json", cfg.Blobs.Competitors)
	assert.Equal(t, "top", cfg.Dashboard.ZipcodePriority)
	// Defaults still apply for unset values
	assert.Equal(t, 100, cfg.Dashboard.ViewportLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
map:
  access_token: from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("PLACEMAP_LOG_LEVEL", "warn")
	t.Setenv("PLACEMAP_MAP_ACCESS_TOKEN", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Map.AccessToken)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PLACEMAP_SERVER_PORT", "3000")
	t.Setenv("PLACEMAP_BLOBS_ZIPCODES", "https://blob.example.com/zipcodes.json")
	t.Setenv("PLACEMAP_API_MY_PLACE_ID", "other-place")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://blob.example.com/zipcodes.json", cfg.Blobs.Zipcodes)
	assert.Equal(t, "other-place", cfg.API.MyPlaceID)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.API.BaseURL = "https://api.example.com"
	cfg.API.MyPlaceID = "my-place"
	cfg.API.RateLimit = 20
	cfg.Dashboard.ViewportLimit = 100
	cfg.Dashboard.ZipcodePriority = "visible"
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.API.MyPlaceID = " "
	cfg.Dashboard.ViewportLimit = 0
	cfg.Dashboard.ZipcodePriority = "some"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.my_place_id is required")
	assert.Contains(t, err.Error(), "dashboard.viewport_limit must be between 1 and 1000")
	assert.Contains(t, err.Error(), "dashboard.zipcode_priority")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate_IgnoresMapToken(t *testing.T) {
	cfg := validDefaults()
	cfg.Map.AccessToken = ""
	assert.NoError(t, cfg.Validate("serve"))
}

func TestMapValidate(t *testing.T) {
	err := MapConfig{}.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMissingMapToken))

	assert.NoError(t, MapConfig{AccessToken: "pk.abc"}.Validate())
}

func TestBlobURLs(t *testing.T) {
	b := BlobsConfig{MyPlace: "a", Zipcodes: "e"}
	urls := b.URLs()
	assert.Len(t, urls, 5)
	assert.Equal(t, "a", urls["my_place"])
	assert.Equal(t, "e", urls["zipcodes"])
	assert.Empty(t, urls["competitors"])
}
